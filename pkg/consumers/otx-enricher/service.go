package otxenricher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/threatradar/pkg/enrich"
	"github.com/carverauto/threatradar/pkg/lifecycle"
	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/natsutil"
)

const defaultRetryDelay = 5 * time.Second

type connectFunc func(ctx context.Context) (*nats.Conn, jetstream.JetStream, *Consumer, error)

// Service implements lifecycle.Service for the OTX enricher.
type Service struct {
	cfg            *OTXEnricherConfig
	enricher       *enrich.Enricher
	sink           RecordSink
	logger         logger.Logger
	connectFactory connectFunc
	retryDelay     time.Duration

	mu     sync.Mutex
	nc     *nats.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService validates cfg and prepares the service. sink may be nil.
func NewService(cfg *OTXEnricherConfig, sink RecordSink, log logger.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svc := &Service{
		cfg:        cfg,
		enricher:   enrich.New(enrich.WithWorkers(cfg.Workers)),
		sink:       sink,
		logger:     log,
		retryDelay: defaultRetryDelay,
	}
	svc.connectFactory = svc.connect

	return svc, nil
}

// Start launches the consume loop. Connection failures are retried in the
// background rather than returned.
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()

	s.logger.Info().
		Str("stream", s.cfg.StreamName).
		Str("subject", s.cfg.Subject).
		Str("output_subject", s.cfg.OutputSubject).
		Msg("OTX enricher started")

	return nil
}

func (s *Service) run(ctx context.Context) {
	for {
		nc, js, consumer, err := s.connectFactory(ctx)
		if err != nil {
			s.logger.Error().Err(err).Dur("retry_in", s.retryDelay).Msg("Failed to connect to JetStream")

			if !sleepCtx(ctx, s.retryDelay) {
				return
			}

			continue
		}

		s.setConn(nc)

		processor := NewProcessor(s.enricher, js, s.sink, s.cfg.OutputSubject, s.logger)
		err = consumer.ProcessMessages(ctx, processor)

		s.setConn(nil)

		if err == nil || ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}

		s.logger.Warn().Err(err).Dur("retry_in", s.retryDelay).Msg("Consumer stopped, reconnecting")

		if !sleepCtx(ctx, s.retryDelay) {
			return
		}
	}
}

// setConn swaps the live connection, closing the previous one.
func (s *Service) setConn(nc *nats.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nc != nil && s.nc != nc {
		s.nc.Close()
	}

	s.nc = nc
}

func (s *Service) connect(ctx context.Context) (*nats.Conn, jetstream.JetStream, *Consumer, error) {
	nc, err := natsutil.ConnectWithSecurity(s.cfg.NATSURL, s.cfg.Security, s.logger)
	if err != nil {
		return nil, nil, nil, err
	}

	js, err := natsutil.NewJetStream(nc, s.cfg.Domain)
	if err != nil {
		nc.Close()

		return nil, nil, nil, err
	}

	if _, err := natsutil.EnsureStream(ctx, js, s.cfg.StreamName, s.cfg.Subject, s.cfg.OutputSubject); err != nil {
		nc.Close()

		return nil, nil, nil, err
	}

	consumer, err := NewConsumer(ctx, js, s.cfg, s.logger)
	if err != nil {
		nc.Close()

		return nil, nil, nil, err
	}

	return nc, js, consumer, nil
}

// Stop cancels the consume loop, waits for it to exit or ctx to end and
// closes the connection.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.setConn(nil)

		return fmt.Errorf("otx enricher did not stop: %w", ctx.Err())
	}

	s.setConn(nil)

	s.logger.Info().Msg("OTX enricher stopped")

	return nil
}

var _ lifecycle.Service = (*Service)(nil)
