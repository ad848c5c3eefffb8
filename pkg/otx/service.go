package otx

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/threatradar/pkg/lifecycle"
	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/natsutil"
)

type connectFunc func(ctx context.Context) (*nats.Conn, jetstream.JetStream, error)

// Service implements lifecycle.Service for the OTX fetcher.
type Service struct {
	cfg            *OTXFetcherConfig
	client         *Client
	logger         logger.Logger
	connectFactory connectFunc
	retryDelay     time.Duration

	mu     sync.Mutex
	nc     *nats.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService validates cfg and builds the OTX client.
func NewService(cfg *OTXFetcherConfig, log logger.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.timeout()}

	svc := &Service{
		cfg:        cfg,
		client:     NewClient(cfg.baseURL(), cfg.APIKey, httpClient, cfg.MaxResponseBytes),
		logger:     log,
		retryDelay: defaultRetryDelay,
	}
	svc.connectFactory = svc.connect

	return svc, nil
}

// Start launches the poll loop. Connection failures are retried in the
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
		Str("subject", s.cfg.Subject).
		Dur("interval", s.cfg.interval()).
		Msg("OTX fetcher started")

	return nil
}

func (s *Service) run(ctx context.Context) {
	for {
		nc, js, err := s.connectFactory(ctx)
		if err == nil {
			s.setConn(nc)

			_ = NewPoller(s.client, js, s.cfg.Subject, s.cfg.interval(), s.logger).Run(ctx)

			return
		}

		s.logger.Error().Err(err).Dur("retry_in", s.retryDelay).Msg("Failed to connect to JetStream")

		timer := time.NewTimer(s.retryDelay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return
		case <-timer.C:
		}
	}
}

func (s *Service) connect(ctx context.Context) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := natsutil.ConnectWithSecurity(s.cfg.NATSURL, s.cfg.Security, s.logger)
	if err != nil {
		return nil, nil, err
	}

	js, err := natsutil.NewJetStream(nc, s.cfg.Domain)
	if err != nil {
		nc.Close()

		return nil, nil, err
	}

	if _, err := natsutil.EnsureStream(ctx, js, s.cfg.StreamName, s.cfg.Subject); err != nil {
		nc.Close()

		return nil, nil, err
	}

	return nc, js, nil
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

// Stop halts polling and closes the NATS connection.
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

	var err error

	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("otx fetcher did not stop: %w", ctx.Err())
	}

	s.setConn(nil)

	s.logger.Info().Msg("OTX fetcher stopped")

	return err
}

var _ lifecycle.Service = (*Service)(nil)
