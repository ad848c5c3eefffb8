package otxenricher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/threatradar/pkg/logger"
)

const (
	defaultPullExpiry = 30 * time.Second
	defaultAckWait    = 30 * time.Second
	fetchErrorBackoff = time.Second
)

// Consumer wraps a JetStream durable pull consumer.
type Consumer struct {
	streamName   string
	consumerName string
	consumer     pullConsumer
	maxDeliver   int
	fetchBatch   int
	logger       logger.Logger
}

// NewConsumer creates or retrieves the durable pull consumer for subject.
func NewConsumer(ctx context.Context, js jetstream.JetStream, cfg *OTXEnricherConfig, log logger.Logger) (*Consumer, error) {
	consumer, err := js.Consumer(ctx, cfg.StreamName, cfg.ConsumerName)
	if err != nil {
		consumer, err = js.CreateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       defaultAckWait,
			MaxDeliver:    cfg.maxDeliver(),
			MaxAckPending: 1000,
			FilterSubject: cfg.Subject,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create consumer %s on stream %s: %w", cfg.ConsumerName, cfg.StreamName, err)
		}
	}

	log.Info().
		Str("stream", cfg.StreamName).
		Str("consumer", cfg.ConsumerName).
		Str("subject", cfg.Subject).
		Msg("Pull consumer ready")

	return &Consumer{
		streamName:   cfg.StreamName,
		consumerName: cfg.ConsumerName,
		consumer:     consumer,
		maxDeliver:   cfg.maxDeliver(),
		fetchBatch:   cfg.fetchBatch(),
		logger:       log,
	}, nil
}

// ProcessMessages fetches and processes messages until ctx is done. It
// returns nil on cancellation and the error itself when the connection is
// gone, so the caller can reconnect.
func (c *Consumer) ProcessMessages(ctx context.Context, processor MessageProcessor) error {
	c.logger.Info().
		Str("stream", c.streamName).
		Str("consumer", c.consumerName).
		Msg("Starting pull consumer")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := c.pullBatch(ctx, processor); err != nil {
			return err
		}
	}
}

// pullBatch fetches and handles one batch. The pull is bound to ctx, so
// canceling it ends an idle long poll instead of waiting out
// defaultPullExpiry. A nil return with ctx done means the caller should stop.
func (c *Consumer) pullBatch(ctx context.Context, processor MessageProcessor) error {
	pullCtx, cancel := context.WithTimeout(ctx, defaultPullExpiry)
	defer cancel()

	batch, err := c.consumer.Fetch(c.fetchBatch, jetstream.FetchContext(pullCtx))
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		if isFatalFetchErr(err) {
			return err
		}

		c.logger.Warn().Err(err).Msg("Failed to fetch messages")

		sleepCtx(ctx, fetchErrorBackoff)

		return nil
	}

	for msg := range batch.Messages() {
		c.handleMessage(ctx, msg, processor)
	}

	err = batch.Error()
	if err == nil || ctx.Err() != nil {
		return nil
	}

	if isFatalFetchErr(err) {
		return err
	}

	if !isIdlePullErr(err) {
		c.logger.Warn().Err(err).Msg("Fetch batch ended with error")
	}

	return nil
}

func isIdlePullErr(err error) bool {
	return errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, jetstream.ErrNoMessages) ||
		errors.Is(err, context.DeadlineExceeded)
}

// handleMessage acks on success, terminates permanent failures and messages
// out of deliveries, and naks the rest for redelivery.
func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg, processor MessageProcessor) {
	err := processor.Process(ctx, msg)
	if err == nil {
		recordOutcome(ctx, outcomeAck)

		if ackErr := msg.Ack(); ackErr != nil {
			c.logger.Warn().Err(ackErr).Msg("Failed to ack message")
		}

		return
	}

	if isPermanent(err) || c.exhausted(msg) {
		c.logger.Error().Err(err).Str("subject", msg.Subject()).Msg("Dropping message")
		recordOutcome(ctx, outcomeTerm)

		if termErr := msg.Term(); termErr != nil {
			c.logger.Warn().Err(termErr).Msg("Failed to terminate message")
		}

		return
	}

	c.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("Processing failed, requesting redelivery")
	recordOutcome(ctx, outcomeNak)

	if nakErr := msg.Nak(); nakErr != nil {
		c.logger.Warn().Err(nakErr).Msg("Failed to nak message")
	}
}

func (c *Consumer) exhausted(msg jetstream.Msg) bool {
	meta, err := msg.Metadata()
	if err != nil || meta == nil {
		return false
	}

	return meta.NumDelivered >= uint64(c.maxDeliver)
}

func isFatalFetchErr(err error) bool {
	return errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrNoResponders) ||
		errors.Is(err, jetstream.ErrConsumerDeleted) ||
		errors.Is(err, jetstream.ErrConsumerNotFound) ||
		errors.Is(err, context.Canceled)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
