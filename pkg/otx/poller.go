package otx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/threatradar/pkg/logger"
)

//nolint:gochecknoglobals // fixed namespace for content-derived message ids
var pulseNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(DefaultBaseURL+subscribedPath))

// Poller fetches the feed on an interval and publishes each page.
type Poller struct {
	fetcher   PulseFetcher
	publisher Publisher
	subject   string
	interval  time.Duration
	logger    logger.Logger
}

// NewPoller creates a Poller. interval <= 0 uses 60 seconds.
func NewPoller(fetcher PulseFetcher, publisher Publisher, subject string, interval time.Duration, log logger.Logger) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Poller{
		fetcher:   fetcher,
		publisher: publisher,
		subject:   subject,
		interval:  interval,
		logger:    log,
	}
}

// Run polls immediately and then every interval until ctx is done. Failed
// polls are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			p.logger.Error().Err(err).Msg("OTX poll failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce fetches one page and publishes it. The message id is derived
// from the body, so an unchanged page inside the stream's duplicate window
// is stored once.
func (p *Poller) PollOnce(ctx context.Context) error {
	body, err := p.fetcher.FetchSubscribed(ctx)
	if err != nil {
		return err
	}

	msgID := uuid.NewSHA1(pulseNamespace, body).String()

	msg := &nats.Msg{Subject: p.subject, Data: body, Header: nats.Header{}}
	msg.Header.Set(jetstream.MsgIDHeader, msgID)

	ack, err := p.publisher.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to publish pulse page: %w", err)
	}

	p.logger.Info().
		Str("subject", p.subject).
		Str("msg_id", msgID).
		Uint64("seq", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Int("bytes", len(body)).
		Msg("Published pulse page")

	return nil
}
