package otxenricher

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/threatradar/pkg/enrich"
	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/models"
)

const tracerName = "github.com/carverauto/threatradar/pkg/consumers/otx-enricher"

// Processor enriches one pulse message and publishes a message per record.
type Processor struct {
	enricher      *enrich.Enricher
	publisher     Publisher
	sink          RecordSink
	outputSubject string
	logger        logger.Logger
	tracer        trace.Tracer
}

// NewProcessor creates a Processor. sink may be nil.
func NewProcessor(enricher *enrich.Enricher, publisher Publisher, sink RecordSink, outputSubject string, log logger.Logger) *Processor {
	return &Processor{
		enricher:      enricher,
		publisher:     publisher,
		sink:          sink,
		outputSubject: outputSubject,
		logger:        log,
		tracer:        otel.Tracer(tracerName),
	}
}

// Process decodes, enriches and republishes msg. Decode failures are
// permanent; publish and sink failures are retryable.
func (p *Processor) Process(ctx context.Context, msg jetstream.Msg) (err error) {
	if headers := msg.Headers(); headers != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(headers))
	}

	ctx, span := p.tracer.Start(ctx, "otx_enricher.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination.name", msg.Subject())),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	data := msg.Data()
	if len(data) == 0 {
		return ErrEmptyMessage
	}

	pulse, err := enrich.DecodePulse(ctx, data)
	if err != nil {
		return err
	}

	records, err := p.enricher.EnrichPulseConcurrent(ctx, pulse)
	if err != nil {
		return err
	}

	payloads, err := enrich.EncodeRecords(records)
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("threatradar.records", len(records)))

	baseID := messageID(msg)

	for i, payload := range payloads {
		out := &nats.Msg{
			Subject: p.outputSubject,
			Data:    payload,
			Header:  nats.Header{},
		}
		out.Header.Set(jetstream.MsgIDHeader, baseID+"-"+strconv.Itoa(i))
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(out.Header))

		if _, err := p.publisher.PublishMsg(ctx, out); err != nil {
			return fmt.Errorf("%w %d of %d: %w", ErrPublishRecord, i, len(payloads), err)
		}
	}

	if p.sink != nil && len(records) > 0 {
		if err := p.sink.StoreEnrichedRecords(ctx, records); err != nil {
			return fmt.Errorf("%w: %w", ErrStoreRecords, err)
		}
	}

	p.logger.Debug().
		Str("subject", msg.Subject()).
		Int("records", len(records)).
		Msg("Pulse enriched")

	return nil
}

// messageID derives the dedup prefix from the stream sequence, so a
// redelivered pulse republishes under the same ids. Messages without
// JetStream metadata fall back to a content hash.
func messageID(msg jetstream.Msg) string {
	if meta, err := msg.Metadata(); err == nil && meta != nil {
		return strconv.FormatUint(meta.Sequence.Stream, 10)
	}

	return uuid.NewSHA1(uuid.NameSpaceOID, msg.Data()).String()
}

// isPermanent reports whether redelivering the message cannot succeed.
func isPermanent(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, enrich.ErrDecodePulse) ||
		errors.Is(err, enrich.ErrEncodeRecord) ||
		errors.Is(err, models.ErrMissingResults)
}
