package otxenricher

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName       = "threatradar.otx_enricher"
	metricMessages  = "otx_enricher_messages_total"
	outcomeAck      = "ack"
	outcomeNak      = "nak"
	outcomeTerm     = "term"
	outcomeAttrName = "outcome"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	messagesCounter metric.Int64Counter
)

func initMeter() {
	counter, err := otel.Meter(meterName).Int64Counter(
		metricMessages,
		metric.WithDescription("Pulse messages handled, by acknowledgement outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}

	messagesCounter = counter
}

func recordOutcome(ctx context.Context, outcome string) {
	meterOnce.Do(initMeter)
	if messagesCounter == nil {
		return
	}

	messagesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(outcomeAttrName, outcome)))
}
