//go:generate mockgen -destination=mock_otxenricher.go -package=otxenricher github.com/carverauto/threatradar/pkg/consumers/otx-enricher Publisher,RecordSink

package otxenricher

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/threatradar/pkg/models"
)

// Publisher publishes enriched records. jetstream.JetStream satisfies it.
type Publisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// RecordSink persists the enriched records of one pulse.
type RecordSink interface {
	StoreEnrichedRecords(ctx context.Context, records []models.EnrichedThreatRecord) error
}

// MessageProcessor handles one input message.
type MessageProcessor interface {
	Process(ctx context.Context, msg jetstream.Msg) error
}

// pullConsumer is the part of jetstream.Consumer the fetch loop uses.
type pullConsumer interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}
