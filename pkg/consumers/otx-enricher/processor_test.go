package otxenricher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/threatradar/pkg/enrich"
	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/models"
)

func TestProcessorPublishesOneMessagePerRecord(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	publisher := NewMockPublisher(ctrl)
	sink := NewMockRecordSink(ctrl)

	var published []*nats.Msg

	publisher.EXPECT().
		PublishMsg(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
			published = append(published, msg)

			return &jetstream.PubAck{Stream: "OTX"}, nil
		}).
		Times(2)

	sink.EXPECT().
		StoreEnrichedRecords(gomock.Any(), gomock.Len(2)).
		Return(nil)

	p := NewProcessor(enrich.New(enrich.WithWorkers(2)), publisher, sink, "otx.records.enriched", logger.NewTestLogger())

	require.NoError(t, p.Process(context.Background(), jsMsg(42, 1, twoRecordPulse)))
	require.Len(t, published, 2)

	want, err := enrich.New().Transform(context.Background(), []byte(twoRecordPulse))
	require.NoError(t, err)

	for i, msg := range published {
		assert.Equal(t, "otx.records.enriched", msg.Subject)
		assert.JSONEq(t, string(want[i]), string(msg.Data))
	}

	assert.Equal(t, "42-0", published[0].Header.Get(jetstream.MsgIDHeader))
	assert.Equal(t, "42-1", published[1].Header.Get(jetstream.MsgIDHeader))

	var first models.EnrichedThreatRecord
	require.NoError(t, json.Unmarshal(published[0].Data, &first))
	assert.Contains(t, first.AttackTypes, models.AttackTypeRansomware)
	assert.Equal(t, []string{"Germany"}, first.Locations)
}

func TestProcessorWithoutSink(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	publisher := NewMockPublisher(ctrl)
	publisher.EXPECT().PublishMsg(gomock.Any(), gomock.Any()).Return(&jetstream.PubAck{}, nil).Times(2)

	p := NewProcessor(enrich.New(), publisher, nil, "otx.records.enriched", logger.NewTestLogger())

	require.NoError(t, p.Process(context.Background(), jsMsg(1, 1, twoRecordPulse)))
}

func TestProcessorMessageIDWithoutMetadata(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	publisher := NewMockPublisher(ctrl)

	var ids []string

	publisher.EXPECT().
		PublishMsg(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
			ids = append(ids, msg.Header.Get(jetstream.MsgIDHeader))

			return &jetstream.PubAck{}, nil
		}).
		Times(4)

	p := NewProcessor(enrich.New(), publisher, nil, "otx.records.enriched", logger.NewTestLogger())
	msg := &fakeMsg{subject: "otx.pulses.raw", data: []byte(twoRecordPulse)}

	require.NoError(t, p.Process(context.Background(), msg))
	require.NoError(t, p.Process(context.Background(), msg))

	require.Len(t, ids, 4)
	assert.Equal(t, ids[:2], ids[2:], "same content yields the same ids")
	assert.NotEqual(t, ids[0], ids[1])
}

func TestProcessorPermanentFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "empty", data: "", wantErr: ErrEmptyMessage},
		{name: "not json", data: "not json", wantErr: enrich.ErrDecodePulse},
		{name: "no results", data: `{"count": 0}`, wantErr: models.ErrMissingResults},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			p := NewProcessor(enrich.New(), NewMockPublisher(ctrl), NewMockRecordSink(ctrl), "out", logger.NewTestLogger())

			err := p.Process(context.Background(), jsMsg(1, 1, tc.data))
			require.ErrorIs(t, err, tc.wantErr)
			assert.True(t, isPermanent(err))
		})
	}
}

func TestProcessorRetryableFailures(t *testing.T) {
	t.Parallel()

	errDown := errors.New("down")

	t.Run("publish", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		publisher := NewMockPublisher(ctrl)
		publisher.EXPECT().PublishMsg(gomock.Any(), gomock.Any()).Return(nil, errDown)

		p := NewProcessor(enrich.New(), publisher, NewMockRecordSink(ctrl), "out", logger.NewTestLogger())

		err := p.Process(context.Background(), jsMsg(1, 1, twoRecordPulse))
		require.ErrorIs(t, err, ErrPublishRecord)
		require.ErrorIs(t, err, errDown)
		assert.False(t, isPermanent(err))
	})

	t.Run("sink", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		publisher := NewMockPublisher(ctrl)
		publisher.EXPECT().PublishMsg(gomock.Any(), gomock.Any()).Return(&jetstream.PubAck{}, nil).Times(2)

		sink := NewMockRecordSink(ctrl)
		sink.EXPECT().StoreEnrichedRecords(gomock.Any(), gomock.Any()).Return(errDown)

		p := NewProcessor(enrich.New(), publisher, sink, "out", logger.NewTestLogger())

		err := p.Process(context.Background(), jsMsg(1, 1, twoRecordPulse))
		require.ErrorIs(t, err, ErrStoreRecords)
		assert.False(t, isPermanent(err))
	})
}

func TestProcessorEmptyResultsPublishesNothing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	p := NewProcessor(enrich.New(), NewMockPublisher(ctrl), NewMockRecordSink(ctrl), "out", logger.NewTestLogger())

	require.NoError(t, p.Process(context.Background(), jsMsg(1, 1, `{"results": []}`)))
}
