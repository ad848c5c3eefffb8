package otxenricher

import (
	"context"
	"errors"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var errNoMetadata = errors.New("not a JetStream message")

type fakePullConsumer struct {
	err error
}

func (f *fakePullConsumer) Fetch(int, ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	if f.err != nil {
		return nil, f.err
	}

	ch := make(chan jetstream.Msg)
	close(ch)

	return &fakeMessageBatch{ch: ch}, nil
}

// cancelingPullConsumer cancels the caller's context and fails the pull the
// way an aborted FetchContext pull does.
type cancelingPullConsumer struct {
	cancel context.CancelFunc
}

func (f *cancelingPullConsumer) Fetch(int, ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	f.cancel()

	return nil, context.Canceled
}

// batchPullConsumer hands out one batch, then fails with err.
type batchPullConsumer struct {
	mu   sync.Mutex
	msgs []jetstream.Msg
	err  error
}

func (f *batchPullConsumer) Fetch(int, ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.msgs == nil {
		return nil, f.err
	}

	ch := make(chan jetstream.Msg, len(f.msgs))
	for _, m := range f.msgs {
		ch <- m
	}

	close(ch)

	f.msgs = nil

	return &fakeMessageBatch{ch: ch, err: nats.ErrTimeout}, nil
}

type fakeMessageBatch struct {
	ch  chan jetstream.Msg
	err error
}

func (f *fakeMessageBatch) Messages() <-chan jetstream.Msg {
	return f.ch
}

func (f *fakeMessageBatch) Error() error {
	return f.err
}

// fakeMsg implements the jetstream.Msg methods the consumer touches.
type fakeMsg struct {
	jetstream.Msg

	subject string
	data    []byte
	headers nats.Header
	meta    *jetstream.MsgMetadata

	mu     sync.Mutex
	acked  bool
	naked  bool
	termed bool
}

func (m *fakeMsg) Subject() string      { return m.subject }
func (m *fakeMsg) Data() []byte         { return m.data }
func (m *fakeMsg) Headers() nats.Header { return m.headers }

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	if m.meta == nil {
		return nil, errNoMetadata
	}

	return m.meta, nil
}

func (m *fakeMsg) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.acked = true

	return nil
}

func (m *fakeMsg) Nak() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.naked = true

	return nil
}

func (m *fakeMsg) Term() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.termed = true

	return nil
}

func (m *fakeMsg) outcome() (acked, naked, termed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.acked, m.naked, m.termed
}

func jsMsg(seq, delivered uint64, data string) *fakeMsg {
	return &fakeMsg{
		subject: "otx.pulses.raw",
		data:    []byte(data),
		meta: &jetstream.MsgMetadata{
			Sequence:     jetstream.SequencePair{Stream: seq, Consumer: seq},
			NumDelivered: delivered,
		},
	}
}

type processorFunc func(ctx context.Context, msg jetstream.Msg) error

func (f processorFunc) Process(ctx context.Context, msg jetstream.Msg) error {
	return f(ctx, msg)
}

const twoRecordPulse = `{
  "results": [
    {
      "id": "a1",
      "name": "Ransomware campaign",
      "description": "phishing email drops payload",
      "tags": ["ransomware"],
      "targeted_countries": ["Germany"],
      "indicators": [
        {"id": 1, "indicator": "evil.example", "type": "domain", "title": "", "description": "", "is_active": 1, "expiration": "2024-05-01T00:00:00", "role": null}
      ]
    },
    {
      "id": "a2",
      "name": "Quiet pulse",
      "description": "",
      "tags": [],
      "targeted_countries": [],
      "indicators": []
    }
  ],
  "count": 2
}`
