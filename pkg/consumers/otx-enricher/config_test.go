package otxenricher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *OTXEnricherConfig {
	return &OTXEnricherConfig{
		ListenAddr:    ":50071",
		NATSURL:       "nats://127.0.0.1:4222",
		StreamName:    "OTX",
		Subject:       "otx.pulses.raw",
		OutputSubject: "otx.records.enriched",
		ConsumerName:  "otx-enricher",
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*OTXEnricherConfig)
		wantErr []error
	}{
		{name: "valid", mutate: func(*OTXEnricherConfig) {}},
		{
			name: "missing everything",
			mutate: func(c *OTXEnricherConfig) {
				*c = OTXEnricherConfig{}
			},
			wantErr: []error{
				ErrMissingListenAddr, ErrMissingNATSURL, ErrMissingStreamName,
				ErrMissingSubject, ErrMissingOutputSubject, ErrMissingConsumerName,
			},
		},
		{
			name:    "output loops into input",
			mutate:  func(c *OTXEnricherConfig) { c.OutputSubject = c.Subject },
			wantErr: []error{ErrSubjectLoop},
		},
		{
			name: "negative counts",
			mutate: func(c *OTXEnricherConfig) {
				c.Workers = -1
				c.MaxDeliver = -2
			},
			wantErr: []error{ErrInvalidWorkers, ErrInvalidMaxDeliver},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}

			for _, want := range tt.wantErr {
				require.ErrorIs(t, err, want)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.Equal(t, defaultMaxDeliver, cfg.maxDeliver())
	assert.Equal(t, defaultFetchBatch, cfg.fetchBatch())

	cfg.MaxDeliver = 7
	cfg.FetchBatch = 5
	assert.Equal(t, 7, cfg.maxDeliver())
	assert.Equal(t, 5, cfg.fetchBatch())
}
