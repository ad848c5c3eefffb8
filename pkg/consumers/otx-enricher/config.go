package otxenricher

import (
	"errors"

	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/models"
)

var (
	ErrMissingListenAddr    = errors.New("listen_addr is required")
	ErrMissingNATSURL       = errors.New("nats_url is required")
	ErrMissingStreamName    = errors.New("stream_name is required")
	ErrMissingSubject       = errors.New("subject is required")
	ErrMissingOutputSubject = errors.New("output_subject is required")
	ErrMissingConsumerName  = errors.New("consumer_name is required")
	ErrSubjectLoop          = errors.New("output_subject must differ from subject")
	ErrInvalidWorkers       = errors.New("workers must not be negative")
	ErrInvalidMaxDeliver    = errors.New("max_deliver must not be negative")
)

const (
	defaultMaxDeliver = 3
	defaultFetchBatch = 50
)

// OTXEnricherConfig holds configuration for the OTX enricher consumer.
type OTXEnricherConfig struct {
	ListenAddr    string                 `json:"listen_addr"`
	NATSURL       string                 `json:"nats_url"`
	Domain        string                 `json:"domain"`
	StreamName    string                 `json:"stream_name"`
	Subject       string                 `json:"subject"`
	OutputSubject string                 `json:"output_subject"`
	ConsumerName  string                 `json:"consumer_name"`
	Workers       int                    `json:"workers"`
	MaxDeliver    int                    `json:"max_deliver"`
	FetchBatch    int                    `json:"fetch_batch"`
	Security      *models.SecurityConfig `json:"security"`
	CNPG          *models.CNPGDatabase   `json:"cnpg"`
	Logging       *logger.Config         `json:"logging"`
}

// Validate checks the configuration for required fields.
func (c *OTXEnricherConfig) Validate() error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, ErrMissingListenAddr)
	}

	if c.NATSURL == "" {
		errs = append(errs, ErrMissingNATSURL)
	}

	if c.StreamName == "" {
		errs = append(errs, ErrMissingStreamName)
	}

	if c.Subject == "" {
		errs = append(errs, ErrMissingSubject)
	}

	if c.OutputSubject == "" {
		errs = append(errs, ErrMissingOutputSubject)
	}

	if c.Subject != "" && c.Subject == c.OutputSubject {
		errs = append(errs, ErrSubjectLoop)
	}

	if c.ConsumerName == "" {
		errs = append(errs, ErrMissingConsumerName)
	}

	if c.Workers < 0 {
		errs = append(errs, ErrInvalidWorkers)
	}

	if c.MaxDeliver < 0 {
		errs = append(errs, ErrInvalidMaxDeliver)
	}

	return errors.Join(errs...)
}

func (c *OTXEnricherConfig) maxDeliver() int {
	if c.MaxDeliver == 0 {
		return defaultMaxDeliver
	}

	return c.MaxDeliver
}

func (c *OTXEnricherConfig) fetchBatch() int {
	if c.FetchBatch <= 0 {
		return defaultFetchBatch
	}

	return c.FetchBatch
}
