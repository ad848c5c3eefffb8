package otx

import (
	"errors"
	"os"
	"time"

	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/models"
)

var (
	ErrMissingAPIKey     = errors.New("api_key is required (or set OTX_API_KEY)")
	ErrMissingNATSURL    = errors.New("nats_url is required")
	ErrMissingStreamName = errors.New("stream_name is required")
	ErrMissingSubject    = errors.New("subject is required")
	ErrInvalidInterval   = errors.New("interval must not be negative")
	ErrInvalidMaxBody    = errors.New("max_response_bytes must not be negative")
)

const (
	apiKeyEnv          = "OTX_API_KEY"
	DefaultBaseURL     = "https://otx.alienvault.com"
	defaultInterval    = 60 * time.Second
	defaultHTTPTimeout = 30 * time.Second
	defaultRetryDelay  = 5 * time.Second
)

// OTXFetcherConfig configures the OTX feed poller.
type OTXFetcherConfig struct {
	ListenAddr string          `json:"listen_addr"`
	APIKey     string          `json:"api_key"`
	BaseURL    string          `json:"base_url"`
	Interval   models.Duration `json:"interval"`
	Timeout    models.Duration `json:"timeout"`
	// MaxResponseBytes caps one feed page; 0 uses DefaultMaxResponseBytes.
	MaxResponseBytes int64                  `json:"max_response_bytes"`
	NATSURL          string                 `json:"nats_url"`
	Domain           string                 `json:"domain"`
	StreamName       string                 `json:"stream_name"`
	Subject          string                 `json:"subject"`
	Security         *models.SecurityConfig `json:"security"`
	Logging          *logger.Config         `json:"logging"`
}

// Validate checks required fields. An empty api_key is filled from
// OTX_API_KEY first.
func (c *OTXFetcherConfig) Validate() error {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(apiKeyEnv)
	}

	var errs []error

	if c.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
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

	if c.Interval < 0 {
		errs = append(errs, ErrInvalidInterval)
	}

	if c.MaxResponseBytes < 0 {
		errs = append(errs, ErrInvalidMaxBody)
	}

	return errors.Join(errs...)
}

func (c *OTXFetcherConfig) interval() time.Duration {
	if c.Interval <= 0 {
		return defaultInterval
	}

	return time.Duration(c.Interval)
}

func (c *OTXFetcherConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultHTTPTimeout
	}

	return time.Duration(c.Timeout)
}

func (c *OTXFetcherConfig) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}

	return c.BaseURL
}
