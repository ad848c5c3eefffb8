// Package otx polls the AlienVault OTX subscribed pulses feed and publishes
// each page into JetStream for enrichment.
package otx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/carverauto/threatradar/pkg/models"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrInvalidPulse     = errors.New("response is not a pulse page")
	ErrResponseTooLarge = errors.New("response exceeds size limit")
)

const (
	subscribedPath = "/api/v1/pulses/subscribed"
	apiKeyHeader   = "X-OTX-API-KEY"
	maxErrorBody   = 512

	// DefaultMaxResponseBytes caps one subscribed pulses page.
	DefaultMaxResponseBytes int64 = 32 << 20
)

// Client talks to the OTX REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	maxBody    int64
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient and
// maxBody <= 0 uses DefaultMaxResponseBytes.
func NewClient(baseURL, apiKey string, httpClient HTTPClient, maxBody int64) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBytes
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		maxBody:    maxBody,
	}
}

// FetchSubscribed GETs the subscribed pulses page and returns the body
// unchanged once it has been checked to decode as a pulse page.
func (c *Client) FetchSubscribed(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+subscribedPath, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscribed pulses: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBody)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}

		return nil, fmt.Errorf("%w: %d, response: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	var pulse models.Pulse
	if err := json.Unmarshal(body, &pulse); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPulse, err)
	}

	return body, nil
}
