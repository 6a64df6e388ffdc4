// Package enrich implements the ingest.Enricher interface against the
// external slip-processing service. The service receives the extracted
// slip content and returns a human-readable reply that may carry the
// markup tag vocabulary.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paydesk/slipline/internal/ingest"
)

var _ ingest.Enricher = (*Client)(nil)

// Client posts slip requests to the enrichment service. Safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an enrichment client for the service at baseURL. A
// nil httpClient gets a 60-second timeout default — enrichment involves
// downstream ticket lookups and can be slow.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("enrichment base URL cannot be empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// Enrich submits one slip and returns the service's reply text. Any
// failure means "no message to send" — the caller logs it and moves on.
func (c *Client) Enrich(ctx context.Context, slip ingest.SlipRequest) (string, error) {
	payload, err := json.Marshal(slip)
	if err != nil {
		return "", fmt.Errorf("failed to encode slip request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/slips", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build slip request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("slip request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("enrichment service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode enrichment response: %w", err)
	}
	if body.Message == "" {
		return "", fmt.Errorf("enrichment service returned an empty reply")
	}

	return body.Message, nil
}
