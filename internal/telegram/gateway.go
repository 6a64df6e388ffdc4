// Package telegram implements the ingest.ChatClient interface against the
// MTProto gateway sidecar. The gateway owns the actual Telegram session;
// this client drives it over a small JSON-over-HTTP surface, which keeps
// MTProto framing out of this codebase entirely.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paydesk/slipline/internal/ingest"
	"github.com/paydesk/slipline/internal/markup"
)

var _ ingest.ChatClient = (*GatewayClient)(nil)

// GatewayClient talks to the MTProto gateway. Safe for concurrent use.
type GatewayClient struct {
	baseURL    string
	accountID  string
	httpClient *http.Client
}

// NewGatewayClient creates a client for the gateway at baseURL, acting as
// the given account. A nil httpClient gets a 30-second timeout default.
func NewGatewayClient(baseURL, accountID string, httpClient *http.Client) (*GatewayClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("gateway base URL cannot be empty")
	}
	if accountID == "" {
		return nil, fmt.Errorf("account ID cannot be empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GatewayClient{baseURL: baseURL, accountID: accountID, httpClient: httpClient}, nil
}

// Connect establishes the gateway's channel session from a persisted
// credential.
func (c *GatewayClient) Connect(ctx context.Context, credential string) error {
	body := map[string]string{"account_id": c.accountID, "credential": credential}
	return c.post(ctx, "/connect", body, nil)
}

// SendCode starts out-of-band registration; the gateway sends the one-time
// code to the account's phone and returns the hash SignIn needs.
func (c *GatewayClient) SendCode(ctx context.Context) (string, error) {
	var resp struct {
		CodeHash string `json:"code_hash"`
	}
	body := map[string]string{"account_id": c.accountID}
	if err := c.post(ctx, "/sendCode", body, &resp); err != nil {
		return "", err
	}
	if resp.CodeHash == "" {
		return "", fmt.Errorf("gateway did not return a code hash")
	}
	return resp.CodeHash, nil
}

// SignIn completes registration and returns the exported session
// credential for persistence.
func (c *GatewayClient) SignIn(ctx context.Context, code, codeHash string) (string, error) {
	var resp struct {
		Session string `json:"session"`
	}
	body := map[string]string{"account_id": c.accountID, "code": code, "code_hash": codeHash}
	if err := c.post(ctx, "/signIn", body, &resp); err != nil {
		return "", err
	}
	if resp.Session == "" {
		return "", fmt.Errorf("gateway did not return a session credential")
	}
	return resp.Session, nil
}

// RecentMessages returns the newest messages of a channel, newest first.
func (c *GatewayClient) RecentMessages(ctx context.Context, channelID int64, limit int) ([]ingest.Message, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	return c.getMessages(ctx, channelID, query)
}

// MessagesAfter returns messages with ID greater than minID, oldest
// first.
func (c *GatewayClient) MessagesAfter(ctx context.Context, channelID, minID int64, limit int) ([]ingest.Message, error) {
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"min_id": {strconv.FormatInt(minID, 10)},
	}
	return c.getMessages(ctx, channelID, query)
}

func (c *GatewayClient) getMessages(ctx context.Context, channelID int64, query url.Values) ([]ingest.Message, error) {
	var resp struct {
		Messages []ingest.Message `json:"messages"`
	}
	path := fmt.Sprintf("/channels/%d/messages?%s", channelID, query.Encode())
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// ChannelTitle resolves a channel's display name.
func (c *GatewayClient) ChannelTitle(ctx context.Context, channelID int64) (string, error) {
	var resp struct {
		Title string `json:"title"`
	}
	if err := c.get(ctx, fmt.Sprintf("/channels/%d", channelID), &resp); err != nil {
		return "", err
	}
	return resp.Title, nil
}

// Reply sends a threaded reply with offset-based style spans.
func (c *GatewayClient) Reply(ctx context.Context, channelID, inReplyTo int64, text string, spans []markup.Span) error {
	body := struct {
		InReplyTo int64         `json:"in_reply_to"`
		Text      string        `json:"text"`
		Spans     []markup.Span `json:"spans"`
	}{InReplyTo: inReplyTo, Text: text, Spans: spans}
	return c.post(ctx, fmt.Sprintf("/channels/%d/reply", channelID), body, nil)
}

func (c *GatewayClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *GatewayClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	return c.do(req, out)
}

func (c *GatewayClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
