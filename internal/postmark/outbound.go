package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inboxly/inbox-intel/internal/config"
	"github.com/inboxly/inbox-intel/internal/pkg/httpretry"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// Client sends transactional mail through the Postmark API. Sends are
// best-effort: callers treat failures as log-and-continue, never as a
// reason to fail ingestion.
type Client struct {
	baseURL string
	token   string
	from    string
	http    *httpretry.RetryClient
}

// NewClient builds a Postmark sender from config.
func NewClient(cfg config.PostmarkConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.ServerToken,
		from:    cfg.FromEmail,
		http: httpretry.NewRetryClient(
			&http.Client{Timeout: cfg.Timeout()}, cfg.MaxRetries),
	}
}

// From returns the configured sender address.
func (c *Client) From() string { return c.from }

// Enabled reports whether outbound sending is configured at all.
func (c *Client) Enabled() bool {
	return c.token != "" && c.from != ""
}

// OutboundMessage is the Postmark send-email request body.
type OutboundMessage struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	TextBody      string `json:"TextBody,omitempty"`
	HtmlBody      string `json:"HtmlBody,omitempty"`
	MessageStream string `json:"MessageStream,omitempty"`
	Tag           string `json:"Tag,omitempty"`
}

// SendResult captures what Postmark reported for a send.
type SendResult struct {
	MessageID   string    `json:"MessageID"`
	SubmittedAt time.Time `json:"SubmittedAt"`
	ErrorCode   int       `json:"ErrorCode"`
	Message     string    `json:"Message"`
}

// Send posts a single message to the Postmark email endpoint.
func (c *Client) Send(ctx context.Context, msg OutboundMessage) (*SendResult, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("postmark sending not configured")
	}
	if msg.From == "" {
		msg.From = c.from
	}
	if msg.MessageStream == "" {
		msg.MessageStream = "outbound"
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal outbound message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postmark send: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read send response: %w", err)
	}

	var result SendResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode send response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || result.ErrorCode != 0 {
		return &result, fmt.Errorf("postmark rejected send: status=%d code=%d message=%s",
			resp.StatusCode, result.ErrorCode, result.Message)
	}

	logger.Info("outbound email sent",
		"recipient", msg.To, "postmark_message_id", result.MessageID, "tag", msg.Tag)
	return &result, nil
}
