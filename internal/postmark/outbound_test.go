package postmark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxly/inbox-intel/internal/config"
)

func newSendServer(t *testing.T, status int, result SendResult) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(result)
	}))
	t.Cleanup(srv.Close)

	return NewClient(config.PostmarkConfig{
		ServerToken:    "token-123",
		BaseURL:        srv.URL,
		FromEmail:      "noreply@inboxintel.dev",
		TimeoutSeconds: 5,
		MaxRetries:     1,
	})
}

func TestSendSuccess(t *testing.T) {
	c := newSendServer(t, http.StatusOK, SendResult{MessageID: "pm-1"})

	res, err := c.Send(context.Background(), OutboundMessage{
		To:      "alice@example.com",
		Subject: "Welcome",
	})
	require.NoError(t, err)
	assert.Equal(t, "pm-1", res.MessageID)
}

func TestSendSetsAuthAndDefaults(t *testing.T) {
	var seenToken, seenStream, seenFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenToken = r.Header.Get("X-Postmark-Server-Token")
		var msg OutboundMessage
		json.NewDecoder(r.Body).Decode(&msg)
		seenStream = msg.MessageStream
		seenFrom = msg.From
		json.NewEncoder(w).Encode(SendResult{MessageID: "pm-2"})
	}))
	defer srv.Close()

	c := NewClient(config.PostmarkConfig{
		ServerToken: "token-123",
		BaseURL:     srv.URL,
		FromEmail:   "noreply@inboxintel.dev",
		MaxRetries:  1,
	})
	_, err := c.Send(context.Background(), OutboundMessage{To: "a@b.c", Subject: "x"})
	require.NoError(t, err)

	assert.Equal(t, "token-123", seenToken)
	assert.Equal(t, "outbound", seenStream)
	assert.Equal(t, "noreply@inboxintel.dev", seenFrom)
}

func TestSendAPIErrorCode(t *testing.T) {
	c := newSendServer(t, http.StatusOK, SendResult{ErrorCode: 300, Message: "invalid to"})

	_, err := c.Send(context.Background(), OutboundMessage{To: "bad", Subject: "x"})
	assert.Error(t, err)
}

func TestSendDisabledWithoutToken(t *testing.T) {
	c := NewClient(config.PostmarkConfig{BaseURL: "http://unused"})
	assert.False(t, c.Enabled())

	_, err := c.Send(context.Background(), OutboundMessage{To: "a@b.c"})
	assert.Error(t, err)
}
