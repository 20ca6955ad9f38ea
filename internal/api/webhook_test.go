package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxly/inbox-intel/internal/email"
)

type fixedResolver struct{ userID int64 }

func (r *fixedResolver) ResolveWebhookUser(context.Context, string, string) (int64, bool, error) {
	return r.userID, false, nil
}

func newWebhookHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := email.NewStore(db)
	ing := email.NewIngestor(store, nil, &fixedResolver{userID: 42}, nil)
	return NewHandlers(db, store, ing, nil, nil, nil, nil, nil), mock
}

const inboundBody = `{
	"From": "alice@example.com",
	"FromFull": {"Email": "alice@example.com", "Name": "Alice"},
	"ToFull": [{"Email": "inbox@inboxintel.dev"}],
	"Subject": "Quarterly review",
	"MessageID": "<msg-1@example.com>",
	"Date": "Mon, 2 Jan 2006 15:04:05 -0700",
	"Headers": [{"Name": "Message-ID", "Value": "<msg-1@example.com>"}]
}`

func TestInboundWebhookDuplicateReturns200(t *testing.T) {
	h, mock := newWebhookHandlers(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO emails_raw").
		WillReturnRows(sqlmock.NewRows([]string{"id", "received_at"}).AddRow(7, now))
	mock.ExpectQuery("SELECT (.+) FROM emails WHERE message_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "raw_email_id", "thread_id", "thread_position",
			"message_id", "message_stream", "email_identifier",
			"parent_email_identifier", "parent_email_id",
			"from_email", "from_name", "subject", "text_body", "html_body",
			"stripped_text_reply", "sent_at", "processed_at", "mailbox_hash",
			"tag", "original_recipient", "reply_to", "spam_score", "spam_status",
			"actionables_processing_status", "actionables_processed_at",
			"actionables_error_message",
		}).AddRow(
			101, 42, 3, nil, 0,
			"<msg-1@example.com>", nil, "<msg-1@example.com>",
			nil, nil,
			"alice@example.com", "Alice", "Quarterly review", nil, nil,
			nil, now, now, nil,
			nil, nil, nil, nil, "unknown",
			"processed", nil, nil,
		))

	req := httptest.NewRequest("POST", "/webhook/postmark", strings.NewReader(inboundBody))
	rec := httptest.NewRecorder()
	h.InboundWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["is_duplicate"])
	assert.Equal(t, float64(7), resp["raw_email_id"])
	assert.Equal(t, "<msg-1@example.com>", resp["message_id"])
	assert.Equal(t, "processed", resp["processing_status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInboundWebhookValidationReturns422(t *testing.T) {
	h, mock := newWebhookHandlers(t)

	body := `{"From": "alice@example.com", "Date": "Mon, 2 Jan 2006 15:04:05 -0700"}`
	req := httptest.NewRequest("POST", "/webhook/postmark", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.InboundWebhook(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp["code"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInboundWebhookMalformedJSONReturns422(t *testing.T) {
	h, mock := newWebhookHandlers(t)

	req := httptest.NewRequest("POST", "/webhook/postmark", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.InboundWebhook(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
