package email

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxly/inbox-intel/internal/postmark"
)

type stubResolver struct {
	userID  int64
	created bool
}

func (r *stubResolver) ResolveWebhookUser(_ context.Context, _, _ string) (int64, bool, error) {
	return r.userID, r.created, nil
}

func newTestIngestor(t *testing.T) (*Ingestor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	return NewIngestor(store, nil, &stubResolver{userID: 42}, nil), mock
}

func inboundFixture() *postmark.InboundPayload {
	return &postmark.InboundPayload{
		From:      "alice@example.com",
		FromFull:  postmark.Address{Email: "alice@example.com", Name: "Alice"},
		ToFull:    []postmark.Address{{Email: "inbox@inboxintel.dev"}},
		Subject:   "Quarterly review",
		TextBody:  "Let's meet Tuesday.",
		MessageID: "<msg-1@example.com>",
		Date:      "Mon, 2 Jan 2006 15:04:05 -0700",
		Headers: []postmark.HeaderData{
			{Name: "Message-ID", Value: "<msg-1@example.com>"},
		},
	}
}

func duplicateEmailRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
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
		"alice@example.com", "Alice", "Quarterly review", "Let's meet Tuesday.", nil,
		nil, now, now, nil,
		nil, nil, nil, nil, string(SpamUnknown),
		string(ActionablesProcessed), nil, nil,
	)
}

func TestIngestDuplicateShortCircuits(t *testing.T) {
	ing, mock := newTestIngestor(t)

	mock.ExpectQuery("INSERT INTO emails_raw").
		WillReturnRows(sqlmock.NewRows([]string{"id", "received_at"}).AddRow(7, time.Now()))
	mock.ExpectQuery("SELECT (.+) FROM emails WHERE message_id").
		WillReturnRows(duplicateEmailRow())

	result, err := ing.Ingest(context.Background(), []byte(`{}`), inboundFixture())
	require.NoError(t, err)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, int64(7), result.RawEmailID)
	assert.Equal(t, int64(101), result.Email.ID)
	// No transaction, no inserts, no raw status update: the raw record
	// stays PENDING and nothing else is written.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestValidationError(t *testing.T) {
	ing, mock := newTestIngestor(t)

	payload := inboundFixture()
	payload.MessageID = ""

	_, err := ing.Ingest(context.Background(), []byte(`{}`), payload)
	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestFailureMarksRawFailed(t *testing.T) {
	ing, mock := newTestIngestor(t)

	mock.ExpectQuery("INSERT INTO emails_raw").
		WillReturnRows(sqlmock.NewRows([]string{"id", "received_at"}).AddRow(9, time.Now()))
	mock.ExpectQuery("SELECT (.+) FROM emails WHERE message_id").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectExec("UPDATE emails_raw SET processing_status").
		WithArgs(string(ProcessingFailed), sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := ing.Ingest(context.Background(), []byte(`{}`), inboundFixture())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
