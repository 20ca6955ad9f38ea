package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxly/inbox-intel/internal/email"
)

func TestThreadTextSingleMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sent := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM emails WHERE id =").
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
			5, 42, 1, nil, 0,
			"<m@x>", nil, "<m@x>",
			nil, nil,
			"alice@example.com", "Alice", "Lunch plans", "Tuesday at noon?", nil,
			nil, sent, sent, nil,
			nil, nil, nil, nil, "unknown",
			"processing", nil, nil,
		))

	text, err := ThreadText(context.Background(), email.NewStore(db), 5)
	require.NoError(t, err)

	assert.Contains(t, text, "Thread Subject: Lunch plans\n\n")
	assert.Contains(t, text, "Message 1:\n")
	assert.Contains(t, text, "From: Alice <alice@example.com>\n")
	assert.Contains(t, text, "Subject: Lunch plans\n")
	assert.Contains(t, text, "Sent: 2026-08-20T09:30:00Z\n")
	assert.Contains(t, text, "Body: Tuesday at noon?...")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadTextTruncatesLongBody(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	long := make([]byte, 2500)
	for i := range long {
		long[i] = 'a'
	}
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM emails WHERE id =").
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
			6, 42, 1, nil, 0,
			"<m2@x>", nil, "<m2@x>",
			nil, nil,
			"bob@example.com", nil, "Wall of text", string(long), nil,
			nil, now, now, nil,
			nil, nil, nil, nil, "unknown",
			"processing", nil, nil,
		))

	text, err := ThreadText(context.Background(), email.NewStore(db), 6)
	require.NoError(t, err)

	// Body capped at 1000 characters plus the ellipsis.
	assert.Contains(t, text, "Body: "+string(long[:1000])+"...")
	assert.NotContains(t, text, string(long[:1001]))
}
