package extraction

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxly/inbox-intel/internal/actionable"
	"github.com/inboxly/inbox-intel/internal/email"
)

// fakeInvoker routes on the system prompt so each agent can be scripted
// independently.
type fakeInvoker struct {
	calendar func() (string, error)
	notes    func() (string, error)
	shopping func() (string, error)
}

func (f *fakeInvoker) Invoke(_ context.Context, system, _ string) (string, error) {
	switch {
	case strings.Contains(system, "calendar-related"):
		return f.calendar()
	case strings.Contains(system, "creates notes"):
		return f.notes()
	case strings.Contains(system, "shopping-related"):
		return f.shopping()
	}
	return "", errors.New("unrecognized system prompt")
}

func okJSON() (string, error) { return "{}", nil }

func newTestPipeline(t *testing.T, llm *fakeInvoker) (*Pipeline, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPipeline(email.NewStore(db), actionable.NewStore(db), llm), mock
}

func expectEmailRow(mock sqlmock.Sqlmock) {
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
			5, 42, 1, nil, 0,
			"<m@x>", nil, "<m@x>",
			nil, nil,
			"alice@example.com", "Alice", "Lunch", "Tuesday at noon?", nil,
			nil, now, now, nil,
			nil, nil, nil, nil, "unknown",
			"processing", nil, nil,
		))
}

func expectStatus(mock sqlmock.Sqlmock, status email.ActionablesStatus) {
	mock.ExpectExec("UPDATE emails").
		WithArgs(string(status), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestProcessDetachedSuccess(t *testing.T) {
	p, mock := newTestPipeline(t, &fakeInvoker{
		calendar: okJSON, notes: okJSON, shopping: okJSON,
	})

	expectStatus(mock, email.ActionablesProcessing)
	expectEmailRow(mock)
	expectStatus(mock, email.ActionablesProcessed)

	p.ProcessDetached(context.Background(), 5)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// argContains matches any driver value whose string form contains the
// substring.
type argContains string

func (a argContains) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.Contains(s, string(a))
}

func TestProcessDetachedPartialFailure(t *testing.T) {
	p, mock := newTestPipeline(t, &fakeInvoker{
		calendar: func() (string, error) { return "", errors.New("model timeout") },
		notes:    okJSON,
		shopping: okJSON,
	})

	expectStatus(mock, email.ActionablesProcessing)
	expectEmailRow(mock)
	mock.ExpectExec("UPDATE emails").
		WithArgs(string(email.ActionablesFailed), sqlmock.AnyArg(),
			argContains("Calendar: model timeout"), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p.ProcessDetached(context.Background(), 5)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDetachedAgentPanicBecomesFailure(t *testing.T) {
	p, mock := newTestPipeline(t, &fakeInvoker{
		calendar: func() (string, error) { panic("boom") },
		notes:    okJSON,
		shopping: okJSON,
	})

	expectStatus(mock, email.ActionablesProcessing)
	expectEmailRow(mock)
	expectStatus(mock, email.ActionablesFailed)

	// Must not propagate the panic and must land on FAILED.
	p.ProcessDetached(context.Background(), 5)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDetachedMissingEmail(t *testing.T) {
	p, mock := newTestPipeline(t, &fakeInvoker{
		calendar: okJSON, notes: okJSON, shopping: okJSON,
	})

	expectStatus(mock, email.ActionablesProcessing)
	mock.ExpectQuery("SELECT (.+) FROM emails WHERE id =").
		WillReturnError(errors.New("connection reset"))
	expectStatus(mock, email.ActionablesFailed)

	p.ProcessDetached(context.Background(), 5)
	assert.NoError(t, mock.ExpectationsWereMet())
}
