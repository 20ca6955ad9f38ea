package actionable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestCreateEventWithAttendees(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO calendar_events").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(11, now, now))
	mock.ExpectQuery("INSERT INTO event_attendees").
		WithArgs(int64(11), "bob@example.com", sqlmock.AnyArg(), false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO event_attendees").
		WithArgs(int64(11), "alice@example.com", sqlmock.AnyArg(), true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	ev := &Event{
		EmailID:   5,
		Title:     "Quarterly review",
		StartTime: now,
		EndTime:   now.Add(time.Hour),
		Status:    EventConfirmed,
		Priority:  PriorityHigh,
		Attendees: []Attendee{
			{Email: "bob@example.com"},
			{Email: "alice@example.com", IsOrganizer: true},
		},
	}
	require.NoError(t, s.CreateEvent(context.Background(), ev))

	assert.Equal(t, int64(11), ev.ID)
	assert.Equal(t, int64(11), ev.Attendees[0].EventID)
	assert.Equal(t, int64(2), ev.Attendees[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEventRollsBackOnAttendeeFailure(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO calendar_events").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(11, now, now))
	mock.ExpectQuery("INSERT INTO event_attendees").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	ev := &Event{
		EmailID:   5,
		Title:     "Quarterly review",
		StartTime: now,
		EndTime:   now.Add(time.Hour),
		Status:    EventConfirmed,
		Priority:  PriorityMedium,
		Attendees: []Attendee{{Email: "bob@example.com"}},
	}
	assert.Error(t, s.CreateEvent(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNote(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO email_notes").
		WithArgs(int64(5), "call the plumber", "personal", string(PriorityLow)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(3, now, now))

	n := &Note{EmailID: 5, Note: "call the plumber", Category: "personal", Priority: PriorityLow}
	require.NoError(t, s.CreateNote(context.Background(), n))
	assert.Equal(t, int64(3), n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeFilters(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	from, args := scopeFilters("email_reminders", "reminder_time", 42, ListRequest{})
	assert.Equal(t, " FROM email_reminders a JOIN emails e ON e.id = a.email_id WHERE e.user_id = $1", from)
	assert.Equal(t, []any{int64(42)}, args)

	from, args = scopeFilters("calendar_events", "start_time", 42, ListRequest{
		EmailID:   7,
		ThreadID:  3,
		StartDate: base,
		EndDate:   base.AddDate(0, 1, 0),
	})
	assert.Contains(t, from, "e.user_id = $1")
	assert.Contains(t, from, "a.email_id = $2")
	assert.Contains(t, from, "e.thread_id = $3")
	assert.Contains(t, from, "a.start_time >= $4")
	assert.Contains(t, from, "a.start_time <= $5")
	assert.Len(t, args, 5)
}

func TestValidPriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ValidPriority("high", PriorityMedium))
	assert.Equal(t, PriorityHigh, ValidPriority("HIGH", PriorityMedium))
	assert.Equal(t, PriorityMedium, ValidPriority("urgent", PriorityMedium))
	assert.Equal(t, PriorityLow, ValidPriority("", PriorityLow))
}
