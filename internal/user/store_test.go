package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
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

func existingUserRow(id int64, email, mailboxHash, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "mailbox_hash", "api_key", "api_key_created_at",
		"failed_auth_attempts", "last_failed_auth_at", "first_login_at",
		"last_successful_auth_at", "account_locked_until",
		"is_active", "created_at", "updated_at",
	}).AddRow(
		id, name, email, mailboxHash, nil, nil,
		0, nil, nil,
		nil, nil,
		true, now, now,
	)
}

func TestGetOrCreateExisting(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email =").
		WithArgs("alice@example.com").
		WillReturnRows(existingUserRow(42, "alice@example.com", "hash1", "alice"))

	u, created, err := s.GetOrCreate(context.Background(), "Alice@Example.COM ", "hash1", "alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(42), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateUpdatesDriftedFields(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email =").
		WillReturnRows(existingUserRow(42, "alice@example.com", "old-hash", "alice"))
	mock.ExpectExec("UPDATE users SET mailbox_hash").
		WithArgs("new-hash", "alice", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u, created, err := s.GetOrCreate(context.Background(), "alice@example.com", "new-hash", "alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "new-hash", u.MailboxHash.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateNew(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email =").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("bob@example.com", "bob", "bob-hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(43, now, now))

	u, created, err := s.GetOrCreate(context.Background(), "bob@example.com", "bob-hash", "bob")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(43), u.ID)
	assert.True(t, u.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateLosesInsertRace(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email =").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email =").
		WillReturnRows(existingUserRow(44, "carol@example.com", "", "carol"))

	u, created, err := s.GetOrCreate(context.Background(), "carol@example.com", "", "carol")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(44), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateRequiresEmail(t *testing.T) {
	s, mock := newTestStore(t)
	_, _, err := s.GetOrCreate(context.Background(), "  ", "", "x")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
