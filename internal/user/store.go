package user

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// Store provides database operations for users and the outbound send
// audit log.
type Store struct {
	db *sql.DB
}

// NewStore creates a user store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectUserColumns = `
	SELECT id, name, email, mailbox_hash, api_key, api_key_created_at,
	       failed_auth_attempts, last_failed_auth_at, first_login_at,
	       last_successful_auth_at, account_locked_until,
	       is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.MailboxHash,
		&u.APIKey, &u.APIKeyCreatedAt,
		&u.FailedAuthAttempts, &u.LastFailedAuthAt, &u.FirstLoginAt,
		&u.LastSuccessfulAuthAt, &u.AccountLockedUntil,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID loads a user by primary key, or nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		selectUserColumns+` FROM users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetByEmail loads a user by normalized address, or nil.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		selectUserColumns+` FROM users WHERE email = $1`, normalizeEmail(email)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetOrCreate finds the user by address, updating name/mailbox hash if
// they drifted, or creates a new row. Concurrent creation of the same
// address resolves through the unique constraint.
func (s *Store) GetOrCreate(ctx context.Context, email, mailboxHash, name string) (*User, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, false, fmt.Errorf("email address is required")
	}

	existing, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.MailboxHash.String != mailboxHash || existing.Name.String != name {
			_, err := s.db.ExecContext(ctx,
				`UPDATE users SET mailbox_hash = $1, name = $2, updated_at = NOW() WHERE id = $3`,
				nullStr(mailboxHash), nullStr(name), existing.ID)
			if err != nil {
				return nil, false, fmt.Errorf("update user: %w", err)
			}
			existing.MailboxHash = nullStr(mailboxHash)
			existing.Name = nullStr(name)
		}
		return existing, false, nil
	}

	u := &User{Email: email, Name: nullStr(name), MailboxHash: nullStr(mailboxHash), IsActive: true}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, mailbox_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		email, u.Name, u.MailboxHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			raced, ferr := s.GetByEmail(ctx, email)
			if ferr == nil && raced != nil {
				return raced, false, nil
			}
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	logger.Info("user created", "user_id", u.ID, "email", u.Email)
	return u, true, nil
}

func nullStr(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// SetAPIKey stores a freshly issued key.
func (s *Store) SetAPIKey(ctx context.Context, userID int64, apiKey string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET api_key = $1, api_key_created_at = NOW(), updated_at = NOW()
		WHERE id = $2`, apiKey, userID)
	if err != nil {
		return fmt.Errorf("set api key: %w", err)
	}
	return nil
}

// RecordAuthSuccess clears failure counters and stamps the login
// timestamps. The first successful auth also sets first_login_at.
func (s *Store) RecordAuthSuccess(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET failed_auth_attempts = 0,
		    account_locked_until = NULL,
		    last_successful_auth_at = NOW(),
		    first_login_at = COALESCE(first_login_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("record auth success: %w", err)
	}
	return nil
}

// RecordAuthFailure bumps the counter and locks the account once the
// threshold is reached. Returns whether the account is now locked.
func (s *Store) RecordAuthFailure(ctx context.Context, userID int64, threshold int, lockout time.Duration) (bool, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET failed_auth_attempts = failed_auth_attempts + 1,
		    last_failed_auth_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_auth_attempts`, userID,
	).Scan(&attempts)
	if err != nil {
		return false, fmt.Errorf("record auth failure: %w", err)
	}

	if threshold > 0 && attempts >= threshold {
		until := time.Now().UTC().Add(lockout)
		_, err := s.db.ExecContext(ctx,
			`UPDATE users SET account_locked_until = $1, updated_at = NOW() WHERE id = $2`,
			until, userID)
		if err != nil {
			return false, fmt.Errorf("lock account: %w", err)
		}
		logger.Security("account locked after repeated auth failures",
			"user_id", userID, "attempts", attempts, "locked_until", until.Format(time.RFC3339))
		return true, nil
	}
	return false, nil
}

// LogSentEmail records an outbound notification attempt. Logging
// failures are swallowed: the audit row is best-effort.
func (s *Store) LogSentEmail(ctx context.Context, rec *SentEmail) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sent_emails
			(user_id, from_email, to_email, status, message_id, error_code,
			 message, submitted_at, is_silent_failure)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.UserID, rec.FromEmail, rec.ToEmail, rec.Status, rec.MessageID,
		rec.ErrorCode, rec.Message, rec.SubmittedAt, rec.IsSilentFailure)
	if err != nil {
		logger.Error("failed to log sent email",
			"user_id", rec.UserID, "recipient", rec.ToEmail, "error", err.Error())
	}
}
