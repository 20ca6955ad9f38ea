// Package user manages mailbox owners: webhook auto-provisioning,
// API key issuance and verification, and auth lockout bookkeeping.
package user

import (
	"database/sql"
	"time"
)

// User is a mailbox owner. Users are provisioned automatically the
// first time their address appears on an inbound webhook.
type User struct {
	ID          int64          `json:"id"`
	Name        sql.NullString `json:"name,omitempty"`
	Email       string         `json:"email"`
	MailboxHash sql.NullString `json:"mailbox_hash,omitempty"`

	APIKey          sql.NullString `json:"-"`
	APIKeyCreatedAt sql.NullTime   `json:"api_key_created_at,omitempty"`

	FailedAuthAttempts   int          `json:"-"`
	LastFailedAuthAt     sql.NullTime `json:"-"`
	FirstLoginAt         sql.NullTime `json:"first_login_at,omitempty"`
	LastSuccessfulAuthAt sql.NullTime `json:"last_successful_auth_at,omitempty"`
	AccountLockedUntil   sql.NullTime `json:"-"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Locked reports whether the account is currently locked out.
func (u *User) Locked(now time.Time) bool {
	return u.AccountLockedUntil.Valid && now.Before(u.AccountLockedUntil.Time)
}

// SentEmailStatus tracks an outbound notification attempt.
type SentEmailStatus string

const (
	SentStatusSent   SentEmailStatus = "sent"
	SentStatusFailed SentEmailStatus = "failed"
)

// SentEmail is the audit record of one outbound notification.
type SentEmail struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	FromEmail       string          `json:"from_email"`
	ToEmail         string          `json:"to_email"`
	Status          SentEmailStatus `json:"status"`
	MessageID       sql.NullString  `json:"message_id,omitempty"`
	ErrorCode       sql.NullInt64   `json:"error_code,omitempty"`
	Message         sql.NullString  `json:"message,omitempty"`
	SubmittedAt     sql.NullTime    `json:"submitted_at,omitempty"`
	IsSilentFailure bool            `json:"is_silent_failure"`
	CreatedAt       time.Time       `json:"created_at"`
}
