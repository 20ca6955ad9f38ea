package email

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so that store methods
// can run standalone or inside the ingestion transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides database operations for emails, threads, and their
// child rows.
type Store struct {
	db *sql.DB
}

// NewStore creates an email store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for transaction control.
func (s *Store) DB() *sql.DB { return s.db }

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// SaveRawEmail persists the opaque webhook capture with status PENDING.
// This always runs outside the main ingestion transaction so the audit
// record survives a failed structured save.
func (s *Store) SaveRawEmail(ctx context.Context, rawJSON, mailboxHash string) (*RawEmail, error) {
	raw := &RawEmail{
		RawJSON:          rawJSON,
		ProcessingStatus: ProcessingPending,
		MailboxHash:      mailboxHash,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO emails_raw (raw_json, processing_status, mailbox_hash)
		VALUES ($1, $2, $3)
		RETURNING id, received_at`,
		rawJSON, ProcessingPending, mailboxHash,
	).Scan(&raw.ID, &raw.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("save raw email: %w", err)
	}
	logger.Info("raw email saved", "raw_email_id", raw.ID)
	return raw, nil
}

// MarkRawProcessed flips the raw record to PROCESSED inside the
// caller's transaction.
func (s *Store) MarkRawProcessed(ctx context.Context, q dbtx, rawID int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE emails_raw SET processing_status = $1, error_message = NULL WHERE id = $2`,
		ProcessingProcessed, rawID)
	if err != nil {
		return fmt.Errorf("mark raw processed: %w", err)
	}
	return nil
}

// MarkRawFailed records the failure on the raw row in its own statement
// against the pool, so the bookkeeping commits even when the main
// transaction rolled back.
func (s *Store) MarkRawFailed(ctx context.Context, rawID int64, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE emails_raw SET processing_status = $1, error_message = $2 WHERE id = $3`,
		ProcessingFailed, errMsg, rawID)
	if err != nil {
		return fmt.Errorf("mark raw failed: %w", err)
	}
	return nil
}

// FindDuplicate returns the existing email matching either the provider
// message id or the derived identifier, or nil. This is the whole
// duplicate-ingestion defense: provider retries share message_id,
// cross-provider duplicate delivery shares the derived identifier.
func (s *Store) FindDuplicate(ctx context.Context, messageID, emailIdentifier string) (*Email, error) {
	em, err := s.scanEmailRow(s.db.QueryRowContext(ctx,
		selectEmailColumns+` FROM emails WHERE message_id = $1 OR email_identifier = $2 LIMIT 1`,
		messageID, emailIdentifier))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	logger.Warn("duplicate email detected",
		"message_id", messageID, "email_identifier", emailIdentifier, "existing_id", em.ID)
	return em, nil
}

// FindParentEmailID resolves a parent identifier to an email id, or 0.
func (s *Store) FindParentEmailID(ctx context.Context, q dbtx, parentIdentifier string) (int64, error) {
	if parentIdentifier == "" {
		return 0, nil
	}
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM emails WHERE email_identifier = $1`, parentIdentifier,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find parent email: %w", err)
	}
	return id, nil
}

// InsertEmail writes the structured email row and fills in its id.
func (s *Store) InsertEmail(ctx context.Context, q dbtx, em *Email) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO emails (
			user_id, raw_email_id, message_id, message_stream,
			email_identifier, parent_email_identifier, parent_email_id,
			from_email, from_name, subject, text_body, html_body,
			stripped_text_reply, sent_at, mailbox_hash, tag,
			original_recipient, reply_to, spam_score, spam_status,
			actionables_processing_status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING id, processed_at`,
		em.UserID, em.RawEmailID, em.MessageID, em.MessageStream,
		em.EmailIdentifier, em.ParentEmailIdentifier, em.ParentEmailID,
		em.FromEmail, em.FromName, em.Subject, em.TextBody, em.HTMLBody,
		em.StrippedTextReply, em.SentAt, em.MailboxHash, em.Tag,
		em.OriginalRecipient, em.ReplyTo, em.SpamScore, em.SpamStatus,
		ActionablesPending,
	).Scan(&em.ID, &em.ProcessedAt)
	if err != nil {
		return fmt.Errorf("insert email: %w", err)
	}
	em.ActionablesStatus = ActionablesPending
	return nil
}

// InsertRecipients writes all recipient rows for an email.
func (s *Store) InsertRecipients(ctx context.Context, q dbtx, recipients []Recipient) error {
	for i := range recipients {
		r := &recipients[i]
		err := q.QueryRowContext(ctx, `
			INSERT INTO email_recipients (email_id, recipient_type, email_address, name, mailbox_hash)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			r.EmailID, r.Type, r.EmailAddress, r.Name, r.MailboxHash,
		).Scan(&r.ID)
		if err != nil {
			return fmt.Errorf("insert recipient: %w", err)
		}
	}
	return nil
}

// InsertHeaders writes all header rows for an email in payload order.
func (s *Store) InsertHeaders(ctx context.Context, q dbtx, emailID int64, headers []HeaderPair) error {
	for _, h := range headers {
		_, err := q.ExecContext(ctx,
			`INSERT INTO email_headers (email_id, name, value) VALUES ($1, $2, $3)`,
			emailID, h.Name, nullString(h.Value))
		if err != nil {
			return fmt.Errorf("insert header %q: %w", h.Name, err)
		}
	}
	return nil
}

// InsertAttachment writes a single attachment row.
func (s *Store) InsertAttachment(ctx context.Context, q dbtx, a *Attachment) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO email_attachments
			(email_id, filename, content_type, content_length, content_id, file_path, file_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		a.EmailID, a.Filename, a.ContentType, a.ContentLength, a.ContentID, a.FilePath, a.FileURL,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attachment %q: %w", a.Filename, err)
	}
	return nil
}

// UpdateActionablesStatus drives the extraction state machine. The
// processed timestamp is only set on the PROCESSED transition; the
// error message only on FAILED.
func (s *Store) UpdateActionablesStatus(ctx context.Context, emailID int64, status ActionablesStatus, errMsg string) error {
	var processedAt sql.NullTime
	if status == ActionablesProcessed {
		processedAt = nullTime(time.Now().UTC())
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE emails
		SET actionables_processing_status = $1,
		    actionables_processed_at = $2,
		    actionables_error_message = $3
		WHERE id = $4`,
		status, processedAt, nullString(errMsg), emailID)
	if err != nil {
		return fmt.Errorf("update actionables status: %w", err)
	}
	logger.Info("actionables status updated", "email_id", emailID, "status", string(status))
	return nil
}

const selectEmailColumns = `
	SELECT id, user_id, raw_email_id, thread_id, thread_position,
	       message_id, message_stream, email_identifier,
	       parent_email_identifier, parent_email_id,
	       from_email, from_name, subject, text_body, html_body,
	       stripped_text_reply, sent_at, processed_at, mailbox_hash,
	       tag, original_recipient, reply_to, spam_score, spam_status,
	       actionables_processing_status, actionables_processed_at,
	       actionables_error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanEmailRow(row rowScanner) (*Email, error) {
	em := &Email{}
	err := row.Scan(
		&em.ID, &em.UserID, &em.RawEmailID, &em.ThreadID, &em.ThreadPosition,
		&em.MessageID, &em.MessageStream, &em.EmailIdentifier,
		&em.ParentEmailIdentifier, &em.ParentEmailID,
		&em.FromEmail, &em.FromName, &em.Subject, &em.TextBody, &em.HTMLBody,
		&em.StrippedTextReply, &em.SentAt, &em.ProcessedAt, &em.MailboxHash,
		&em.Tag, &em.OriginalRecipient, &em.ReplyTo, &em.SpamScore, &em.SpamStatus,
		&em.ActionablesStatus, &em.ActionablesProcessedAt, &em.ActionablesErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return em, nil
}
