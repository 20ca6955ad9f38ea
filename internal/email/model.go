package email

import (
	"database/sql"
	"time"
)

// RecipientType classifies an envelope address row.
type RecipientType string

const (
	RecipientFrom RecipientType = "from"
	RecipientTo   RecipientType = "to"
	RecipientCc   RecipientType = "cc"
	RecipientBcc  RecipientType = "bcc"
)

// ProcessingStatus tracks the lifecycle of a raw webhook capture.
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingProcessed ProcessingStatus = "processed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// ActionablesStatus tracks the extraction state machine per email.
// PENDING -> PROCESSING -> PROCESSED | FAILED. No transition is defined
// out of the terminal states.
type ActionablesStatus string

const (
	ActionablesPending    ActionablesStatus = "pending"
	ActionablesProcessing ActionablesStatus = "processing"
	ActionablesProcessed  ActionablesStatus = "processed"
	ActionablesFailed     ActionablesStatus = "failed"
)

// SpamStatus is the verdict parsed from spam headers.
type SpamStatus string

const (
	SpamYes     SpamStatus = "yes"
	SpamNo      SpamStatus = "no"
	SpamUnknown SpamStatus = "unknown"
)

// RawEmail is the immutable capture of an inbound webhook payload.
// Only the status and error fields are ever mutated.
type RawEmail struct {
	ID               int64            `json:"id"`
	ReceivedAt       time.Time        `json:"received_at"`
	RawJSON          string           `json:"-"` // base64-encoded payload
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	ErrorMessage     sql.NullString   `json:"error_message,omitempty"`
	MailboxHash      string           `json:"mailbox_hash,omitempty"`
}

// Email is the canonical structured record built from a webhook payload.
type Email struct {
	ID             int64         `json:"id"`
	UserID         int64         `json:"user_id"`
	RawEmailID     int64         `json:"raw_email_id"`
	ThreadID       sql.NullInt64 `json:"thread_id,omitempty"`
	ThreadPosition int           `json:"thread_position"`

	MessageID     string         `json:"message_id"`
	MessageStream sql.NullString `json:"message_stream,omitempty"`

	// EmailIdentifier is the cross-provider stable identifier derived
	// from headers; unique together with MessageID, which makes the
	// pair the sole defense against duplicate ingestion.
	EmailIdentifier       string         `json:"email_identifier"`
	ParentEmailIdentifier sql.NullString `json:"parent_email_identifier,omitempty"`
	ParentEmailID         sql.NullInt64  `json:"parent_email_id,omitempty"`

	FromEmail         string         `json:"from_email"`
	FromName          sql.NullString `json:"from_name,omitempty"`
	Subject           sql.NullString `json:"subject,omitempty"`
	TextBody          sql.NullString `json:"text_body,omitempty"`
	HTMLBody          sql.NullString `json:"html_body,omitempty"`
	StrippedTextReply sql.NullString `json:"stripped_text_reply,omitempty"`

	SentAt      sql.NullTime `json:"sent_at,omitempty"`
	ProcessedAt time.Time    `json:"processed_at"`

	MailboxHash       sql.NullString `json:"mailbox_hash,omitempty"`
	Tag               sql.NullString `json:"tag,omitempty"`
	OriginalRecipient sql.NullString `json:"original_recipient,omitempty"`
	ReplyTo           sql.NullString `json:"reply_to,omitempty"`

	SpamScore  sql.NullFloat64 `json:"spam_score,omitempty"`
	SpamStatus SpamStatus      `json:"spam_status"`

	ActionablesStatus       ActionablesStatus `json:"actionables_processing_status"`
	ActionablesProcessedAt  sql.NullTime      `json:"actionables_processed_at,omitempty"`
	ActionablesErrorMessage sql.NullString    `json:"actionables_error_message,omitempty"`

	Recipients  []Recipient  `json:"recipients,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Headers     []Header     `json:"headers,omitempty"`
}

// Thread groups emails sharing a deterministic subject+participant key.
type Thread struct {
	ID            int64          `json:"id"`
	ThreadKey     string         `json:"thread_id"`
	Subject       sql.NullString `json:"subject,omitempty"`
	ThreadSummary sql.NullString `json:"thread_summary,omitempty"`
	EmailCount    int            `json:"email_count"`
	FirstEmailID  sql.NullInt64  `json:"first_email_id,omitempty"`
	LastEmailID   sql.NullInt64  `json:"last_email_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	Emails       []Email  `json:"emails,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// Recipient is a child envelope address row of an Email.
type Recipient struct {
	ID           int64          `json:"id"`
	EmailID      int64          `json:"email_id"`
	Type         RecipientType  `json:"recipient_type"`
	EmailAddress string         `json:"email_address"`
	Name         sql.NullString `json:"name,omitempty"`
	MailboxHash  sql.NullString `json:"mailbox_hash,omitempty"`
}

// Attachment is a stored attachment row of an Email. The bytes live on
// disk or in S3; FileURL is the retrievable path.
type Attachment struct {
	ID            int64          `json:"id"`
	EmailID       int64          `json:"email_id"`
	Filename      string         `json:"filename"`
	ContentType   string         `json:"content_type"`
	ContentLength int            `json:"content_length"`
	ContentID     sql.NullString `json:"content_id,omitempty"`
	FilePath      string         `json:"-"`
	FileURL       sql.NullString `json:"file_url,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Header is a raw header row of an Email, preserved in payload order.
type Header struct {
	ID      int64          `json:"id"`
	EmailID int64          `json:"email_id"`
	Name    string         `json:"name"`
	Value   sql.NullString `json:"value,omitempty"`
}
