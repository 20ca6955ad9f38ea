package email

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/inboxly/inbox-intel/internal/pkg/logger"
	"github.com/inboxly/inbox-intel/internal/postmark"
	"github.com/inboxly/inbox-intel/internal/storage"
)

// UserResolver finds or provisions the mailbox owner for an inbound
// webhook. The boolean reports whether the user was just created.
type UserResolver interface {
	ResolveWebhookUser(ctx context.Context, emailAddr, mailboxHash string) (userID int64, created bool, err error)
}

// DedupFilter is an optional fast-path cache of recently seen
// identifiers. The database unique constraints stay authoritative; the
// filter only short-circuits the common retry storm.
type DedupFilter interface {
	Seen(ctx context.Context, id string) (bool, error)
	Remember(ctx context.Context, ids ...string) error
}

// IngestResult is what the webhook handler reports back.
type IngestResult struct {
	Email            *Email
	RawEmailID       int64
	IsDuplicate      bool
	UserCreated      bool
	UserID           int64
	AttachmentsCount int
}

// Ingestor runs the webhook ingestion pipeline: raw capture, duplicate
// detection, structured persistence, thread assignment.
type Ingestor struct {
	store *Store
	blobs storage.BlobStore
	users UserResolver
	dedup DedupFilter
}

// NewIngestor wires the pipeline. dedup may be nil.
func NewIngestor(store *Store, blobs storage.BlobStore, users UserResolver, dedup DedupFilter) *Ingestor {
	return &Ingestor{store: store, blobs: blobs, users: users, dedup: dedup}
}

// Ingest processes one inbound webhook. rawBody is the original request
// body; it is captured verbatim (base64) before any interpretation so a
// failed structured save still leaves an audit record.
//
// All structured writes ride one transaction. On failure the raw row is
// marked FAILED in a separate statement that survives the rollback.
func (in *Ingestor) Ingest(ctx context.Context, rawBody []byte, payload *postmark.InboundPayload) (*IngestResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	recipientAddr := payload.OriginalRecipient
	if recipientAddr == "" && len(payload.ToFull) > 0 {
		recipientAddr = payload.ToFull[0].Email
	}
	userID, userCreated, err := in.users.ResolveWebhookUser(ctx, recipientAddr, payload.MailboxHash)
	if err != nil {
		return nil, fmt.Errorf("resolve webhook user: %w", err)
	}

	raw, err := in.store.SaveRawEmail(ctx,
		base64.StdEncoding.EncodeToString(rawBody), payload.MailboxHash)
	if err != nil {
		return nil, err
	}

	result, err := in.processStructured(ctx, raw, payload, userID)
	if err != nil {
		if markErr := in.store.MarkRawFailed(ctx, raw.ID, err.Error()); markErr != nil {
			logger.Error("failed to mark raw email failed",
				"raw_email_id", raw.ID, "error", markErr.Error())
		}
		return nil, err
	}
	result.UserID = userID
	result.UserCreated = userCreated
	return result, nil
}

func (in *Ingestor) processStructured(ctx context.Context, raw *RawEmail, payload *postmark.InboundPayload, userID int64) (*IngestResult, error) {
	headers := make([]HeaderPair, 0, len(payload.Headers))
	for _, h := range payload.Headers {
		headers = append(headers, HeaderPair{Name: h.Name, Value: h.Value})
	}

	emailIdentifier := ExtractIdentifier(headers)
	parentIdentifier := ExtractParentIdentifier(headers)
	spamScore, hasSpamScore, spamStatus := ParseSpamHeaders(headers)

	if in.dedup != nil {
		for _, id := range []string{payload.MessageID, emailIdentifier} {
			seen, derr := in.dedup.Seen(ctx, id)
			if derr != nil {
				logger.Warn("dedup filter unavailable", "error", derr.Error())
				break
			}
			if seen {
				logger.Debug("dedup fast-path hit", "identifier", id)
				break
			}
		}
	}

	existing, err := in.store.FindDuplicate(ctx, payload.MessageID, emailIdentifier)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &IngestResult{
			Email:            existing,
			RawEmailID:       raw.ID,
			IsDuplicate:      true,
			AttachmentsCount: len(payload.Attachments),
		}, nil
	}

	tx, err := in.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer tx.Rollback()

	parentEmailID, err := in.store.FindParentEmailID(ctx, tx, parentIdentifier)
	if err != nil {
		return nil, err
	}

	em := &Email{
		UserID:                userID,
		RawEmailID:            raw.ID,
		MessageID:             payload.MessageID,
		MessageStream:         nullString(payload.MessageStream),
		EmailIdentifier:       emailIdentifier,
		ParentEmailIdentifier: nullString(parentIdentifier),
		FromEmail:             payload.SenderEmail(),
		FromName:              nullString(payload.SenderName()),
		Subject:               nullString(payload.Subject),
		TextBody:              nullString(payload.TextBody),
		HTMLBody:              nullString(payload.HtmlBody),
		StrippedTextReply:     nullString(payload.StrippedTextReply),
		SentAt:                nullTime(payload.SentAt()),
		MailboxHash:           nullString(payload.MailboxHash),
		Tag:                   nullString(payload.Tag),
		OriginalRecipient:     nullString(payload.OriginalRecipient),
		ReplyTo:               nullString(payload.ReplyTo),
		SpamStatus:            spamStatus,
	}
	if hasSpamScore {
		em.SpamScore = sql.NullFloat64{Float64: spamScore, Valid: true}
	}
	if parentEmailID != 0 {
		em.ParentEmailID = sql.NullInt64{Int64: parentEmailID, Valid: true}
	}

	if err := in.store.InsertEmail(ctx, tx, em); err != nil {
		return nil, err
	}

	recipients := buildRecipients(em.ID, payload)
	if err := in.store.InsertRecipients(ctx, tx, recipients); err != nil {
		return nil, err
	}
	em.Recipients = recipients

	// Thread assignment failures leave the email unthreaded rather
	// than rejecting the webhook.
	if err := in.assignToThread(ctx, tx, em, payload); err != nil {
		logger.Error("failed to assign email to thread",
			"email_id", em.ID, "error", err.Error())
	}

	saved, err := in.store.SaveAttachments(ctx, tx, in.blobs, em.ID, payload.Attachments)
	if err != nil {
		return nil, err
	}
	em.Attachments = saved

	if err := in.store.InsertHeaders(ctx, tx, em.ID, headers); err != nil {
		return nil, err
	}

	if err := in.store.MarkRawProcessed(ctx, tx, raw.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ingest tx: %w", err)
	}

	if in.dedup != nil {
		if err := in.dedup.Remember(ctx, payload.MessageID, emailIdentifier); err != nil {
			logger.Warn("dedup filter remember failed", "error", err.Error())
		}
	}

	logger.Info("email ingested",
		"email_id", em.ID, "user_id", userID,
		"message_id", em.MessageID, "attachments", len(saved))
	return &IngestResult{
		Email:            em,
		RawEmailID:       raw.ID,
		AttachmentsCount: len(payload.Attachments),
	}, nil
}

func (in *Ingestor) assignToThread(ctx context.Context, tx *sql.Tx, em *Email, payload *postmark.InboundPayload) error {
	thread, err := in.store.CreateOrGetThread(ctx, tx,
		payload.Subject, payload.Participants(), threadSummary(payload))
	if err != nil {
		return err
	}
	return in.store.AddEmailToThread(ctx, tx, em, thread)
}

func buildRecipients(emailID int64, payload *postmark.InboundPayload) []Recipient {
	recipients := []Recipient{{
		EmailID:      emailID,
		Type:         RecipientFrom,
		EmailAddress: payload.SenderEmail(),
		Name:         nullString(payload.FromFull.Name),
		MailboxHash:  nullString(payload.FromFull.MailboxHash),
	}}
	add := func(t RecipientType, addrs []postmark.Address) {
		for _, a := range addrs {
			recipients = append(recipients, Recipient{
				EmailID:      emailID,
				Type:         t,
				EmailAddress: a.Email,
				Name:         nullString(a.Name),
				MailboxHash:  nullString(a.MailboxHash),
			})
		}
	}
	add(RecipientTo, payload.ToFull)
	add(RecipientCc, payload.CcFull)
	add(RecipientBcc, payload.BccFull)
	return recipients
}

// threadSummary builds the human-readable summary stored on new
// threads: subject line, a 200-character body preview, the initiator,
// and the attachment count.
func threadSummary(payload *postmark.InboundPayload) string {
	subject := payload.Subject
	if subject == "" {
		subject = "No subject"
	}
	sender := payload.SenderName()
	if sender == "" {
		sender = payload.SenderEmail()
	}

	var b strings.Builder
	b.WriteString("Email thread: " + subject)

	body := payload.TextBody
	if body == "" {
		body = payload.StrippedTextReply
	}
	if body != "" {
		preview := strings.TrimSpace(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		b.WriteString("\n\nPreview: " + preview)
	}

	b.WriteString("\n\nStarted by: " + sender)

	if n := len(payload.Attachments); n > 0 {
		b.WriteString(fmt.Sprintf("\n\nAttachments: %d file(s)", n))
	}
	return b.String()
}
