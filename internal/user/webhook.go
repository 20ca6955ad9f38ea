package user

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/inboxly/inbox-intel/internal/pkg/logger"
	"github.com/inboxly/inbox-intel/internal/postmark"
)

// Resolver provisions users from inbound webhooks. New users get an
// API key immediately and a best-effort welcome email carrying it.
type Resolver struct {
	store  *Store
	keys   *KeyIssuer
	sender *postmark.Client
}

// NewResolver wires webhook user provisioning.
func NewResolver(store *Store, keys *KeyIssuer, sender *postmark.Client) *Resolver {
	return &Resolver{store: store, keys: keys, sender: sender}
}

// ResolveWebhookUser finds or creates the mailbox owner. The mailbox
// hash doubles as the display name when present; otherwise the address
// local part is used.
func (r *Resolver) ResolveWebhookUser(ctx context.Context, emailAddr, mailboxHash string) (int64, bool, error) {
	if strings.TrimSpace(emailAddr) == "" {
		return 0, false, fmt.Errorf("webhook carried no recipient address")
	}

	name := strings.TrimSpace(mailboxHash)
	if name == "" {
		name = strings.TrimSpace(strings.SplitN(emailAddr, "@", 2)[0])
	}

	u, created, err := r.store.GetOrCreate(ctx, emailAddr, mailboxHash, name)
	if err != nil {
		return 0, false, err
	}

	if created && !u.APIKey.Valid {
		apiKey, err := r.keys.Generate(u.ID)
		if err != nil {
			return 0, false, fmt.Errorf("issue api key: %w", err)
		}
		if err := r.store.SetAPIKey(ctx, u.ID, apiKey); err != nil {
			return 0, false, err
		}
		u.APIKey = sql.NullString{String: apiKey, Valid: true}

		// Welcome delivery never blocks or fails ingestion.
		go r.sendWelcome(u)
	}
	return u.ID, created, nil
}

const welcomeSubject = "Welcome to Inbox Intel - Your AI-Powered Inbox is Ready!"

func welcomeText(name, apiKey string) string {
	return fmt.Sprintf(`Welcome to Inbox Intel, %s!

Forward emails to your inbox address and we'll extract calendar events,
reminders, bills, coupons, and notes for you automatically.

Your API key for the retrieval API:

%s

Pass it in the X-API-Key header.
`, name, apiKey)
}

func welcomeHTML(name, apiKey string) string {
	return fmt.Sprintf(`<html><body>
<h1>Welcome to Inbox Intel, %s!</h1>
<p>Forward emails to your inbox address and we'll extract calendar events,
reminders, bills, coupons, and notes for you automatically.</p>
<p>Your API key: <code>%s</code></p>
<p>Pass it in the <code>X-API-Key</code> header.</p>
</body></html>`, name, apiKey)
}

func (r *Resolver) sendWelcome(u *User) {
	if r.sender == nil || !r.sender.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	name := u.Name.String
	if name == "" {
		name = "there"
	}

	result, err := r.sender.Send(ctx, postmark.OutboundMessage{
		To:       u.Email,
		Subject:  welcomeSubject,
		TextBody: welcomeText(name, u.APIKey.String),
		HtmlBody: welcomeHTML(name, u.APIKey.String),
		Tag:      "welcome",
	})

	rec := &SentEmail{
		UserID:    u.ID,
		FromEmail: r.sender.From(),
		ToEmail:   u.Email,
		Status:    SentStatusSent,
	}
	if result != nil {
		rec.MessageID = sql.NullString{String: result.MessageID, Valid: result.MessageID != ""}
		rec.ErrorCode = sql.NullInt64{Int64: int64(result.ErrorCode), Valid: true}
		rec.Message = sql.NullString{String: result.Message, Valid: result.Message != ""}
		if !result.SubmittedAt.IsZero() {
			rec.SubmittedAt = sql.NullTime{Time: result.SubmittedAt, Valid: true}
		}
	}
	if err != nil {
		rec.Status = SentStatusFailed
		rec.IsSilentFailure = true
		if !rec.Message.Valid {
			rec.Message = sql.NullString{String: err.Error(), Valid: true}
		}
		logger.Warn("welcome email failed", "user_id", u.ID, "recipient", u.Email, "error", err.Error())
	} else {
		logger.Info("welcome email sent", "user_id", u.ID, "recipient", u.Email)
	}
	r.store.LogSentEmail(ctx, rec)
}
