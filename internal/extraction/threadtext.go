package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inboxly/inbox-intel/internal/email"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

const messageBodyLimit = 1000

// ThreadText renders the email's whole thread as the plain-text
// conversation the agents consume: subject line, then each message in
// thread order with sender, subject, timestamp, and a truncated body.
// An unthreaded email renders as a single message.
func ThreadText(ctx context.Context, store *email.Store, emailID int64) (string, error) {
	em, err := store.GetEmailAnyUser(ctx, emailID)
	if err != nil {
		return "", err
	}
	if em == nil {
		return "", fmt.Errorf("email %d not found", emailID)
	}

	msgs := []email.Email{*em}
	if em.ThreadID.Valid {
		threaded, err := store.ThreadEmails(ctx, em.ThreadID.Int64)
		if err != nil {
			logger.Warn("falling back to single message for thread text",
				"email_id", emailID, "error", err.Error())
		} else if len(threaded) > 0 {
			msgs = threaded
		}
	}

	subject := "No Subject"
	if em.Subject.Valid && em.Subject.String != "" {
		subject = em.Subject.String
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Thread Subject: %s\n\n", subject)

	for i, msg := range msgs {
		sender := msg.FromEmail
		if msg.FromName.Valid && msg.FromName.String != "" {
			sender = msg.FromName.String
		}

		fmt.Fprintf(&b, "Message %d:\n", i+1)
		fmt.Fprintf(&b, "From: %s <%s>\n", sender, msg.FromEmail)
		fmt.Fprintf(&b, "Subject: %s\n", msg.Subject.String)
		if msg.SentAt.Valid {
			fmt.Fprintf(&b, "Sent: %s\n", msg.SentAt.Time.Format(time.RFC3339))
		}

		body := msg.TextBody.String
		if body == "" {
			body = msg.HTMLBody.String
		}
		if len(body) > messageBodyLimit {
			body = body[:messageBodyLimit]
		}
		fmt.Fprintf(&b, "Body: %s...\n\n", body)
	}
	return b.String(), nil
}
