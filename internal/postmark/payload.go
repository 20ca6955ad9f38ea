// Package postmark holds the inbound webhook payload types and the
// outbound sending client for the Postmark API.
package postmark

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Address is a parsed sender or recipient in the full form the webhook
// delivers.
type Address struct {
	Email       string `json:"Email"`
	Name        string `json:"Name,omitempty"`
	MailboxHash string `json:"MailboxHash,omitempty"`
}

// AttachmentData is one inline base64 attachment from the webhook.
type AttachmentData struct {
	Name          string `json:"Name"`
	Content       string `json:"Content"`
	ContentType   string `json:"ContentType"`
	ContentLength int    `json:"ContentLength"`
	ContentID     string `json:"ContentID,omitempty"`
}

// HeaderData is one raw header from the webhook, in wire order.
type HeaderData struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// InboundPayload is the Postmark inbound webhook body.
type InboundPayload struct {
	From          string    `json:"From"`
	FromName      string    `json:"FromName,omitempty"`
	FromFull      Address   `json:"FromFull"`
	To            string    `json:"To,omitempty"`
	ToFull        []Address `json:"ToFull,omitempty"`
	Cc            string    `json:"Cc,omitempty"`
	CcFull        []Address `json:"CcFull,omitempty"`
	Bcc           string    `json:"Bcc,omitempty"`
	BccFull       []Address `json:"BccFull,omitempty"`
	MessageStream string    `json:"MessageStream,omitempty"`

	OriginalRecipient string `json:"OriginalRecipient,omitempty"`
	ReplyTo           string `json:"ReplyTo,omitempty"`
	Subject           string `json:"Subject,omitempty"`
	MessageID         string `json:"MessageID"`
	Date              string `json:"Date"`
	MailboxHash       string `json:"MailboxHash,omitempty"`

	TextBody          string `json:"TextBody,omitempty"`
	HtmlBody          string `json:"HtmlBody,omitempty"`
	StrippedTextReply string `json:"StrippedTextReply,omitempty"`
	Tag               string `json:"Tag,omitempty"`

	Headers     []HeaderData     `json:"Headers,omitempty"`
	Attachments []AttachmentData `json:"Attachments,omitempty"`
}

// Validate checks the fields the pipeline cannot proceed without.
// Anything else is optional on the wire.
func (p *InboundPayload) Validate() error {
	var missing []string
	if strings.TrimSpace(p.From) == "" && strings.TrimSpace(p.FromFull.Email) == "" {
		missing = append(missing, "From")
	}
	if strings.TrimSpace(p.MessageID) == "" {
		missing = append(missing, "MessageID")
	}
	if strings.TrimSpace(p.Date) == "" {
		missing = append(missing, "Date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if err := validAddress(p.SenderEmail()); err != nil {
		return fmt.Errorf("invalid From address: %w", err)
	}
	return nil
}

func validAddress(addr string) error {
	_, err := mail.ParseAddress(addr)
	return err
}

// SenderEmail prefers the structured FromFull address over the bare
// From string.
func (p *InboundPayload) SenderEmail() string {
	if e := strings.TrimSpace(p.FromFull.Email); e != "" {
		return e
	}
	return strings.TrimSpace(p.From)
}

// SenderName prefers FromFull.Name, then FromName.
func (p *InboundPayload) SenderName() string {
	if n := strings.TrimSpace(p.FromFull.Name); n != "" {
		return n
	}
	return strings.TrimSpace(p.FromName)
}

// dateLayouts covers the formats Postmark has been observed emitting.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	time.RFC3339,
}

// SentAt parses the Date field; a zero time means unparseable, which
// callers store as NULL rather than rejecting the email.
func (p *InboundPayload) SentAt() time.Time {
	s := strings.TrimSpace(p.Date)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// Participants returns the sender plus the To and Cc addresses, which
// together derive the thread key. Bcc addresses never influence
// threading.
func (p *InboundPayload) Participants() []string {
	out := []string{p.SenderEmail()}
	for _, group := range [][]Address{p.ToFull, p.CcFull} {
		for _, a := range group {
			if e := strings.TrimSpace(a.Email); e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}
