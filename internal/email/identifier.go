package email

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// HeaderPair is a raw (name, value) header as delivered in the webhook
// payload, order preserved.
type HeaderPair struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// identifierHeaders are scanned in priority order, not payload order.
// Providers that rewrite Message-Id on forwarding keep the original in
// their vendor header, which is why those win.
var identifierHeaders = []string{
	"x-microsoft-original-message-id",
	"x-gmail-original-message-id",
	"message-id",
}

// ExtractIdentifier derives the cross-provider stable email identifier
// from the header list. Never fails: when no candidate header is
// present a random fallback identifier is generated.
func ExtractIdentifier(headers []HeaderPair) string {
	for _, want := range identifierHeaders {
		for _, h := range headers {
			if strings.EqualFold(h.Name, want) && h.Value != "" {
				return strings.TrimSpace(h.Value)
			}
		}
	}

	generated := "generated-" + uuid.New().String()
	logger.Warn("no identifier header found, generated fallback", "identifier", generated)
	return generated
}

// ExtractParentIdentifier returns the reply-parent identifier from the
// first In-Reply-To or References header, or "" if absent.
func ExtractParentIdentifier(headers []HeaderPair) string {
	for _, h := range headers {
		name := strings.ToLower(h.Name)
		if (name == "in-reply-to" || name == "references") && h.Value != "" {
			return strings.TrimSpace(h.Value)
		}
	}
	return ""
}

// ParseSpamHeaders scans for spam verdict headers. Score headers that
// fail to parse as a float are ignored. hasScore reports whether a
// score was found.
func ParseSpamHeaders(headers []HeaderPair) (score float64, hasScore bool, status SpamStatus) {
	status = SpamUnknown

	for _, h := range headers {
		name := strings.ToLower(h.Name)

		if strings.Contains(name, "spam") && strings.Contains(name, "score") {
			if v, err := strconv.ParseFloat(strings.TrimSpace(h.Value), 64); err == nil {
				score = v
				hasScore = true
			}
		}

		if strings.Contains(name, "spam") && strings.Contains(name, "status") {
			switch strings.ToLower(strings.TrimSpace(h.Value)) {
			case "yes":
				status = SpamYes
			case "no":
				status = SpamNo
			}
		}
	}

	return score, hasScore, status
}
