package postmark

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := InboundPayload{
		From:      "alice@example.com",
		MessageID: "<m@x>",
		Date:      "Mon, 2 Jan 2006 15:04:05 -0700",
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*InboundPayload)
	}{
		{"missing from", func(p *InboundPayload) { p.From = "" }},
		{"missing message id", func(p *InboundPayload) { p.MessageID = " " }},
		{"missing date", func(p *InboundPayload) { p.Date = "" }},
		{"unparseable from", func(p *InboundPayload) { p.From = "not an address" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}

	// FromFull alone satisfies the sender requirement.
	p := valid
	p.From = ""
	p.FromFull.Email = "bob@example.com"
	assert.NoError(t, p.Validate())
}

func TestSenderPrefersFromFull(t *testing.T) {
	p := InboundPayload{
		From:     "bare@example.com",
		FromName: "Bare",
		FromFull: Address{Email: "full@example.com", Name: "Full"},
	}
	assert.Equal(t, "full@example.com", p.SenderEmail())
	assert.Equal(t, "Full", p.SenderName())

	p.FromFull = Address{}
	assert.Equal(t, "bare@example.com", p.SenderEmail())
	assert.Equal(t, "Bare", p.SenderName())
}

func TestSentAt(t *testing.T) {
	p := InboundPayload{Date: "Mon, 02 Jan 2006 15:04:05 -0700"}
	got := p.SentAt()
	require.False(t, got.IsZero())
	assert.Equal(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), got)

	p.Date = "garbage"
	assert.True(t, p.SentAt().IsZero())
}

func TestParticipantsExcludeBcc(t *testing.T) {
	p := InboundPayload{
		FromFull: Address{Email: "alice@example.com"},
		ToFull:   []Address{{Email: "bob@example.com"}, {Email: ""}},
		CcFull:   []Address{{Email: "carol@example.com"}},
		BccFull:  []Address{{Email: "hidden@example.com"}},
	}
	assert.Equal(t,
		[]string{"alice@example.com", "bob@example.com", "carol@example.com"},
		p.Participants())
}

func TestInboundPayloadDecodesWireNames(t *testing.T) {
	raw := `{
		"From": "alice@example.com",
		"FromFull": {"Email": "alice@example.com", "Name": "Alice"},
		"ToFull": [{"Email": "inbox@example.com", "MailboxHash": "abc"}],
		"MessageID": "<m@x>",
		"Date": "Mon, 2 Jan 2006 15:04:05 -0700",
		"MailboxHash": "abc",
		"Headers": [{"Name": "X-Spam-Score", "Value": "0.1"}],
		"Attachments": [{"Name": "a.pdf", "Content": "aGk=", "ContentType": "application/pdf", "ContentLength": 2}]
	}`
	var p InboundPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "abc", p.MailboxHash)
	assert.Equal(t, "abc", p.ToFull[0].MailboxHash)
	assert.Equal(t, "X-Spam-Score", p.Headers[0].Name)
	assert.Equal(t, "a.pdf", p.Attachments[0].Name)
}
