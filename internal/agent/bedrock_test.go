package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", `Here you go: {"a":1} hope that helps`, `{"a":1}`},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"no object at all", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

type scriptedInvoker struct {
	out string
	err error
}

func (s *scriptedInvoker) Invoke(context.Context, string, string) (string, error) {
	return s.out, s.err
}

func TestCalendarExtractorParsesResult(t *testing.T) {
	e := NewCalendarExtractor(&scriptedInvoker{out: "```json\n" + `{
		"events": [{
			"title": "Quarterly review",
			"start_time": "2026-09-01T10:00:00Z",
			"end_time": "2026-09-01T11:00:00Z",
			"location": "Room 4",
			"attendees": [{"email": "bob@example.com", "name": "Bob"}],
			"organizer": {"email": "alice@example.com"},
			"priority": "high"
		}],
		"reminders": [{"reminder_time": "2026-08-31T09:00:00Z", "note": "prep slides"}],
		"follow_ups": []
	}` + "\n```"})

	result, err := e.Extract(context.Background(), "thread text")
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	ev := result.Events[0]
	assert.Equal(t, "Quarterly review", ev.Title)
	assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), ev.StartTime)
	require.NotNil(t, ev.Organizer)
	assert.Equal(t, "alice@example.com", ev.Organizer.Email)
	require.Len(t, result.Reminders, 1)
	assert.Equal(t, "prep slides", result.Reminders[0].Note)
	assert.Empty(t, result.FollowUps)
}

func TestShoppingExtractorParsesResult(t *testing.T) {
	e := NewShoppingExtractor(&scriptedInvoker{out: `{
		"bills": [{"vendor": "Electric Co", "amount": 84.20, "currency": "USD", "due_date": "2026-09-15T00:00:00Z"}],
		"coupons": [{"vendor": "Shoes Inc", "code": "FALL20", "discount": "20% off"}]
	}`})

	result, err := e.Extract(context.Background(), "thread text")
	require.NoError(t, err)
	require.Len(t, result.Bills, 1)
	assert.Equal(t, 84.20, result.Bills[0].Amount)
	require.NotNil(t, result.Bills[0].DueDate)
	require.Len(t, result.Coupons, 1)
	assert.Equal(t, "FALL20", result.Coupons[0].Code)
}

func TestExtractorSurfacesInvokeError(t *testing.T) {
	e := NewNotesExtractor(&scriptedInvoker{err: errors.New("throttled")})
	_, err := e.Extract(context.Background(), "thread text")
	assert.Error(t, err)
}

func TestExtractorRejectsMalformedJSON(t *testing.T) {
	e := NewNotesExtractor(&scriptedInvoker{out: "not json at all"})
	_, err := e.Extract(context.Background(), "thread text")
	assert.Error(t, err)
}
