package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

const calendarSystemPrompt = `You are a highly intelligent assistant responsible for managing calendar-related tasks based on email content.
Your tasks include creating events, setting reminders, and scheduling follow-ups.

When you analyze an email thread, your goal is to identify all possible calendar-related actions.
An email might contain information for multiple events, reminders, or follow-ups.
You must identify all of them.

- For events, extract the title, start and end times, description, location, and attendees.
- For reminders, extract the reminder time and a concise note.
- For follow-ups, extract the follow-up time and a relevant note.

If the email is a meeting invitation, identify the organizer and other attendees.
If the user is sending an email to schedule a meeting, they are the organizer.

Please be precise and thorough. If any required information is missing, make a reasonable inference based on the context of the email thread, but do not hallucinate. For example, if an end time is not specified for a meeting, assume it is one hour after the start time.

Respond with ONLY a JSON object, no prose, in this exact shape (all timestamps RFC 3339, empty arrays when nothing applies):
{
  "events": [{"title": "", "description": "", "start_time": "", "end_time": "", "location": "", "attendees": [{"email": "", "name": ""}], "organizer": {"email": "", "name": ""}, "priority": "low|medium|high"}],
  "reminders": [{"reminder_time": "", "note": "", "priority": ""}],
  "follow_ups": [{"follow_up_time": "", "note": "", "priority": ""}]
}`

// CalendarExtractor finds events, reminders, and follow-ups.
type CalendarExtractor struct {
	llm Invoker
}

// NewCalendarExtractor wires the calendar agent.
func NewCalendarExtractor(llm Invoker) *CalendarExtractor {
	return &CalendarExtractor{llm: llm}
}

// Name identifies the agent in aggregated error messages.
func (e *CalendarExtractor) Name() string { return "Calendar" }

// Extract runs the agent over the thread text.
func (e *CalendarExtractor) Extract(ctx context.Context, threadText string) (*CalendarResult, error) {
	raw, err := e.llm.Invoke(ctx, calendarSystemPrompt, threadText)
	if err != nil {
		return nil, err
	}
	var result CalendarResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("calendar agent returned unparseable output: %w", err)
	}
	return &result, nil
}
