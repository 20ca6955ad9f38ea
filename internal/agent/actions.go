// Package agent runs the LLM extraction agents against email thread
// content. Each agent prompts a Bedrock model for a typed list of
// actions; persistence of those actions belongs to the extraction
// pipeline, not to this package.
package agent

import "time"

// AttendeeInfo identifies one event participant.
type AttendeeInfo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EventAction asks for a calendar event.
type EventAction struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Location    string         `json:"location,omitempty"`
	Attendees   []AttendeeInfo `json:"attendees,omitempty"`
	Organizer   *AttendeeInfo  `json:"organizer,omitempty"`
	Priority    string         `json:"priority,omitempty"`
}

// ReminderAction asks for a reminder.
type ReminderAction struct {
	ReminderTime time.Time `json:"reminder_time"`
	Note         string    `json:"note,omitempty"`
	Priority     string    `json:"priority,omitempty"`
}

// FollowUpAction asks for a follow-up.
type FollowUpAction struct {
	FollowUpTime time.Time `json:"follow_up_time"`
	Note         string    `json:"note,omitempty"`
	Priority     string    `json:"priority,omitempty"`
}

// NoteAction asks for a note.
type NoteAction struct {
	Note     string `json:"note"`
	Category string `json:"category,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// BillAction asks for a bill record.
type BillAction struct {
	Vendor      string     `json:"vendor"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	PaymentURL  string     `json:"payment_url,omitempty"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Priority    string     `json:"priority,omitempty"`
}

// CouponAction asks for a coupon record.
type CouponAction struct {
	Vendor      string     `json:"vendor"`
	Code        string     `json:"code"`
	Discount    string     `json:"discount,omitempty"`
	OfferURL    string     `json:"offer_url,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Priority    string     `json:"priority,omitempty"`
}

// CalendarResult is the calendar agent's full output.
type CalendarResult struct {
	Events    []EventAction    `json:"events"`
	Reminders []ReminderAction `json:"reminders"`
	FollowUps []FollowUpAction `json:"follow_ups"`
}

// NotesResult is the notes agent's full output.
type NotesResult struct {
	Notes []NoteAction `json:"notes"`
}

// ShoppingResult is the shopping agent's full output.
type ShoppingResult struct {
	Bills   []BillAction   `json:"bills"`
	Coupons []CouponAction `json:"coupons"`
}
