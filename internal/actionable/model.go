// Package actionable persists and serves the typed items the
// extraction agents pull out of emails: calendar events, reminders,
// follow-ups, notes, bills, and coupons.
package actionable

import (
	"database/sql"
	"strings"
	"time"
)

// Type selects a category of actionable in list filters.
type Type string

const (
	TypeEvent    Type = "calendar_event"
	TypeReminder Type = "reminder"
	TypeFollowUp Type = "follow_up"
	TypeNote     Type = "note"
	TypeBill     Type = "bill"
	TypeCoupon   Type = "coupon"
)

// Priority ranks how urgently an item needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority normalizes agent-provided priorities, falling back to
// the given default on anything unrecognized.
func ValidPriority(v string, fallback Priority) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(v))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	}
	return fallback
}

// EventStatus is the lifecycle of a calendar event.
type EventStatus string

const (
	EventConfirmed EventStatus = "confirmed"
	EventTentative EventStatus = "tentative"
	EventCancelled EventStatus = "cancelled"
)

// ReminderStatus is the lifecycle of a reminder.
type ReminderStatus string

const (
	ReminderScheduled ReminderStatus = "scheduled"
	ReminderCompleted ReminderStatus = "completed"
	ReminderCancelled ReminderStatus = "cancelled"
)

// FollowUpStatus is the lifecycle of a follow-up.
type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "pending"
	FollowUpCompleted FollowUpStatus = "completed"
)

// Event is a calendar event extracted from an email.
type Event struct {
	ID          int64          `json:"id"`
	EmailID     int64          `json:"email_id"`
	Title       string         `json:"title"`
	Description sql.NullString `json:"description,omitempty"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Location    sql.NullString `json:"location,omitempty"`
	Status      EventStatus    `json:"status"`
	Priority    Priority       `json:"priority"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	Attendees []Attendee `json:"attendees,omitempty"`
}

// Attendee is one participant of an Event. Exactly one organizer row
// exists when the agent identified one.
type Attendee struct {
	ID          int64          `json:"id"`
	EventID     int64          `json:"event_id"`
	Email       string         `json:"email"`
	Name        sql.NullString `json:"name,omitempty"`
	IsOrganizer bool           `json:"is_organizer"`
}

// Reminder is a time-based nudge tied to an email.
type Reminder struct {
	ID           int64          `json:"id"`
	EmailID      int64          `json:"email_id"`
	ReminderTime time.Time      `json:"reminder_time"`
	Note         sql.NullString `json:"note,omitempty"`
	Status       ReminderStatus `json:"status"`
	Priority     Priority       `json:"priority"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// FollowUp marks an email needing a future response.
type FollowUp struct {
	ID           int64          `json:"id"`
	EmailID      int64          `json:"email_id"`
	FollowUpTime time.Time      `json:"follow_up_time"`
	Note         sql.NullString `json:"note,omitempty"`
	Status       FollowUpStatus `json:"status"`
	Priority     Priority       `json:"priority"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Note is free-form extracted information.
type Note struct {
	ID        int64     `json:"id"`
	EmailID   int64     `json:"email_id"`
	Note      string    `json:"note"`
	Category  string    `json:"category"`
	Priority  Priority  `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bill is a payment obligation found in an email.
type Bill struct {
	ID          int64          `json:"id"`
	EmailID     int64          `json:"email_id"`
	Vendor      string         `json:"vendor"`
	Amount      float64        `json:"amount"`
	Currency    string         `json:"currency"`
	DueDate     sql.NullTime   `json:"due_date,omitempty"`
	PaymentURL  sql.NullString `json:"payment_url,omitempty"`
	Description sql.NullString `json:"description,omitempty"`
	Category    string         `json:"category"`
	Priority    Priority       `json:"priority"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Coupon is a promotional offer found in an email.
type Coupon struct {
	ID          int64          `json:"id"`
	EmailID     int64          `json:"email_id"`
	Vendor      string         `json:"vendor"`
	Code        string         `json:"code"`
	Discount    sql.NullString `json:"discount,omitempty"`
	OfferURL    sql.NullString `json:"offer_url,omitempty"`
	ExpiryDate  sql.NullTime   `json:"expiry_date,omitempty"`
	Description sql.NullString `json:"description,omitempty"`
	Category    string         `json:"category"`
	Priority    Priority       `json:"priority"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Grouped is the response shape of the actionables listing: one page
// of items re-grouped by kind.
type Grouped struct {
	Calendar struct {
		Events    []Event    `json:"events"`
		Reminders []Reminder `json:"reminders"`
		FollowUps []FollowUp `json:"follow_ups"`
	} `json:"calendar"`
	Notes struct {
		Notes []Note `json:"notes"`
	} `json:"notes"`
	Shopping struct {
		Bills   []Bill   `json:"bills"`
		Coupons []Coupon `json:"coupons"`
	} `json:"shopping"`
	TotalCount int `json:"total_count"`
}
