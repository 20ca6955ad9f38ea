// Package extraction orchestrates the three LLM agents over ingested
// emails and drives the per-email status machine
// PENDING -> PROCESSING -> PROCESSED | FAILED.
package extraction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/inboxly/inbox-intel/internal/actionable"
	"github.com/inboxly/inbox-intel/internal/agent"
	"github.com/inboxly/inbox-intel/internal/email"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// Pipeline fans an email's thread text out to the calendar, notes, and
// shopping agents, persists whatever they extract, and records the
// aggregate outcome on the email.
type Pipeline struct {
	emails      *email.Store
	actionables *actionable.Store
	calendar    *agent.CalendarExtractor
	notes       *agent.NotesExtractor
	shopping    *agent.ShoppingExtractor
}

// NewPipeline wires the extraction fan-out.
func NewPipeline(emails *email.Store, actionables *actionable.Store, llm agent.Invoker) *Pipeline {
	return &Pipeline{
		emails:      emails,
		actionables: actionables,
		calendar:    agent.NewCalendarExtractor(llm),
		notes:       agent.NewNotesExtractor(llm),
		shopping:    agent.NewShoppingExtractor(llm),
	}
}

// ProcessDetached runs the whole extraction for one email. It never
// panics and never returns: every failure path, including a panicking
// agent, ends in a FAILED status so no email is left stuck in
// PROCESSING.
func (p *Pipeline) ProcessDetached(ctx context.Context, emailID int64) {
	if emailID <= 0 {
		logger.Error("extraction requested for invalid email id", "email_id", emailID)
		return
	}
	logger.Info("starting actionables extraction", "email_id", emailID)

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("unexpected error during actionables processing: %v", r)
			p.setStatus(ctx, emailID, email.ActionablesFailed, msg)
			logger.Error("extraction panicked", "email_id", emailID, "error", msg)
		}
	}()

	p.setStatus(ctx, emailID, email.ActionablesProcessing, "")

	threadText, err := ThreadText(ctx, p.emails, emailID)
	if err != nil {
		p.setStatus(ctx, emailID, email.ActionablesFailed,
			fmt.Sprintf("unexpected error during actionables processing: %v", err))
		return
	}

	var (
		wg          sync.WaitGroup
		calendarErr error
		notesErr    error
		shoppingErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		calendarErr = guard("calendar", func() error {
			return p.runCalendar(ctx, emailID, threadText)
		})
	}()
	go func() {
		defer wg.Done()
		notesErr = guard("notes", func() error {
			return p.runNotes(ctx, emailID, threadText)
		})
	}()
	go func() {
		defer wg.Done()
		shoppingErr = guard("shopping", func() error {
			return p.runShopping(ctx, emailID, threadText)
		})
	}()
	wg.Wait()

	var failures []string
	if calendarErr != nil {
		failures = append(failures, "Calendar: "+calendarErr.Error())
	}
	if notesErr != nil {
		failures = append(failures, "Notes: "+notesErr.Error())
	}
	if shoppingErr != nil {
		failures = append(failures, "Shopping: "+shoppingErr.Error())
	}

	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		p.setStatus(ctx, emailID, email.ActionablesFailed, msg)
		logger.Error("actionables extraction failed", "email_id", emailID, "error", msg)
		return
	}
	p.setStatus(ctx, emailID, email.ActionablesProcessed, "")
	logger.Info("actionables extraction completed", "email_id", emailID)
}

// guard converts an agent goroutine panic into an error so one agent
// can never take down its siblings.
func guard(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s agent panicked: %v", name, r)
		}
	}()
	return fn()
}

// setStatus persists a status transition; persistence failures are
// logged, not propagated, because the caller has nowhere to surface
// them.
func (p *Pipeline) setStatus(ctx context.Context, emailID int64, status email.ActionablesStatus, errMsg string) {
	if err := p.emails.UpdateActionablesStatus(ctx, emailID, status, errMsg); err != nil {
		logger.Error("failed to update actionables status",
			"email_id", emailID, "status", string(status), "error", err.Error())
	}
}

func (p *Pipeline) runCalendar(ctx context.Context, emailID int64, threadText string) error {
	result, err := p.calendar.Extract(ctx, threadText)
	if err != nil {
		return err
	}

	var errs []error
	for _, ev := range result.Events {
		row := &actionable.Event{
			EmailID:     emailID,
			Title:       ev.Title,
			Description: nullStr(ev.Description),
			StartTime:   ev.StartTime,
			EndTime:     ev.EndTime,
			Location:    nullStr(ev.Location),
			Status:      actionable.EventConfirmed,
			Priority:    actionable.ValidPriority(ev.Priority, actionable.PriorityMedium),
		}
		for _, a := range ev.Attendees {
			row.Attendees = append(row.Attendees, actionable.Attendee{
				Email: a.Email, Name: nullStr(a.Name),
			})
		}
		if ev.Organizer != nil {
			row.Attendees = append(row.Attendees, actionable.Attendee{
				Email: ev.Organizer.Email, Name: nullStr(ev.Organizer.Name), IsOrganizer: true,
			})
		}
		if err := p.actionables.CreateEvent(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range result.Reminders {
		row := &actionable.Reminder{
			EmailID:      emailID,
			ReminderTime: r.ReminderTime,
			Note:         nullStr(r.Note),
			Status:       actionable.ReminderScheduled,
			Priority:     actionable.ValidPriority(r.Priority, actionable.PriorityMedium),
		}
		if err := p.actionables.CreateReminder(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	for _, f := range result.FollowUps {
		row := &actionable.FollowUp{
			EmailID:      emailID,
			FollowUpTime: f.FollowUpTime,
			Note:         nullStr(f.Note),
			Status:       actionable.FollowUpPending,
			Priority:     actionable.ValidPriority(f.Priority, actionable.PriorityMedium),
		}
		if err := p.actionables.CreateFollowUp(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) runNotes(ctx context.Context, emailID int64, threadText string) error {
	result, err := p.notes.Extract(ctx, threadText)
	if err != nil {
		return err
	}

	var errs []error
	for _, n := range result.Notes {
		if strings.TrimSpace(n.Note) == "" {
			continue
		}
		category := n.Category
		if category == "" {
			category = "general"
		}
		row := &actionable.Note{
			EmailID:  emailID,
			Note:     n.Note,
			Category: category,
			Priority: actionable.ValidPriority(n.Priority, actionable.PriorityMedium),
		}
		if err := p.actionables.CreateNote(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) runShopping(ctx context.Context, emailID int64, threadText string) error {
	result, err := p.shopping.Extract(ctx, threadText)
	if err != nil {
		return err
	}

	var errs []error
	for _, b := range result.Bills {
		currency := b.Currency
		if currency == "" {
			currency = "USD"
		}
		category := b.Category
		if category == "" {
			category = "other"
		}
		row := &actionable.Bill{
			EmailID:     emailID,
			Vendor:      b.Vendor,
			Amount:      b.Amount,
			Currency:    currency,
			DueDate:     nullTimePtr(b.DueDate),
			PaymentURL:  nullStr(b.PaymentURL),
			Description: nullStr(b.Description),
			Category:    category,
			Priority:    actionable.ValidPriority(b.Priority, actionable.PriorityMedium),
		}
		if err := p.actionables.CreateBill(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range result.Coupons {
		category := c.Category
		if category == "" {
			category = "other"
		}
		row := &actionable.Coupon{
			EmailID:     emailID,
			Vendor:      c.Vendor,
			Code:        c.Code,
			Discount:    nullStr(c.Discount),
			OfferURL:    nullStr(c.OfferURL),
			ExpiryDate:  nullTimePtr(c.ExpiryDate),
			Description: nullStr(c.Description),
			Category:    category,
			Priority:    actionable.ValidPriority(c.Priority, actionable.PriorityLow),
		}
		if err := p.actionables.CreateCoupon(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func nullStr(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
