package actionable

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// ListRequest filters and paginates the grouped actionables listing.
// An empty Types set means all kinds.
type ListRequest struct {
	Page      int
	Limit     int
	Types     []Type
	EmailID   int64
	ThreadID  int64
	StartDate time.Time
	EndDate   time.Time
}

func (r *ListRequest) clamp() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 || r.Limit > 100 {
		r.Limit = 20
	}
}

func (r *ListRequest) wants(t Type) bool {
	if len(r.Types) == 0 {
		return true
	}
	for _, want := range r.Types {
		if want == t {
			return true
		}
	}
	return false
}

// item pairs a kind tag with the loaded row for the merge sort.
type item struct {
	kind Type
	when time.Time
	idx  int
}

// List returns one page of the user's actionables grouped by kind.
// All kinds are merged, sorted newest first by their natural date, and
// sliced; the page is then regrouped. A failing sub-query empties that
// kind rather than failing the listing.
func (s *Store) List(ctx context.Context, userID int64, req ListRequest) (*Grouped, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id %d", userID)
	}
	req.clamp()

	var (
		events    []Event
		reminders []Reminder
		followUps []FollowUp
		notes     []Note
		bills     []Bill
		coupons   []Coupon
		err       error
	)

	if req.wants(TypeEvent) {
		if events, err = s.listEvents(ctx, userID, req); err != nil {
			logger.Error("failed to fetch calendar events", "user_id", userID, "error", err.Error())
		}
	}
	if req.wants(TypeReminder) {
		if reminders, err = s.listReminders(ctx, userID, req); err != nil {
			logger.Error("failed to fetch reminders", "user_id", userID, "error", err.Error())
		}
	}
	if req.wants(TypeFollowUp) {
		if followUps, err = s.listFollowUps(ctx, userID, req); err != nil {
			logger.Error("failed to fetch follow-ups", "user_id", userID, "error", err.Error())
		}
	}
	if req.wants(TypeNote) {
		if notes, err = s.listNotes(ctx, userID, req); err != nil {
			logger.Error("failed to fetch notes", "user_id", userID, "error", err.Error())
		}
	}
	if req.wants(TypeBill) {
		if bills, err = s.listBills(ctx, userID, req); err != nil {
			logger.Error("failed to fetch bills", "user_id", userID, "error", err.Error())
		}
	}
	if req.wants(TypeCoupon) {
		if coupons, err = s.listCoupons(ctx, userID, req); err != nil {
			logger.Error("failed to fetch coupons", "user_id", userID, "error", err.Error())
		}
	}

	var all []item
	for i, e := range events {
		all = append(all, item{TypeEvent, e.StartTime, i})
	}
	for i, r := range reminders {
		all = append(all, item{TypeReminder, r.ReminderTime, i})
	}
	for i, f := range followUps {
		all = append(all, item{TypeFollowUp, f.FollowUpTime, i})
	}
	for i, n := range notes {
		all = append(all, item{TypeNote, n.CreatedAt, i})
	}
	for i, b := range bills {
		all = append(all, item{TypeBill, b.CreatedAt, i})
	}
	for i, c := range coupons {
		all = append(all, item{TypeCoupon, c.CreatedAt, i})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].when.After(all[j].when)
	})

	start := (req.Page - 1) * req.Limit
	end := start + req.Limit
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	out := &Grouped{TotalCount: len(all)}
	for _, it := range all[start:end] {
		switch it.kind {
		case TypeEvent:
			out.Calendar.Events = append(out.Calendar.Events, events[it.idx])
		case TypeReminder:
			out.Calendar.Reminders = append(out.Calendar.Reminders, reminders[it.idx])
		case TypeFollowUp:
			out.Calendar.FollowUps = append(out.Calendar.FollowUps, followUps[it.idx])
		case TypeNote:
			out.Notes.Notes = append(out.Notes.Notes, notes[it.idx])
		case TypeBill:
			out.Shopping.Bills = append(out.Shopping.Bills, bills[it.idx])
		case TypeCoupon:
			out.Shopping.Coupons = append(out.Shopping.Coupons, coupons[it.idx])
		}
	}
	return out, nil
}

// scopeFilters builds the ownership join and common filters. Every
// actionable query scopes through its email's user_id; dateCol is the
// kind's natural date column for range filtering.
func scopeFilters(table, dateCol string, userID int64, req ListRequest) (string, []any) {
	clauses := []string{"e.user_id = $1"}
	args := []any{userID}
	if req.EmailID > 0 {
		args = append(args, req.EmailID)
		clauses = append(clauses, fmt.Sprintf("a.email_id = $%d", len(args)))
	}
	if req.ThreadID > 0 {
		args = append(args, req.ThreadID)
		clauses = append(clauses, fmt.Sprintf("e.thread_id = $%d", len(args)))
	}
	if !req.StartDate.IsZero() {
		args = append(args, req.StartDate)
		clauses = append(clauses, fmt.Sprintf("a.%s >= $%d", dateCol, len(args)))
	}
	if !req.EndDate.IsZero() {
		args = append(args, req.EndDate)
		clauses = append(clauses, fmt.Sprintf("a.%s <= $%d", dateCol, len(args)))
	}
	return fmt.Sprintf(" FROM %s a JOIN emails e ON e.id = a.email_id WHERE %s",
		table, strings.Join(clauses, " AND ")), args
}

func (s *Store) listEvents(ctx context.Context, userID int64, req ListRequest) ([]Event, error) {
	from, args := scopeFilters("calendar_events", "start_time", userID, req)
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.email_id, a.title, a.description, a.start_time, a.end_time,
		       a.location, a.status, a.priority, a.created_at, a.updated_at`+
		from+` ORDER BY a.start_time DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	ids := make([]int64, 0)
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EmailID, &e.Title, &e.Description, &e.StartTime,
			&e.EndTime, &e.Location, &e.Status, &e.Priority, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	byID := make(map[int64]*Event, len(events))
	for i := range events {
		byID[events[i].ID] = &events[i]
	}
	arows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, email, name, is_organizer
		FROM event_attendees WHERE event_id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var a Attendee
		if err := arows.Scan(&a.ID, &a.EventID, &a.Email, &a.Name, &a.IsOrganizer); err != nil {
			return nil, err
		}
		if ev := byID[a.EventID]; ev != nil {
			ev.Attendees = append(ev.Attendees, a)
		}
	}
	return events, arows.Err()
}

func (s *Store) listReminders(ctx context.Context, userID int64, req ListRequest) ([]Reminder, error) {
	from, args := scopeFilters("email_reminders", "reminder_time", userID, req)
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.email_id, a.reminder_time, a.note, a.status, a.priority,
		       a.created_at, a.updated_at`+from+` ORDER BY a.reminder_time DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.EmailID, &r.ReminderTime, &r.Note, &r.Status,
			&r.Priority, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) listFollowUps(ctx context.Context, userID int64, req ListRequest) ([]FollowUp, error) {
	from, args := scopeFilters("follow_ups", "follow_up_time", userID, req)
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.email_id, a.follow_up_time, a.note, a.status, a.priority,
		       a.created_at, a.updated_at`+from+` ORDER BY a.follow_up_time DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FollowUp
	for rows.Next() {
		var f FollowUp
		if err := rows.Scan(&f.ID, &f.EmailID, &f.FollowUpTime, &f.Note, &f.Status,
			&f.Priority, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) listNotes(ctx context.Context, userID int64, req ListRequest) ([]Note, error) {
	from, args := scopeFilters("email_notes", "created_at", userID, req)
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.email_id, a.note, a.category, a.priority,
		       a.created_at, a.updated_at`+from+` ORDER BY a.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.EmailID, &n.Note, &n.Category, &n.Priority,
			&n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) listBills(ctx context.Context, userID int64, req ListRequest) ([]Bill, error) {
	from, args := scopeFilters("bills", "created_at", userID, req)
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.email_id, a.vendor, a.amount, a.currency, a.due_date,
		       a.payment_url, a.description, a.category, a.priority,
		       a.created_at, a.updated_at`+from+` ORDER BY a.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		var b Bill
		if err := rows.Scan(&b.ID, &b.EmailID, &b.Vendor, &b.Amount, &b.Currency,
			&b.DueDate, &b.PaymentURL, &b.Description, &b.Category, &b.Priority,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) listCoupons(ctx context.Context, userID int64, req ListRequest) ([]Coupon, error) {
	from, args := scopeFilters("coupons", "created_at", userID, req)
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.email_id, a.vendor, a.code, a.discount, a.offer_url,
		       a.expiry_date, a.description, a.category, a.priority,
		       a.created_at, a.updated_at`+from+` ORDER BY a.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Coupon
	for rows.Next() {
		var c Coupon
		if err := rows.Scan(&c.ID, &c.EmailID, &c.Vendor, &c.Code, &c.Discount,
			&c.OfferURL, &c.ExpiryDate, &c.Description, &c.Category, &c.Priority,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
