package actionable

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// Store writes and reads actionable rows. Each create method is one
// short transaction opened fresh for that tool invocation; nothing here
// spans an LLM call.
type Store struct {
	db *sql.DB
}

// NewStore creates an actionable store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateEvent inserts the event plus all attendee rows in one
// transaction: attendees from the list as non-organizers, plus one
// organizer-flagged row when an organizer was identified.
func (s *Store) CreateEvent(ctx context.Context, ev *Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO calendar_events
			(email_id, title, description, start_time, end_time, location, status, priority)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at, updated_at`,
		ev.EmailID, ev.Title, ev.Description, ev.StartTime, ev.EndTime,
		ev.Location, ev.Status, ev.Priority,
	).Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	for i := range ev.Attendees {
		a := &ev.Attendees[i]
		a.EventID = ev.ID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO event_attendees (event_id, email, name, is_organizer)
			VALUES ($1,$2,$3,$4)
			RETURNING id`,
			a.EventID, a.Email, a.Name, a.IsOrganizer,
		).Scan(&a.ID)
		if err != nil {
			return fmt.Errorf("insert attendee %q: %w", a.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event tx: %w", err)
	}
	logger.Info("calendar event created",
		"event_id", ev.ID, "email_id", ev.EmailID, "attendees", len(ev.Attendees))
	return nil
}

// CreateReminder inserts one reminder row.
func (s *Store) CreateReminder(ctx context.Context, r *Reminder) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO email_reminders (email_id, reminder_time, note, status, priority)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		r.EmailID, r.ReminderTime, r.Note, r.Status, r.Priority,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	logger.Info("reminder created", "reminder_id", r.ID, "email_id", r.EmailID)
	return nil
}

// CreateFollowUp inserts one follow-up row.
func (s *Store) CreateFollowUp(ctx context.Context, f *FollowUp) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO follow_ups (email_id, follow_up_time, note, status, priority)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		f.EmailID, f.FollowUpTime, f.Note, f.Status, f.Priority,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert follow-up: %w", err)
	}
	logger.Info("follow-up created", "follow_up_id", f.ID, "email_id", f.EmailID)
	return nil
}

// CreateNote inserts one note row.
func (s *Store) CreateNote(ctx context.Context, n *Note) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO email_notes (email_id, note, category, priority)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at, updated_at`,
		n.EmailID, n.Note, n.Category, n.Priority,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	logger.Info("note created", "note_id", n.ID, "email_id", n.EmailID)
	return nil
}

// CreateBill inserts one bill row.
func (s *Store) CreateBill(ctx context.Context, b *Bill) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO bills
			(email_id, vendor, amount, currency, due_date, payment_url, description, category, priority)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		b.EmailID, b.Vendor, b.Amount, b.Currency, b.DueDate,
		b.PaymentURL, b.Description, b.Category, b.Priority,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	logger.Info("bill created",
		"bill_id", b.ID, "email_id", b.EmailID, "vendor", b.Vendor, "amount", b.Amount)
	return nil
}

// CreateCoupon inserts one coupon row.
func (s *Store) CreateCoupon(ctx context.Context, c *Coupon) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO coupons
			(email_id, vendor, code, discount, offer_url, expiry_date, description, category, priority)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		c.EmailID, c.Vendor, c.Code, c.Discount, c.OfferURL, c.ExpiryDate,
		c.Description, c.Category, c.Priority,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}
	logger.Info("coupon created",
		"coupon_id", c.ID, "email_id", c.EmailID, "vendor", c.Vendor, "code", c.Code)
	return nil
}
