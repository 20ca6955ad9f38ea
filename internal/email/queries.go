package email

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ListOptions control pagination and ordering for list queries. Sort
// columns are validated against per-query allow-lists; anything else
// falls back to the default ordering rather than reaching the database.
type ListOptions struct {
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
}

func (o ListOptions) normalized() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	return o
}

func (o ListOptions) offset() int { return (o.Page - 1) * o.Limit }

// emailSortColumns is the allow-list of client-selectable sort columns
// for email listings.
var emailSortColumns = map[string]string{
	"sent_at":      "sent_at",
	"processed_at": "processed_at",
	"from_email":   "from_email",
	"subject":      "subject",
	"spam_score":   "spam_score",
}

// threadSortColumns is the allow-list for thread listings.
var threadSortColumns = map[string]string{
	"updated_at":  "updated_at",
	"created_at":  "created_at",
	"email_count": "email_count",
	"subject":     "subject",
}

func orderClause(allowed map[string]string, sortBy, fallback string, desc bool) string {
	col, ok := allowed[strings.ToLower(sortBy)]
	if !ok {
		col = fallback
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}

// EmailFilter narrows email listings.
type EmailFilter struct {
	FromEmail         string
	MailboxHash       string
	ActionablesStatus ActionablesStatus
	SentAfter         time.Time
	SentBefore        time.Time
}

// ListEmails returns one page of a user's emails plus the unfiltered
// total for the same filter, newest first by default.
func (s *Store) ListEmails(ctx context.Context, userID int64, filter EmailFilter, opts ListOptions) ([]Email, int64, error) {
	opts = opts.normalized()

	where := []string{"user_id = $1"}
	args := []any{userID}
	if filter.FromEmail != "" {
		args = append(args, filter.FromEmail)
		where = append(where, fmt.Sprintf("from_email = $%d", len(args)))
	}
	if filter.MailboxHash != "" {
		args = append(args, filter.MailboxHash)
		where = append(where, fmt.Sprintf("mailbox_hash = $%d", len(args)))
	}
	if filter.ActionablesStatus != "" {
		args = append(args, filter.ActionablesStatus)
		where = append(where, fmt.Sprintf("actionables_processing_status = $%d", len(args)))
	}
	if !filter.SentAfter.IsZero() {
		args = append(args, filter.SentAfter)
		where = append(where, fmt.Sprintf("sent_at >= $%d", len(args)))
	}
	if !filter.SentBefore.IsZero() {
		args = append(args, filter.SentBefore)
		where = append(where, fmt.Sprintf("sent_at <= $%d", len(args)))
	}
	whereSQL := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM emails"+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count emails: %w", err)
	}

	query := selectEmailColumns + " FROM emails" + whereSQL +
		orderClause(emailSortColumns, opts.SortBy, "processed_at", opts.SortBy == "" || opts.SortDesc) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var emails []Email
	for rows.Next() {
		em, err := s.scanEmailRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan email: %w", err)
		}
		emails = append(emails, *em)
	}
	return emails, total, rows.Err()
}

// GetEmailByID loads one email with recipients, attachments, and
// headers, scoped to the owning user.
func (s *Store) GetEmailByID(ctx context.Context, userID, emailID int64) (*Email, error) {
	em, err := s.scanEmailRow(s.db.QueryRowContext(ctx,
		selectEmailColumns+` FROM emails WHERE id = $1 AND user_id = $2`, emailID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email %d: %w", emailID, err)
	}
	if err := s.loadChildren(ctx, em); err != nil {
		return nil, err
	}
	return em, nil
}

// GetEmailAnyUser loads one email without user scoping, for the
// extraction pipeline.
func (s *Store) GetEmailAnyUser(ctx context.Context, emailID int64) (*Email, error) {
	em, err := s.scanEmailRow(s.db.QueryRowContext(ctx,
		selectEmailColumns+` FROM emails WHERE id = $1`, emailID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email %d: %w", emailID, err)
	}
	return em, nil
}

func (s *Store) loadChildren(ctx context.Context, em *Email) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email_id, recipient_type, email_address, name, mailbox_hash
		FROM email_recipients WHERE email_id = $1 ORDER BY id`, em.ID)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(&r.ID, &r.EmailID, &r.Type, &r.EmailAddress, &r.Name, &r.MailboxHash); err != nil {
			return fmt.Errorf("scan recipient: %w", err)
		}
		em.Recipients = append(em.Recipients, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	arows, err := s.db.QueryContext(ctx, `
		SELECT id, email_id, filename, content_type, content_length, content_id, file_path, file_url, created_at
		FROM email_attachments WHERE email_id = $1 ORDER BY id`, em.ID)
	if err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a Attachment
		if err := arows.Scan(&a.ID, &a.EmailID, &a.Filename, &a.ContentType, &a.ContentLength,
			&a.ContentID, &a.FilePath, &a.FileURL, &a.CreatedAt); err != nil {
			return fmt.Errorf("scan attachment: %w", err)
		}
		em.Attachments = append(em.Attachments, a)
	}
	if err := arows.Err(); err != nil {
		return err
	}

	hrows, err := s.db.QueryContext(ctx, `
		SELECT id, email_id, name, value
		FROM email_headers WHERE email_id = $1 ORDER BY id`, em.ID)
	if err != nil {
		return fmt.Errorf("load headers: %w", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var h Header
		if err := hrows.Scan(&h.ID, &h.EmailID, &h.Name, &h.Value); err != nil {
			return fmt.Errorf("scan header: %w", err)
		}
		em.Headers = append(em.Headers, h)
	}
	return hrows.Err()
}

const selectThreadColumns = `
	SELECT id, thread_id, subject, thread_summary, email_count,
	       first_email_id, last_email_id, created_at, updated_at`

func scanThread(row rowScanner) (*Thread, error) {
	t := &Thread{}
	err := row.Scan(&t.ID, &t.ThreadKey, &t.Subject, &t.ThreadSummary, &t.EmailCount,
		&t.FirstEmailID, &t.LastEmailID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListThreads returns one page of threads containing at least one email
// belonging to the user, most recently active first by default.
func (s *Store) ListThreads(ctx context.Context, userID int64, opts ListOptions) ([]Thread, int64, error) {
	opts = opts.normalized()

	const scope = ` FROM email_threads t
		WHERE EXISTS (SELECT 1 FROM emails e WHERE e.thread_id = t.id AND e.user_id = $1)`

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+scope, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count threads: %w", err)
	}

	query := selectThreadColumns + scope +
		orderClause(threadSortColumns, opts.SortBy, "updated_at", opts.SortBy == "" || opts.SortDesc) +
		" LIMIT $2 OFFSET $3"
	rows, err := s.db.QueryContext(ctx, query, userID, opts.Limit, opts.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, *t)
	}
	return threads, total, rows.Err()
}

// GetThreadByID loads a thread with its emails in thread position
// order, scoped to the user.
func (s *Store) GetThreadByID(ctx context.Context, userID, threadID int64) (*Thread, error) {
	t, err := scanThread(s.db.QueryRowContext(ctx, selectThreadColumns+`
		FROM email_threads t
		WHERE t.id = $1
		  AND EXISTS (SELECT 1 FROM emails e WHERE e.thread_id = t.id AND e.user_id = $2)`,
		threadID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread %d: %w", threadID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		selectEmailColumns+` FROM emails WHERE thread_id = $1 ORDER BY thread_position, id`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("load thread emails: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		em, err := s.scanEmailRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread email: %w", err)
		}
		t.Emails = append(t.Emails, *em)
	}
	return t, rows.Err()
}

// ThreadEmails returns the emails of a thread ordered by position,
// without user scoping. The extraction pipeline uses it to build the
// conversation context passed to the agents.
func (s *Store) ThreadEmails(ctx context.Context, threadID int64) ([]Email, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEmailColumns+` FROM emails WHERE thread_id = $1 ORDER BY thread_position, id`, threadID)
	if err != nil {
		return nil, fmt.Errorf("thread emails: %w", err)
	}
	defer rows.Close()
	var emails []Email
	for rows.Next() {
		em, err := s.scanEmailRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread email: %w", err)
		}
		emails = append(emails, *em)
	}
	return emails, rows.Err()
}

// ThreadStats aggregates a user's threading numbers.
type ThreadStats struct {
	TotalThreads     int64   `json:"total_threads"`
	TotalEmails      int64   `json:"total_emails"`
	ThreadedEmails   int64   `json:"threaded_emails"`
	UnthreadedEmails int64   `json:"unthreaded_emails"`
	AvgThreadLength  float64 `json:"avg_thread_length"`
	LargestThread    int64   `json:"largest_thread"`
}

// GetThreadStats computes summary numbers over the user's mailbox.
func (s *Store) GetThreadStats(ctx context.Context, userID int64) (*ThreadStats, error) {
	st := &ThreadStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(thread_id),
		       COUNT(*) - COUNT(thread_id)
		FROM emails WHERE user_id = $1`, userID,
	).Scan(&st.TotalEmails, &st.ThreadedEmails, &st.UnthreadedEmails)
	if err != nil {
		return nil, fmt.Errorf("thread stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(email_count), 0), COALESCE(MAX(email_count), 0)
		FROM email_threads t
		WHERE EXISTS (SELECT 1 FROM emails e WHERE e.thread_id = t.id AND e.user_id = $1)`,
		userID,
	).Scan(&st.TotalThreads, &st.AvgThreadLength, &st.LargestThread)
	if err != nil {
		return nil, fmt.Errorf("thread stats aggregates: %w", err)
	}
	return st, nil
}

// ThreadParticipants returns the distinct addresses appearing in a
// thread, senders and recipients alike.
func (s *Store) ThreadParticipants(ctx context.Context, threadID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT addr FROM (
			SELECT LOWER(from_email) AS addr FROM emails WHERE thread_id = $1
			UNION
			SELECT LOWER(r.email_address) FROM email_recipients r
			JOIN emails e ON e.id = r.email_id WHERE e.thread_id = $1
		) p ORDER BY addr`, threadID)
	if err != nil {
		return nil, fmt.Errorf("thread participants: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
