package email

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// subjectPrefixes are stripped during subject normalization. The list
// is walked once in order and each prefix is removed at most once, so
// "Re: Re: X" keeps its second "Re:" while "Re: Fwd: X" loses both.
var subjectPrefixes = []string{"re:", "fwd:", "fw:", "forward:", "reply:"}

// NormalizeSubject lowers, trims, and strips reply/forward prefixes for
// thread grouping.
func NormalizeSubject(subject string) string {
	if subject == "" {
		return ""
	}

	normalized := strings.ToLower(strings.TrimSpace(subject))
	for _, prefix := range subjectPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			normalized = strings.TrimSpace(normalized[len(prefix):])
		}
	}
	return normalized
}

// ThreadKey computes the deterministic thread key for a subject and
// participant set: md5 over the normalized subject joined with the
// sorted, deduplicated participant addresses.
func ThreadKey(subject string, participants []string) string {
	seen := make(map[string]struct{}, len(participants))
	unique := make([]string, 0, len(participants))
	for _, p := range participants {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	sort.Strings(unique)

	keyData := NormalizeSubject(subject) + ":" + strings.Join(unique, ":")
	sum := md5.Sum([]byte(keyData))
	return hex.EncodeToString(sum[:])
}

// CreateOrGetThread finds the thread for the given subject/participants
// or creates one with email_count=0. Concurrent creation of the same
// key is resolved by the unique constraint: on conflict the existing
// row is re-fetched.
func (s *Store) CreateOrGetThread(ctx context.Context, q dbtx, subject string, participants []string, summary string) (*Thread, error) {
	key := ThreadKey(subject, participants)

	thread, err := s.getThreadByKey(ctx, q, key)
	if err != nil {
		return nil, err
	}
	if thread != nil {
		logger.Debug("using existing thread", "thread_id", thread.ID, "thread_key", key)
		return thread, nil
	}

	if summary == "" {
		subj := subject
		if subj == "" {
			subj = "No subject"
		}
		summary = "Email thread: " + subj
	}

	thread = &Thread{ThreadKey: key, EmailCount: 0}
	err = q.QueryRowContext(ctx, `
		INSERT INTO email_threads (thread_id, subject, thread_summary, email_count)
		VALUES ($1, $2, $3, 0)
		RETURNING id, created_at, updated_at`,
		key, nullString(subject), summary,
	).Scan(&thread.ID, &thread.CreatedAt, &thread.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			existing, ferr := s.getThreadByKey(ctx, q, key)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("create thread: %w", err)
	}

	thread.Subject = nullString(subject)
	thread.ThreadSummary = nullString(summary)
	logger.Info("created new thread", "thread_id", thread.ID, "thread_key", key)
	return thread, nil
}

// AddEmailToThread links the email into the thread: position is
// max+1 among the thread's emails, the counter and first/last refs are
// updated, and updated_at is bumped. All mutations ride the caller's
// transaction.
func (s *Store) AddEmailToThread(ctx context.Context, q dbtx, em *Email, thread *Thread) error {
	var maxPosition sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT MAX(thread_position) FROM emails WHERE thread_id = $1`,
		thread.ID,
	).Scan(&maxPosition)
	if err != nil {
		return fmt.Errorf("max thread position: %w", err)
	}

	position := 0
	if maxPosition.Valid {
		position = int(maxPosition.Int64) + 1
	}

	_, err = q.ExecContext(ctx,
		`UPDATE emails SET thread_id = $1, thread_position = $2 WHERE id = $3`,
		thread.ID, position, em.ID,
	)
	if err != nil {
		return fmt.Errorf("assign email to thread: %w", err)
	}

	firstEmailID := thread.FirstEmailID
	if !firstEmailID.Valid {
		firstEmailID = sql.NullInt64{Int64: em.ID, Valid: true}
	}

	_, err = q.ExecContext(ctx, `
		UPDATE email_threads
		SET email_count = email_count + 1,
		    first_email_id = $1,
		    last_email_id = $2,
		    updated_at = NOW()
		WHERE id = $3`,
		firstEmailID, em.ID, thread.ID,
	)
	if err != nil {
		return fmt.Errorf("update thread metadata: %w", err)
	}

	em.ThreadID = sql.NullInt64{Int64: thread.ID, Valid: true}
	em.ThreadPosition = position
	thread.EmailCount++
	thread.FirstEmailID = firstEmailID
	thread.LastEmailID = sql.NullInt64{Int64: em.ID, Valid: true}

	logger.Debug("added email to thread",
		"email_id", em.ID, "thread_id", thread.ID, "position", position)
	return nil
}

func (s *Store) getThreadByKey(ctx context.Context, q dbtx, key string) (*Thread, error) {
	thread := &Thread{}
	err := q.QueryRowContext(ctx, `
		SELECT id, thread_id, subject, thread_summary, email_count,
		       first_email_id, last_email_id, created_at, updated_at
		FROM email_threads WHERE thread_id = $1`,
		key,
	).Scan(&thread.ID, &thread.ThreadKey, &thread.Subject, &thread.ThreadSummary,
		&thread.EmailCount, &thread.FirstEmailID, &thread.LastEmailID,
		&thread.CreatedAt, &thread.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread by key: %w", err)
	}
	return thread, nil
}
