package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inboxly/inbox-intel/internal/email"
	"github.com/inboxly/inbox-intel/internal/pkg/httputil"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryTime(r *http.Request, name string) time.Time {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t
	}
	return time.Time{}
}

// ListEmails returns a page of the authenticated user's emails.
func (h *Handlers) ListEmails(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	page, limit := pageParams(r)
	sortBy, desc := sortParams(r)

	q := r.URL.Query()
	filter := email.EmailFilter{
		FromEmail:         q.Get("from_email"),
		MailboxHash:       q.Get("mailbox_hash"),
		ActionablesStatus: email.ActionablesStatus(q.Get("actionables_status")),
		SentAfter:         queryTime(r, "sent_after"),
		SentBefore:        queryTime(r, "sent_before"),
	}

	emails, total, err := h.emails.ListEmails(r.Context(), u.ID, filter, email.ListOptions{
		Page:     page,
		Limit:    limit,
		SortBy:   sortBy,
		SortDesc: desc,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, PagedResponse{
		Data:       emails,
		Pagination: NewPagination(page, limit, total),
	})
}

// GetEmail returns one email with recipients, attachments, and headers.
// Emails belonging to other users are indistinguishable from missing.
func (h *Handlers) GetEmail(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	id, ok := pathID(r, "emailID")
	if !ok {
		httputil.BadRequest(w, "invalid email id")
		return
	}

	em, err := h.emails.GetEmailByID(r.Context(), u.ID, id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if em == nil {
		httputil.NotFound(w, "email not found")
		return
	}
	httputil.OK(w, em)
}
