package api

import (
	"net/http"

	"github.com/inboxly/inbox-intel/internal/email"
	"github.com/inboxly/inbox-intel/internal/pkg/httputil"
)

// ListThreads returns a page of threads the user participates in.
func (h *Handlers) ListThreads(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	page, limit := pageParams(r)
	sortBy, desc := sortParams(r)

	threads, total, err := h.emails.ListThreads(r.Context(), u.ID, email.ListOptions{
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
		Data:       threads,
		Pagination: NewPagination(page, limit, total),
	})
}

// GetThread returns one thread with its emails in position order.
func (h *Handlers) GetThread(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	id, ok := pathID(r, "threadID")
	if !ok {
		httputil.BadRequest(w, "invalid thread id")
		return
	}

	thread, err := h.emails.GetThreadByID(r.Context(), u.ID, id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if thread == nil {
		httputil.NotFound(w, "thread not found")
		return
	}

	h.respondThread(w, r, thread)
}

// GetEmailThread returns the thread containing a given email.
func (h *Handlers) GetEmailThread(w http.ResponseWriter, r *http.Request) {
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
	if !em.ThreadID.Valid {
		httputil.NotFound(w, "email is not part of a thread")
		return
	}

	thread, err := h.emails.GetThreadByID(r.Context(), u.ID, em.ThreadID.Int64)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if thread == nil {
		httputil.NotFound(w, "thread not found")
		return
	}

	h.respondThread(w, r, thread)
}

// ThreadStats returns aggregate threading numbers for the user's inbox.
func (h *Handlers) ThreadStats(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())

	stats, err := h.emails.GetThreadStats(r.Context(), u.ID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// respondThread writes a thread with its emails in position order and
// the distinct participant addresses.
func (h *Handlers) respondThread(w http.ResponseWriter, r *http.Request, thread *email.Thread) {
	emails, err := h.emails.ThreadEmails(r.Context(), thread.ID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	participants, err := h.emails.ThreadParticipants(r.Context(), thread.ID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	thread.Emails = emails
	thread.Participants = participants
	httputil.OK(w, thread)
}
