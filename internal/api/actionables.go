package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/inboxly/inbox-intel/internal/actionable"
	"github.com/inboxly/inbox-intel/internal/pkg/httputil"
)

var knownActionableTypes = map[actionable.Type]bool{
	actionable.TypeEvent:    true,
	actionable.TypeReminder: true,
	actionable.TypeFollowUp: true,
	actionable.TypeNote:     true,
	actionable.TypeBill:     true,
	actionable.TypeCoupon:   true,
}

// parseTypes reads the comma-separated ?types= filter. Unknown names
// are rejected so a typo does not silently return everything.
func parseTypes(raw string) ([]actionable.Type, string) {
	if raw == "" {
		return nil, ""
	}
	var out []actionable.Type
	for _, part := range strings.Split(raw, ",") {
		t := actionable.Type(strings.TrimSpace(strings.ToLower(part)))
		if t == "" {
			continue
		}
		if !knownActionableTypes[t] {
			return nil, string(t)
		}
		out = append(out, t)
	}
	return out, ""
}

// ListActionables returns the grouped extraction results for the
// authenticated user: calendar (events, reminders, follow-ups), notes,
// and shopping (bills, coupons).
func (h *Handlers) ListActionables(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	page, limit := pageParams(r)
	q := r.URL.Query()

	types, bad := parseTypes(q.Get("types"))
	if bad != "" {
		httputil.BadRequest(w, "unknown actionable type: "+bad)
		return
	}

	emailID, _ := strconv.ParseInt(q.Get("email_id"), 10, 64)
	threadID, _ := strconv.ParseInt(q.Get("thread_id"), 10, 64)

	req := actionable.ListRequest{
		Page:      page,
		Limit:     limit,
		Types:     types,
		EmailID:   emailID,
		ThreadID:  threadID,
		StartDate: queryTime(r, "start_date"),
		EndDate:   queryTime(r, "end_date"),
	}

	grouped, err := h.actionables.List(r.Context(), u.ID, req)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, PagedResponse{
		Data:       grouped,
		Pagination: NewPagination(page, limit, int64(grouped.TotalCount)),
	})
}
