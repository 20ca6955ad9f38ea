package api

import (
	"net/http"

	"github.com/inboxly/inbox-intel/internal/pkg/httputil"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// CurrentUser returns the authenticated user's profile. The API key
// itself is never echoed back; rotation is the only way to see one.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, UserFrom(r.Context()))
}

// RotateAPIKey issues a fresh API key and invalidates the current one.
// The new key is returned exactly once.
func (h *Handlers) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())

	key, err := h.keys.Generate(u.ID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if err := h.users.SetAPIKey(r.Context(), u.ID, key); err != nil {
		httputil.InternalError(w, err)
		return
	}

	logger.Security("api key rotated", "user_id", u.ID, "remote_addr", r.RemoteAddr)
	httputil.OK(w, map[string]string{"api_key": key})
}
