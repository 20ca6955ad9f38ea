package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inboxly/inbox-intel/internal/pkg/httputil"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// DownloadAttachment streams a stored attachment back to its owner.
// The filename in the URL is the unique stored name, so the lookup
// doubles as an ownership check against the email's attachment rows.
func (h *Handlers) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	emailID, ok := pathID(r, "emailID")
	if !ok {
		httputil.BadRequest(w, "invalid email id")
		return
	}
	filename := chi.URLParam(r, "filename")
	if filename == "" || strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		httputil.BadRequest(w, "invalid filename")
		return
	}

	em, err := h.emails.GetEmailByID(r.Context(), u.ID, emailID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if em == nil {
		httputil.NotFound(w, "email not found")
		return
	}

	key := fmt.Sprintf("%d/%s", emailID, filename)
	for _, a := range em.Attachments {
		if !a.FileURL.Valid || !strings.HasSuffix(a.FileURL.String, "/"+filename) {
			continue
		}

		rc, err := h.blobs.Open(r.Context(), key)
		if err != nil {
			logger.Error("failed to open attachment blob",
				"email_id", emailID, "key", key, "error", err.Error())
			httputil.NotFound(w, "attachment not found")
			return
		}
		defer rc.Close()

		if a.ContentType != "" {
			w.Header().Set("Content-Type", a.ContentType)
		} else {
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", a.Filename))
		if _, err := io.Copy(w, rc); err != nil {
			logger.Error("attachment stream interrupted",
				"email_id", emailID, "key", key, "error", err.Error())
		}
		return
	}

	httputil.NotFound(w, "attachment not found")
}
