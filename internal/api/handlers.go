package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/inboxly/inbox-intel/internal/actionable"
	"github.com/inboxly/inbox-intel/internal/email"
	"github.com/inboxly/inbox-intel/internal/extraction"
	"github.com/inboxly/inbox-intel/internal/pkg/httputil"
	"github.com/inboxly/inbox-intel/internal/storage"
	"github.com/inboxly/inbox-intel/internal/user"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	db          *sql.DB
	emails      *email.Store
	ingestor    *email.Ingestor
	actionables *actionable.Store
	users       *user.Store
	keys        *user.KeyIssuer
	blobs       storage.BlobStore
	dispatcher  *extraction.Dispatcher // nil when extraction is disabled

	startTime time.Time
}

// NewHandlers creates the handler set. dispatcher may be nil.
func NewHandlers(
	db *sql.DB,
	emails *email.Store,
	ingestor *email.Ingestor,
	actionables *actionable.Store,
	users *user.Store,
	keys *user.KeyIssuer,
	blobs storage.BlobStore,
	dispatcher *extraction.Dispatcher,
) *Handlers {
	return &Handlers{
		db:          db,
		emails:      emails,
		ingestor:    ingestor,
		actionables: actionables,
		users:       users,
		keys:        keys,
		blobs:       blobs,
		dispatcher:  dispatcher,
		startTime:   time.Now(),
	}
}

// HealthCheck reports service liveness plus database reachability and
// extraction queue depth.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	}

	if err := h.db.PingContext(r.Context()); err != nil {
		resp["status"] = "degraded"
		resp["database"] = "unreachable"
	} else {
		resp["database"] = "ok"
	}

	if h.dispatcher != nil {
		resp["extraction"] = h.dispatcher.Stats()
	}

	status := http.StatusOK
	if resp["status"] != "healthy" {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, resp)
}
