package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/inboxly/inbox-intel/internal/config"
	"github.com/inboxly/inbox-intel/internal/pkg/httputil"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
	"github.com/inboxly/inbox-intel/internal/ratelimit"
	"github.com/inboxly/inbox-intel/internal/user"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

// UserFrom returns the authenticated user placed on the context by the
// auth middleware.
func UserFrom(ctx context.Context) *user.User {
	u, _ := ctx.Value(userContextKey).(*user.User)
	return u
}

// AuthMiddleware validates the X-API-Key header, enforces account
// lockout and the per-user rate limit, and attaches the user to the
// request context. Failures are written to the security log channel.
type AuthMiddleware struct {
	users   *user.Store
	keys    *user.KeyIssuer
	limiter ratelimit.Limiter
	cfg     config.AuthConfig
}

func NewAuthMiddleware(users *user.Store, keys *user.KeyIssuer, limiter ratelimit.Limiter, cfg config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{users: users, keys: keys, limiter: limiter, cfg: cfg}
}

func (m *AuthMiddleware) handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			logger.Security("request without api key",
				"path", r.URL.Path, "remote_addr", r.RemoteAddr)
			httputil.Unauthorized(w, "missing API key")
			return
		}

		userID, err := m.keys.Verify(apiKey)
		if err != nil {
			logger.Security("invalid api key",
				"path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", err.Error())
			httputil.Unauthorized(w, "invalid API key")
			return
		}

		u, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		if u == nil || !u.IsActive {
			logger.Security("api key for unknown or inactive user",
				"user_id", userID, "remote_addr", r.RemoteAddr)
			httputil.Unauthorized(w, "invalid API key")
			return
		}

		now := time.Now().UTC()
		if u.Locked(now) {
			logger.Security("request against locked account",
				"user_id", u.ID, "remote_addr", r.RemoteAddr)
			httputil.Error(w, http.StatusForbidden, "account temporarily locked")
			return
		}

		// The signature checked out but the key must also be the
		// user's current one, otherwise rotated-out keys stay valid.
		if !u.APIKey.Valid || u.APIKey.String != apiKey {
			locked, lerr := m.users.RecordAuthFailure(r.Context(), u.ID,
				m.cfg.LockoutThreshold, time.Duration(m.cfg.LockoutMinutes)*time.Minute)
			if lerr != nil {
				logger.Error("failed to record auth failure", "user_id", u.ID, "error", lerr.Error())
			}
			logger.Security("stale api key presented",
				"user_id", u.ID, "remote_addr", r.RemoteAddr, "locked", locked)
			httputil.Unauthorized(w, "invalid API key")
			return
		}

		allowed, err := m.limiter.Allow(r.Context(), strconv.FormatInt(u.ID, 10),
			m.cfg.RateLimitRequests, m.cfg.RateLimitWindow())
		if err != nil {
			// Fail open: a broken limiter backend must not take the
			// API down.
			logger.Warn("rate limiter unavailable", "user_id", u.ID, "error", err.Error())
			allowed = true
		}
		if !allowed {
			logger.Security("rate limit exceeded",
				"user_id", u.ID, "remote_addr", r.RemoteAddr)
			httputil.ErrorCode(w, http.StatusTooManyRequests, "rate limit exceeded", "RATE_LIMITED")
			return
		}

		if err := m.users.RecordAuthSuccess(r.Context(), u.ID); err != nil {
			logger.Error("failed to record auth success", "user_id", u.ID, "error", err.Error())
		}

		ctx := context.WithValue(r.Context(), userContextKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
