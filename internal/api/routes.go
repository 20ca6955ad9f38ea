package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. The webhook endpoint and
// health check are unauthenticated; everything under /api/v1 requires
// a valid X-API-Key.
func SetupRoutes(h *Handlers, auth *AuthMiddleware) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://inboxintel.io", "http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// Postmark calls this; it authenticates with its own signature,
	// not a user API key.
	r.Post("/webhook/postmark", h.InboundWebhook)

	// API routes (protected by API key middleware)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.handler)

		r.Route("/emails", func(r chi.Router) {
			r.Get("/", h.ListEmails)
			r.Get("/{emailID}", h.GetEmail)
			r.Get("/{emailID}/thread", h.GetEmailThread)
		})

		r.Route("/threads", func(r chi.Router) {
			r.Get("/", h.ListThreads)
			r.Get("/stats", h.ThreadStats)
			r.Get("/{threadID}", h.GetThread)
		})

		r.Route("/actionables", func(r chi.Router) {
			r.Get("/", h.ListActionables)
			// Alias kept for clients that predate the flat path.
			r.Get("/grouped", h.ListActionables)
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", h.CurrentUser)
			r.Post("/api-key", h.RotateAPIKey)
		})

		r.Get("/attachments/{emailID}/{filename}", h.DownloadAttachment)
	})

	return r
}
