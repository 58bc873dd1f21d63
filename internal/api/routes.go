package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openvenue/mailroom/internal/auth"
	"github.com/openvenue/mailroom/internal/pkg/httputil"
)

// SetupRoutes builds the router. Public endpoints carry no auth; admin
// endpoints require a bearer token; the webhook and cron endpoints use their
// own verification schemes.
func SetupRoutes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Public newsletter flows (emailed links and the signup form).
		r.Route("/newsletter", func(r chi.Router) {
			r.Post("/subscribe", h.handleSubscribe)
			r.Get("/confirm", h.handleConfirm)
			r.Get("/unsubscribe", h.handleUnsubscribe)
			r.Post("/unsubscribe", h.handleUnsubscribe)
		})

		// Public site data.
		r.Get("/archive", h.handleArchiveList)
		r.Get("/archive/{slug}", h.handleArchiveBySlug)
		r.Get("/events", h.handlePublicEvents)
		r.Get("/articles", h.handlePublicArticles)

		// Provider callbacks and the platform cron trigger.
		r.Post("/webhooks/email", h.handleWebhook)
		r.Get("/cron/newsletters", h.handleCronTrigger)
		r.Post("/cron/newsletters", h.handleCronTrigger)

		// Admin surface.
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMW.Authenticate)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleViewer))
				r.Get("/newsletters", h.handleNewsletterList)
				r.Get("/newsletters/{id}", h.handleNewsletterGet)
				r.Get("/newsletters/{id}/blocks", h.handleBlocksGet)
				r.Get("/newsletters/{id}/stats", h.handleStatsGet)
				r.Get("/subscribers", h.handleSubscriberList)
				r.Get("/test-recipients", h.handleTestRecipientList)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleEditor))
				r.Post("/newsletters", h.handleNewsletterCreate)
				r.Put("/newsletters/{id}", h.handleNewsletterUpdate)
				r.Put("/newsletters/{id}/blocks", h.handleBlocksSet)
				r.Post("/newsletters/{id}/schedule", h.handleSchedule)
				r.Post("/newsletters/{id}/unschedule", h.handleUnschedule)
				r.Post("/newsletters/{id}/send", h.handleSend)
				r.Post("/newsletters/{id}/send-test", h.handleSendTest)
				r.Post("/test-recipients", h.handleTestRecipientCreate)
				r.Delete("/test-recipients/{id}", h.handleTestRecipientDelete)

				r.Post("/events", h.handleEventCreate)
				r.Put("/events/{id}", h.handleEventUpdate)
				r.Delete("/events/{id}", h.handleEventDelete)
				r.Get("/events", h.handleEventList)
				r.Post("/articles", h.handleArticleCreate)
				r.Put("/articles/{id}", h.handleArticleUpdate)
				r.Delete("/articles/{id}", h.handleArticleDelete)
				r.Get("/articles", h.handleArticleList)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin))
				r.Delete("/newsletters/{id}", h.handleNewsletterDelete)
			})
		})
	})

	return r
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DB().PingContext(r.Context()); err != nil {
		httputil.Error(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	httputil.OK(w, map[string]string{"status": "ok"})
}
