package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agendei/agendei-server/internal/appointments"
	"github.com/agendei/agendei-server/internal/catalog"
	"github.com/agendei/agendei-server/internal/dialogue"
	httpmiddleware "github.com/agendei/agendei-server/internal/http/middleware"
	"github.com/agendei/agendei-server/internal/webchat"
	"github.com/agendei/agendei-server/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	CatalogHandler      *catalog.Handler
	DialogueHandler     *dialogue.Handler
	AppointmentsHandler *appointments.Handler
	StatsHandler        *appointments.StatsHandler
	WebchatHandler      *webchat.Handler
	MetricsHandler      http.Handler
	ProviderAuthSecret  string
	CORSAllowedOrigins  []string
	RateLimitPerSecond  float64
	RateLimitBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.CatalogHandler != nil {
			public.Get("/providers", cfg.CatalogHandler.ListProviders)
			public.Get("/providers/{slug}", cfg.CatalogHandler.GetProvider)
		}

		if cfg.DialogueHandler != nil {
			public.Post("/providers/{slug}/sessions", cfg.DialogueHandler.Start)
			public.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", cfg.DialogueHandler.GetSession)
				r.Post("/messages", cfg.DialogueHandler.Message)
			})
		}

		if cfg.AppointmentsHandler != nil {
			public.Get("/appointments", cfg.AppointmentsHandler.ListForUser)
			public.Post("/appointments/{id}/cancel", cfg.AppointmentsHandler.Cancel)
		}

		if cfg.WebchatHandler != nil {
			public.Route("/webchat", func(r chi.Router) {
				r.Get("/ws", cfg.WebchatHandler.HandleWebSocket)
				r.Get("/history", cfg.WebchatHandler.HandleHistory)
				r.Get("/widget.js", cfg.WebchatHandler.HandleWidgetJS)
			})
		}
	})

	// Provider dashboard routes, protected by a provider-scoped JWT. Kept
	// under /dashboard so the ID-based tree cannot collide with the public
	// slug-based /providers tree.
	if cfg.ProviderAuthSecret != "" {
		r.Route("/dashboard/providers/{providerID}", func(dashboard chi.Router) {
			dashboard.Use(httpmiddleware.ProviderJWT(cfg.ProviderAuthSecret))
			if cfg.AppointmentsHandler != nil {
				dashboard.Get("/appointments", cfg.AppointmentsHandler.ListForProvider)
			}
			if cfg.StatsHandler != nil {
				dashboard.Get("/stats", cfg.StatsHandler.GetStats)
			}
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
