// Package server exposes the guest widget API and the operator API over HTTP.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edgard/widgetbot/internal/config"
	"github.com/edgard/widgetbot/internal/logger"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the services the router dispatches to.
type Deps struct {
	Logger *slog.Logger
	Chat   ChatService
	Admin  AdminService
	Health []Pinger
	Config config.HTTPConfig
}

// NewRouter wires HTTP routes to the chat and admin services.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With("component", "http")

	maxBytes := deps.Config.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = config.DefaultHTTPMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(CORS(deps.Config.AllowedOrigins))

	r.Get("/healthz", healthHandler(deps.Health))

	guest := &guestHandler{chat: deps.Chat, admin: deps.Admin, log: log, maxBytes: maxBytes}
	admin := &adminHandler{admin: deps.Admin, log: log, maxBytes: maxBytes}

	r.Route("/api", func(api chi.Router) {
		guest.RegisterRoutes(api)
		api.Route("/admin", func(ar chi.Router) {
			ar.Use(AdminOnly(deps.Config.AdminToken))
			admin.RegisterRoutes(ar)
		})
	})

	return r
}

// NewHTTPServer creates the http.Server for handler using the configured limits.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(checks []Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// CORS allows the widget to be embedded on the listed origins. "*" allows any origin.
func CORS(allowed []string) func(http.Handler) http.Handler {
	allowAll := len(allowed) == 0 || slices.Contains(allowed, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				switch {
				case allowAll:
					w.Header().Set("Access-Control-Allow-Origin", "*")
				case slices.ContainsFunc(allowed, func(o string) bool { return strings.EqualFold(o, origin) }):
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
