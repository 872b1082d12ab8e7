// Package main provides the API router setup.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/squareb/menu-chatbot/cmd/chatbot-api/handlers"
	"github.com/squareb/menu-chatbot/cmd/chatbot-api/middleware"
	"github.com/squareb/menu-chatbot/internal/conversation"
	"github.com/squareb/menu-chatbot/internal/menu"
	"github.com/squareb/menu-chatbot/internal/metrics"
	"github.com/squareb/menu-chatbot/internal/observability"
	"github.com/squareb/menu-chatbot/internal/session"
)

// Services bundles what the routes need.
type Services struct {
	Menus    *menu.Store
	Engine   *conversation.Engine
	Sessions *session.Store
	Locker   *session.Locker
	// OnReload runs after a reload requested through the API succeeds.
	OnReload func(ctx context.Context)
}

// AppConfig holds router configuration.
type AppConfig struct {
	ServiceName      string
	RestaurantName   string
	RequestTimeout   time.Duration
	AllowedOrigins   []string
	StaticDir        string
	DefaultThreshold float64
	MetricsEnabled   bool
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *AppConfig, svc *Services) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	menuItems := func() (int, bool) {
		idx, err := svc.Menus.Current()
		if err != nil {
			return 0, false
		}
		return idx.Len(), true
	}

	healthHandler := handlers.NewHealthHandler(cfg.ServiceName, cfg.RestaurantName, cfg.StaticDir, menuItems)
	chatHandler := handlers.NewChatHandler(logger, svc.Engine, svc.Sessions, svc.Locker)
	menuHandler := handlers.NewMenuHandler(logger, svc.Menus, cfg.DefaultThreshold, svc.OnReload)
	sessionHandler := handlers.NewSessionHandler(logger, svc.Sessions)

	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)

	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	if cfg.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir)))
		r.Handle("/static/*", fs)
	}

	r.Post("/chat", chatHandler.Chat)

	r.Route("/menu", func(r chi.Router) {
		r.Get("/", menuHandler.List)
		r.Get("/search", menuHandler.Search)
		r.Post("/reload", menuHandler.Reload)
	})

	r.Delete("/session/{sessionId}", sessionHandler.Delete)

	return r
}
