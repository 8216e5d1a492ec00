// Package web provides the HTTP API for the inventory sync engine: the
// inventory controller, the supplier webhook and the normalization tools.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/invsync/internal/config"
	"github.com/JonMunkholm/invsync/internal/inventory"
	"github.com/JonMunkholm/invsync/internal/logging"
	"github.com/JonMunkholm/invsync/internal/metrics"
	"github.com/JonMunkholm/invsync/internal/pipeline"
	"github.com/JonMunkholm/invsync/internal/web/middleware"
)

// Fallbacks for zero config values, so tests can pass a bare Config.
const (
	defaultRequestTimeout = 60 * time.Second
	defaultRunTimeout     = 30 * time.Minute
	defaultMaxBodyBytes   = 1 << 20
	defaultRatePerMinute  = 100
	defaultSyncPerMinute  = 5
)

// Deps are the services the server exposes.
type Deps struct {
	Inventory  *inventory.Service
	Normalizer *pipeline.Service

	// Metrics is optional; without it /metrics is not mounted.
	Metrics *metrics.Metrics

	// Ping is optional and checks the database for /health.
	Ping func(ctx context.Context) error
}

// Server is the HTTP server for the sync engine.
type Server struct {
	cfg        config.Config
	inventory  *inventory.Service
	normalizer *pipeline.Service
	metrics    *metrics.Metrics
	ping       func(ctx context.Context) error

	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server with its middleware and routes installed.
func NewServer(cfg config.Config, deps Deps) *Server {
	applyDefaults(&cfg)
	if deps.Normalizer == nil {
		deps.Normalizer = pipeline.NewService(nil)
	}

	s := &Server{
		cfg:        cfg,
		inventory:  deps.Inventory,
		normalizer: deps.Normalizer,
		metrics:    deps.Metrics,
		ping:       deps.Ping,
		router:     chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func applyDefaults(cfg *config.Config) {
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Sync.RunTimeout <= 0 {
		cfg.Sync.RunTimeout = defaultRunTimeout
	}
	if cfg.Webhook.MaxBodyBytes <= 0 {
		cfg.Webhook.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Rate.RequestsPerMinute <= 0 {
		cfg.Rate.RequestsPerMinute = defaultRatePerMinute
	}
	if cfg.Rate.SyncLimit <= 0 {
		cfg.Rate.SyncLimit = defaultSyncPerMinute
	}
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	if s.metrics != nil {
		s.router.Use(middleware.Metrics(s.metrics))
	}
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(newRateLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	// Webhooks authenticate with HMAC signatures, not API keys.
	s.router.With(chimw.Timeout(s.cfg.Server.RequestTimeout)).
		Post("/api/webhooks/inventory", s.handleInventoryWebhook)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// Manual syncs and catalog imports run under the sync run timeout
		// and their own, much lower, rate limit.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(newRateLimiter(s.cfg.Rate.SyncLimit).middleware)
			}
			r.Post("/api/inventory/sync", s.handleSyncAll)
			r.Post("/api/inventory/sync/{supplierId}", s.handleSyncSupplier)
			r.Post("/api/suppliers/{supplierId}/catalog", s.handleImportCatalog)
		})

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/api/inventory/status", s.handleSyncStatus)
			r.Get("/api/inventory/history", s.handleSyncHistory)
			r.Get("/api/inventory/changes", s.handleRecentChanges)
			r.Get("/api/inventory/{sku}", s.handleGetInventory)

			r.Get("/api/suppliers", s.handleListSuppliers)
			r.Get("/api/suppliers/detect", s.handleDetectSupplier)
			r.Get("/api/suppliers/{supplierId}/products", s.handleSupplierProducts)
			r.Get("/api/suppliers/{supplierId}/products/{productId}", s.handleSupplierProduct)
			r.Get("/api/suppliers/{supplierId}/products/{productId}/quote", s.handleQuote)
			r.Delete("/api/suppliers/{supplierId}/cache", s.handleInvalidateSupplierCache)

			r.Post("/api/normalize/{supplierId}", s.handleNormalize)
			r.Post("/api/match", s.handleMatch)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	logging.Component("web").Info("starting server", "addr", addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness plus database and cache state. A failing
// database ping answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status":   "ok",
		"database": "ok",
		"cache":    string(s.inventory.Cache().State()),
	}
	status := http.StatusOK

	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			logging.FromContext(r.Context()).Error("health: database ping failed", "error", err)
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
