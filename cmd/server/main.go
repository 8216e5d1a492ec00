package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/invsync/internal/cache"
	"github.com/JonMunkholm/invsync/internal/config"
	"github.com/JonMunkholm/invsync/internal/connector"
	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/database"
	"github.com/JonMunkholm/invsync/internal/inventory"
	"github.com/JonMunkholm/invsync/internal/logging"
	"github.com/JonMunkholm/invsync/internal/metrics"
	"github.com/JonMunkholm/invsync/internal/pipeline"
	"github.com/JonMunkholm/invsync/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"cache_enabled", cfg.Cache.Enabled && cfg.Cache.URL != "",
		"scheduler_enabled", cfg.Sync.SchedulerEnabled,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	pool, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	store := database.NewPostgres(pool)

	m := metrics.New()

	cacheSvc := newCache(ctx, cfg.Cache, m)
	defer cacheSvc.Close()

	normalizer := pipeline.NewService(nil)
	connectors, err := registerSuppliers(ctx, cfg, store, normalizer)
	if err != nil {
		slog.Error("failed to register suppliers", "error", err)
		os.Exit(1)
	}

	notifier := inventory.Notifier(inventory.LogNotifier{})
	if cfg.Sync.NotifyURL != "" {
		notifier = inventory.MultiNotifier{
			inventory.LogNotifier{},
			inventory.HTTPNotifier{URL: cfg.Sync.NotifyURL, Client: &http.Client{Timeout: cfg.Sync.NotifyTimeout}},
		}
	}

	service := inventory.NewService(inventory.Deps{
		Store:      store,
		Catalog:    store,
		Suppliers:  store,
		Connectors: connectors,
		Cache:      cacheSvc,
		Notifier:   notifier,
		Metrics:    m,
	}, inventory.Options{
		BatchSize:     cfg.Sync.BatchSize,
		FetchTimeout:  cfg.Sync.FetchTimeout,
		NotifyTimeout: cfg.Sync.NotifyTimeout,

		MaxConcurrentSyncs: cfg.Sync.MaxConcurrent,
		SlotWait:           cfg.Sync.SlotWait,
	})

	server := web.NewServer(*cfg, web.Deps{
		Inventory:  service,
		Normalizer: normalizer,
		Metrics:    m,
		Ping:       store.Ping,
	})

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	if cfg.Sync.SchedulerEnabled {
		go service.StartScheduler(jobCtx)
	}

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if err := service.Drain(shutdownCtx); err != nil {
			slog.Warn("syncs still running at shutdown", "error", err)
		}

		// Let in-flight alerts finish, bounded by the shutdown timeout.
		done := make(chan struct{})
		go func() {
			service.WaitNotifications()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			slog.Warn("notifications did not finish before shutdown timeout")
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// connectDatabase opens and verifies the connection pool.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// newCache builds the shared cache. Without a Redis URL, or with the cache
// disabled, every lookup falls through to the store.
func newCache(ctx context.Context, cfg config.CacheConfig, m *metrics.Metrics) *cache.Service {
	if !cfg.Enabled || cfg.URL == "" {
		slog.Info("cache disabled")
		return cache.New(nil, cache.Options{Recorder: m})
	}

	backend, err := cache.NewRedisBackend(cfg.URL)
	if err != nil {
		slog.Warn("invalid cache URL, cache disabled", "error", err)
		return cache.New(nil, cache.Options{Recorder: m})
	}

	svc := cache.New(backend, cache.Options{
		Retry: core.RetryPolicy{
			MaxAttempts: cfg.ConnectAttempts,
			BaseDelay:   cfg.BackoffBase,
			Multiplier:  2,
			MaxDelay:    cfg.BackoffMax,
		},
		ConnectTimeout: cfg.ConnectTimeout,
		OpTimeout:      cfg.OpTimeout,
		ProbeInterval:  30 * time.Second,
		CostPerCall:    cfg.CostPerCall,
		TTLs: map[cache.Class]time.Duration{
			cache.ProductLists:    cfg.TTLProductLists,
			cache.Prices:          cfg.TTLPrices,
			cache.Inventory:       cfg.TTLInventory,
			cache.ProductDetails:  cfg.TTLProductDetails,
			cache.InventoryLookup: cfg.TTLInventoryLookup,
		},
		Recorder: m,
	})
	state := svc.Connect(ctx)
	slog.Info("cache initialized", "state", state)
	return svc
}

// registerSuppliers records every configured feed in the supplier registry
// and builds its connector.
func registerSuppliers(ctx context.Context, cfg *config.Config, store *database.Postgres, normalizer *pipeline.Service) (*connector.Registry, error) {
	feeds := cfg.Suppliers.FeedURLs()
	ids := make([]string, 0, len(feeds))
	for id := range feeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	registry := connector.NewRegistry()
	for _, id := range ids {
		name := id
		if m, ok := normalizer.Registry().Get(id); ok && m.Name != "" {
			name = m.Name
		}
		if err := store.UpsertSupplier(ctx, core.Supplier{ID: id, Name: name, Active: true, FeedURL: feeds[id]}); err != nil {
			return nil, err
		}

		registry.Register(connector.NewFeed(id, feeds[id], normalizer, connector.FeedOptions{
			Client:  &http.Client{},
			Timeout: cfg.Sync.FetchTimeout,
			Retry: core.RetryPolicy{
				MaxAttempts: cfg.Sync.FetchAttempts,
				BaseDelay:   core.DefaultRetryPolicy.BaseDelay,
				Multiplier:  core.DefaultRetryPolicy.Multiplier,
				MaxDelay:    core.DefaultRetryPolicy.MaxDelay,
			},
			Rate:  cfg.Sync.SupplierRate,
			Burst: cfg.Sync.SupplierBurst,
		}))
		slog.Info("supplier registered", "supplier", id, "name", name)
	}
	return registry, nil
}
