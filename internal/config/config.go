// Package config loads the sync engine's settings from environment
// variables, applies defaults and validates everything on startup so a
// misconfigured process fails before it touches a supplier.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Sync      SyncConfig
	Suppliers SupplierConfig
	Webhook   WebhookConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds ordinary API calls (default: 60s). Manual sync
	// endpoints run under SyncConfig.RunTimeout instead.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// CacheConfig holds the Redis cache settings. An empty URL or
// Enabled=false leaves the cache disabled and every lookup falls through.
type CacheConfig struct {
	Enabled bool   `env:"CACHE_ENABLED" default:"true"`
	URL     string `env:"REDIS_URL" envAlt:"CACHE_URL"`

	// ConnectAttempts, BackoffBase and BackoffMax drive the connect retry
	// policy; ConnectTimeout bounds each attempt.
	ConnectAttempts int           `env:"CACHE_CONNECT_ATTEMPTS" default:"3"`
	BackoffBase     time.Duration `env:"CACHE_BACKOFF_BASE" default:"100ms"`
	BackoffMax      time.Duration `env:"CACHE_BACKOFF_MAX" default:"2s"`
	ConnectTimeout  time.Duration `env:"CACHE_CONNECT_TIMEOUT" default:"5s"`

	// OpTimeout bounds every get/set/delete against the backend.
	OpTimeout time.Duration `env:"CACHE_OP_TIMEOUT" default:"1s"`

	// CostPerCall is the estimated upstream cost (USD) saved per cache hit.
	CostPerCall float64 `env:"CACHE_COST_PER_CALL" default:"0.001"`

	TTLProductLists    time.Duration `env:"CACHE_TTL_PRODUCT_LISTS" default:"1h"`
	TTLPrices          time.Duration `env:"CACHE_TTL_PRICES" default:"30m"`
	TTLInventory       time.Duration `env:"CACHE_TTL_INVENTORY" default:"15m"`
	TTLProductDetails  time.Duration `env:"CACHE_TTL_PRODUCT_DETAILS" default:"2h"`
	TTLInventoryLookup time.Duration `env:"CACHE_TTL_INVENTORY_LOOKUP" default:"5m"`
}

// SyncConfig holds inventory sync settings.
type SyncConfig struct {
	// BatchSize is the number of catalog variants loaded per batch (default: 100)
	BatchSize int `env:"SYNC_BATCH_SIZE" default:"100"`

	// FetchTimeout bounds a single supplier product fetch (default: 5s)
	FetchTimeout time.Duration `env:"SYNC_FETCH_TIMEOUT" default:"5s"`

	// FetchAttempts is the retry budget for a transient fetch failure (default: 3)
	FetchAttempts int `env:"SYNC_FETCH_ATTEMPTS" default:"3"`

	// RunTimeout bounds a whole manual sync run (default: 30m)
	RunTimeout time.Duration `env:"SYNC_RUN_TIMEOUT" default:"30m"`

	// NotifyTimeout bounds a single notification dispatch (default: 10s)
	NotifyTimeout time.Duration `env:"SYNC_NOTIFY_TIMEOUT" default:"10s"`

	// NotifyURL receives stock alerts as JSON POSTs. Alerts are only
	// logged when empty.
	NotifyURL string `env:"SYNC_NOTIFY_URL"`

	// SchedulerEnabled starts the 6-hourly sync loop (default: false)
	SchedulerEnabled bool `env:"SYNC_SCHEDULER_ENABLED" default:"false"`

	// MaxConcurrent caps supplier syncs running at once; SlotWait is how
	// long a sync waits for a free slot before giving up.
	MaxConcurrent int           `env:"SYNC_MAX_CONCURRENT" default:"2"`
	SlotWait      time.Duration `env:"SYNC_SLOT_WAIT" default:"30s"`

	// SupplierRate is the per-supplier fetch rate in requests per second
	// and SupplierBurst its burst size.
	SupplierRate  float64 `env:"SYNC_SUPPLIER_RATE" default:"10"`
	SupplierBurst int     `env:"SYNC_SUPPLIER_BURST" default:"5"`
}

// SupplierConfig lists the supplier JSON feeds as "id=url" pairs, e.g.
// SUPPLIER_FEEDS=ascolour=https://feeds.example.com/ascolour.json
type SupplierConfig struct {
	Feeds []string `env:"SUPPLIER_FEEDS"`
}

// FeedURLs parses Feeds into a supplier id to URL map. Malformed entries
// are skipped; Validate reports them.
func (c *SupplierConfig) FeedURLs() map[string]string {
	return parsePairs(c.Feeds)
}

// WebhookConfig holds inbound webhook settings.
type WebhookConfig struct {
	// Secrets are "supplierId=secret" pairs used for HMAC verification.
	// Suppliers without a secret are accepted unsigned with a warning.
	Secrets []string `env:"WEBHOOK_SECRETS"`

	// MaxBodyBytes caps the webhook request body (default: 1MB)
	MaxBodyBytes int64 `env:"WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
}

// SecretFor returns the webhook secret configured for supplierID.
func (c *WebhookConfig) SecretFor(supplierID string) string {
	return parsePairs(c.Secrets)[strings.ToLower(strings.TrimSpace(supplierID))]
}

// RateLimitConfig holds per-IP HTTP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// SyncLimit is requests per minute for manual sync endpoints (default: 5)
	SyncLimit int `env:"RATE_LIMIT_SYNC" default:"5"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys protect the inventory API. The webhook authenticates with
	// HMAC signatures instead.
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey rejects API calls without a valid key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// parsePairs splits "key=value" entries into a map with lowercased keys.
func parsePairs(entries []string) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
