// Package inventory keeps persisted variant stock, price and lead time in
// step with what suppliers report, through scheduled syncs and inbound
// webhooks, and records every field-level change it applies.
package inventory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/invsync/internal/cache"
	"github.com/JonMunkholm/invsync/internal/connector"
	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/logging"
)

// Defaults applied by NewService to zero Options fields.
const (
	DefaultBatchSize     = 100
	DefaultFetchTimeout  = 5 * time.Second
	DefaultNotifyTimeout = 10 * time.Second
)

// Recorder receives sync metrics. The metrics package provides the
// Prometheus implementation.
type Recorder interface {
	RecordSync(supplierID string, status core.SyncStatus, d time.Duration)
	RecordChange(supplierID string, t core.ChangeType)
	RecordFetchError(supplierID string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSync(string, core.SyncStatus, time.Duration) {}
func (nopRecorder) RecordChange(string, core.ChangeType)             {}
func (nopRecorder) RecordFetchError(string)                          {}

// Deps are the collaborators of a Service. Store, Catalog, Suppliers and
// Connectors are required.
type Deps struct {
	Store      Store
	Catalog    Catalog
	Suppliers  SupplierRegistry
	Connectors *connector.Registry

	// Cache defaults to a disabled cache.
	Cache *cache.Service

	// Notifier defaults to a LogNotifier.
	Notifier Notifier

	// Metrics defaults to a no-op recorder.
	Metrics Recorder
}

// Options tunes a Service.
type Options struct {
	// BatchSize is the number of catalog variants loaded per batch.
	BatchSize int

	// FetchTimeout bounds one supplier product fetch.
	FetchTimeout time.Duration

	// NotifyTimeout bounds one notification dispatch.
	NotifyTimeout time.Duration

	// MaxConcurrentSyncs caps supplier syncs running at once and SlotWait
	// bounds how long a sync waits for a slot.
	MaxConcurrentSyncs int
	SlotWait           time.Duration
}

// Service runs supplier syncs and applies inventory updates.
type Service struct {
	store      Store
	catalog    Catalog
	suppliers  SupplierRegistry
	connectors *connector.Registry
	cache      *cache.Service
	notifier   Notifier
	metrics    Recorder
	opts       Options
	logger     *slog.Logger
	now        func() time.Time

	locks    *keyedMutex
	limiter  *syncLimiter
	notifyWG sync.WaitGroup

	mu            sync.Mutex
	schedulerOn   bool
	nextScheduled time.Time
}

// NewService creates an inventory service.
func NewService(deps Deps, opts Options) *Service {
	if deps.Cache == nil {
		deps.Cache = cache.Disabled()
	}
	if deps.Notifier == nil {
		deps.Notifier = LogNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}

	return &Service{
		store:      deps.Store,
		catalog:    deps.Catalog,
		suppliers:  deps.Suppliers,
		connectors: deps.Connectors,
		cache:      deps.Cache,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		opts:       opts,
		logger:     logging.Component("inventory"),
		now:        time.Now,
		locks:      newKeyedMutex(),
		limiter:    newSyncLimiter(opts.MaxConcurrentSyncs, opts.SlotWait),
	}
}

// Cache returns the cache service shared with the HTTP layer.
func (s *Service) Cache() *cache.Service {
	return s.cache
}

// Connectors returns the connector registry.
func (s *Service) Connectors() *connector.Registry {
	return s.connectors
}

// Drain blocks until running syncs finish or ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.drain(ctx)
}

// WaitNotifications blocks until every dispatched notification finished.
// Called on shutdown so alerts are not cut off mid-flight.
func (s *Service) WaitNotifications() {
	s.notifyWG.Wait()
}
