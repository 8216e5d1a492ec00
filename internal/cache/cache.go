// Package cache is the read-through/write-through cache in front of
// supplier calls and inventory lookups.
//
// The cache is strictly derived state. Every operation is best effort:
// Get reports a miss on any backend problem and Set/Delete report false,
// so callers never see a cache error. After the connect retry budget is
// spent the service enters StateDegraded and stops touching the backend
// until a reconnect event (OnReconnect) restores it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/logging"
)

// ErrMiss is returned by a Backend when the key does not exist.
var ErrMiss = errors.New("cache miss")

// State is the cache connection state.
type State string

const (
	StateDisabled   State = "disabled"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateDegraded   State = "degraded"
)

// Class is a data class with its own TTL.
type Class string

const (
	ProductLists    Class = "productLists"
	Prices          Class = "prices"
	Inventory       Class = "inventory"
	ProductDetails  Class = "productDetails"
	InventoryLookup Class = "inventoryLookup"
)

// DefaultTTLs are the lifetimes used when Options.TTLs omits a class.
var DefaultTTLs = map[Class]time.Duration{
	ProductLists:    time.Hour,
	Prices:          30 * time.Minute,
	Inventory:       15 * time.Minute,
	ProductDetails:  2 * time.Hour,
	InventoryLookup: 5 * time.Minute,
}

// Backend is the storage the service fronts. Redis in production, a fake
// in tests.
type Backend interface {
	Ping(ctx context.Context) error
	// Get returns ErrMiss when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes keys matching a glob pattern and returns how
	// many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)
	Close() error
}

// ReconnectNotifier is implemented by backends that can signal when the
// underlying connection has been re-established.
type ReconnectNotifier interface {
	SetReconnectHandler(fn func())
}

// Recorder receives hit/miss/error events, typically Prometheus counters.
type Recorder interface {
	RecordHit(class string)
	RecordMiss(class string)
	RecordError(op string)
	RecordState(state string)
}

type nopRecorder struct{}

func (nopRecorder) RecordHit(string)   {}
func (nopRecorder) RecordMiss(string)  {}
func (nopRecorder) RecordError(string) {}
func (nopRecorder) RecordState(string) {}

// Options configures a Service.
type Options struct {
	// Retry drives Connect. Zero fields take core.DefaultRetryPolicy values.
	Retry core.RetryPolicy

	// ConnectTimeout bounds each connect attempt (default 5s).
	ConnectTimeout time.Duration

	// OpTimeout bounds each backend call (default 1s).
	OpTimeout time.Duration

	// ProbeInterval is how often a degraded service pings the backend in
	// the background. Zero disables probing; recovery then relies on the
	// backend's own reconnect event.
	ProbeInterval time.Duration

	// CostPerCall is the estimated upstream cost saved by one hit.
	CostPerCall float64

	// TTLs overrides DefaultTTLs per class.
	TTLs map[Class]time.Duration

	Recorder Recorder
	Logger   *slog.Logger
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	State              State   `json:"state"`
	Hits               int64   `json:"hits"`
	Misses             int64   `json:"misses"`
	Errors             int64   `json:"errors"`
	HitRate            float64 `json:"hitRate"`
	EstimatedCostSaved float64 `json:"estimatedCostSaved"`
}

// Service is the single cache instance shared by every consumer.
type Service struct {
	backend  Backend
	opts     Options
	recorder Recorder
	logger   *slog.Logger

	mu        sync.RWMutex
	state     State
	probeStop chan struct{}

	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
}

// New creates a service in front of backend. A nil backend yields a
// disabled service on which every call is a no-op miss.
func New(backend Backend, opts Options) *Service {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = time.Second
	}
	s := &Service{
		backend:  backend,
		opts:     opts,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		state:    StateDisabled,
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = logging.Component("cache")
	}
	if n, ok := backend.(ReconnectNotifier); ok && backend != nil {
		n.SetReconnectHandler(s.OnReconnect)
	}
	return s
}

// Disabled returns a service with no backend.
func Disabled() *Service {
	return New(nil, Options{})
}

// Connect pings the backend under the retry policy, each attempt bounded
// by ConnectTimeout. It ends in StateConnected or StateDegraded (or stays
// StateDisabled without a backend) and never returns an error.
func (s *Service) Connect(ctx context.Context) State {
	if s.backend == nil {
		return StateDisabled
	}
	s.setState(StateConnecting)

	attempt := 0
	err := s.opts.Retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
		defer cancel()
		if err := s.backend.Ping(pingCtx); err != nil {
			s.logger.Warn("cache connect attempt failed", "attempt", attempt, "error", err)
			return core.Transient("cache connect", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("cache unavailable, running degraded", "attempts", attempt, "error", err)
		s.degrade()
		return StateDegraded
	}

	s.logger.Info("cache connected")
	s.setState(StateConnected)
	return StateConnected
}

// OnReconnect is the backend's reconnect event. It restores a degraded
// service to StateConnected; in any other state it does nothing.
func (s *Service) OnReconnect() {
	s.mu.Lock()
	if s.state != StateDegraded {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	if s.probeStop != nil {
		close(s.probeStop)
		s.probeStop = nil
	}
	s.mu.Unlock()

	s.recorder.RecordState(string(StateConnected))
	s.logger.Info("cache reconnected")
}

// State returns the current connection state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.recorder.RecordState(string(st))
}

func (s *Service) degrade() {
	s.mu.Lock()
	s.state = StateDegraded
	if s.opts.ProbeInterval > 0 && s.probeStop == nil {
		s.probeStop = make(chan struct{})
		go s.probe(s.probeStop)
	}
	s.mu.Unlock()
	s.recorder.RecordState(string(StateDegraded))
}

// probe pings a degraded backend until it answers or stop is closed.
func (s *Service) probe(stop <-chan struct{}) {
	ticker := time.NewTicker(s.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConnectTimeout)
			err := s.backend.Ping(ctx)
			cancel()
			if err == nil {
				s.OnReconnect()
				return
			}
		}
	}
}

func (s *Service) usable() bool {
	return s.backend != nil && s.State() == StateConnected
}

// TTL returns the lifetime for a data class.
func (s *Service) TTL(class Class) time.Duration {
	if ttl, ok := s.opts.TTLs[class]; ok && ttl > 0 {
		return ttl
	}
	if ttl, ok := DefaultTTLs[class]; ok {
		return ttl
	}
	return DefaultTTLs[Inventory]
}

// Get decodes the cached JSON value for key into dest and reports whether
// it did. Misses, backend errors, decode errors and a non-connected state
// all report false.
func (s *Service) Get(ctx context.Context, key string, dest any) bool {
	return s.get(ctx, key, "", dest)
}

func (s *Service) get(ctx context.Context, key string, class Class, dest any) bool {
	if !s.usable() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	data, err := s.backend.Get(ctx, key)
	switch {
	case errors.Is(err, ErrMiss):
		s.misses.Add(1)
		s.recorder.RecordMiss(string(class))
		return false
	case err != nil:
		s.recordError("get", key, err)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.recordError("decode", key, err)
		return false
	}
	s.hits.Add(1)
	s.recorder.RecordHit(string(class))
	return true
}

// Set stores value as JSON under key with the class TTL.
func (s *Service) Set(ctx context.Context, key string, value any, class Class) bool {
	if !s.usable() {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.recordError("encode", key, err)
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	if err := s.backend.Set(ctx, key, data, s.TTL(class)); err != nil {
		s.recordError("set", key, err)
		return false
	}
	return true
}

// Delete removes keys.
func (s *Service) Delete(ctx context.Context, keys ...string) bool {
	if !s.usable() || len(keys) == 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.recordError("delete", keys[0], err)
		return false
	}
	return true
}

// DeletePattern removes every key matching the glob pattern.
func (s *Service) DeletePattern(ctx context.Context, pattern string) bool {
	if !s.usable() {
		return false
	}
	// Pattern deletes walk the keyspace; give them more room.
	ctx, cancel := context.WithTimeout(ctx, 5*s.opts.OpTimeout)
	defer cancel()

	n, err := s.backend.DeletePattern(ctx, pattern)
	if err != nil {
		s.recordError("delete_pattern", pattern, err)
		return false
	}
	s.logger.Debug("cache pattern deleted", "pattern", pattern, "keys", n)
	return true
}

func (s *Service) recordError(op, key string, err error) {
	s.errs.Add(1)
	s.recorder.RecordError(op)
	s.logger.Warn("cache operation failed", "op", op, "key", key, "error", err)
}

// Stats returns counters and derived figures.
func (s *Service) Stats() Stats {
	hits, misses := s.hits.Load(), s.misses.Load()
	st := Stats{
		State:              s.State(),
		Hits:               hits,
		Misses:             misses,
		Errors:             s.errs.Load(),
		EstimatedCostSaved: float64(hits) * s.opts.CostPerCall,
	}
	if total := hits + misses; total > 0 {
		st.HitRate = float64(hits) / float64(total)
	}
	return st
}

// Close stops background probing and closes the backend.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.probeStop != nil {
		close(s.probeStop)
		s.probeStop = nil
	}
	s.state = StateDisabled
	s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// GetOrLoad returns the cached value for key or calls load and caches its
// result under class. Load errors are returned uncached; cache problems
// only cost the extra load.
func GetOrLoad[T any](ctx context.Context, s *Service, key string, class Class, load func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if s.get(ctx, key, class, &cached) {
		return cached, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	s.Set(ctx, key, v, class)
	return v, nil
}
