package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/invsync/internal/cache"
	"github.com/JonMunkholm/invsync/internal/core"
)

// SyncInterval is the spacing of scheduled syncs, aligned to midnight.
const SyncInterval = 6 * time.Hour

// Query limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	DefaultChangesLimit = 50
	MaxChangesLimit     = 500
)

// GetInventory returns a variant by SKU, read through the inventory
// lookup cache. With a supplierID it returns that supplier's variant;
// without one it returns the most recently updated variant carrying sku.
func (s *Service) GetInventory(ctx context.Context, supplierID, sku string) (*core.ProductVariant, error) {
	key := core.NewVariantKey(supplierID, sku)
	if key.IsZero() {
		return nil, core.ValidationError{Field: "sku", Message: "sku is required"}
	}
	return cache.GetOrLoad(ctx, s.cache, key.CacheKey(), cache.InventoryLookup,
		func(ctx context.Context) (*core.ProductVariant, error) {
			if key.SupplierID != "" {
				return s.store.GetVariant(ctx, key)
			}
			return s.store.FindVariantBySKU(ctx, key.SKU)
		})
}

// SupplierStatus is one supplier's line in the sync status report.
type SupplierStatus struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
	Syncing   bool       `json:"syncing"`
	Connector bool       `json:"connector"`
	Reachable *bool      `json:"reachable,omitempty"`
}

// StatusReport is the overall sync status.
type StatusReport struct {
	Suppliers        []SupplierStatus `json:"suppliers"`
	NextSync         time.Time        `json:"nextSync"`
	SchedulerEnabled bool             `json:"schedulerEnabled"`
	Cache            cache.Stats      `json:"cache"`
}

// GetSyncStatus reports every supplier's last sync, connector health, the
// next scheduled sync and cache statistics.
func (s *Service) GetSyncStatus(ctx context.Context) (*StatusReport, error) {
	sups, err := s.suppliers.ListSuppliers(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	health := s.connectors.Health(ctx)
	syncing := make(map[string]bool)
	for _, id := range s.limiter.active() {
		syncing[id] = true
	}

	report := &StatusReport{
		Suppliers: make([]SupplierStatus, 0, len(sups)),
		Cache:     s.cache.Stats(),
	}
	for _, sup := range sups {
		st := SupplierStatus{
			ID:       sup.ID,
			Name:     sup.Name,
			Active:   sup.Active,
			LastSync: sup.LastSync,
			Syncing:  syncing[sup.ID],
		}
		if ok, found := health[sup.ID]; found {
			st.Connector = true
			st.Reachable = &ok
		}
		report.Suppliers = append(report.Suppliers, st)
	}

	s.mu.Lock()
	report.SchedulerEnabled = s.schedulerOn
	report.NextSync = s.nextScheduled
	s.mu.Unlock()
	if report.NextSync.IsZero() {
		report.NextSync = NextSyncTime(s.now())
	}
	return report, nil
}

// GetSyncHistory returns the most recent sync runs, newest first.
func (s *Service) GetSyncHistory(ctx context.Context, limit int) ([]core.SyncLog, error) {
	return s.store.SyncHistory(ctx, clampLimit(limit, DefaultHistoryLimit, MaxHistoryLimit))
}

// GetRecentChanges returns the most recent inventory changes, newest first.
func (s *Service) GetRecentChanges(ctx context.Context, limit int) ([]core.InventoryChange, error) {
	return s.store.RecentChanges(ctx, clampLimit(limit, DefaultChangesLimit, MaxChangesLimit))
}

func clampLimit(limit, def, upper int) int {
	switch {
	case limit <= 0:
		return def
	case limit > upper:
		return upper
	default:
		return limit
	}
}

// NextSyncTime rounds now up to a 6-hour boundary (00:00, 06:00, 12:00,
// 18:00 in now's location). A time exactly on a boundary is returned
// unchanged.
func NextSyncTime(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	step := int(SyncInterval / time.Hour)
	if now.Hour()%step == 0 && now.Equal(day.Add(time.Duration(now.Hour())*time.Hour)) {
		return now
	}
	slot := (now.Hour()/step + 1) * step
	if slot >= 24 {
		return day.AddDate(0, 0, 1)
	}
	return day.Add(time.Duration(slot) * time.Hour)
}

// ListSuppliers returns every registered supplier.
func (s *Service) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	return s.suppliers.ListSuppliers(ctx, false)
}

// Variant returns the stored variant for key, bypassing the lookup cache.
func (s *Service) Variant(ctx context.Context, key core.VariantKey) (*core.ProductVariant, error) {
	return s.store.GetVariant(ctx, key)
}
