package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/invsync/internal/core"
)

// Memory is an in-process store with the same behavior as Postgres. It
// backs tests and runs without a database. Values are copied in and out so
// callers never share state with the store.
type Memory struct {
	mu        sync.RWMutex
	suppliers map[string]core.Supplier
	catalog   map[string][]core.CatalogVariant
	variants  map[core.VariantKey]core.ProductVariant
	changes   []core.InventoryChange
	logs      []core.SyncLog
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		suppliers: make(map[string]core.Supplier),
		catalog:   make(map[string][]core.CatalogVariant),
		variants:  make(map[core.VariantKey]core.ProductVariant),
	}
}

/* ----------------------------------------
	Suppliers
---------------------------------------- */

func (m *Memory) UpsertSupplier(ctx context.Context, sup core.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sup.ID = normalizeSupplierID(sup.ID)
	if old, ok := m.suppliers[sup.ID]; ok {
		sup.LastSync = old.LastSync
	}
	m.suppliers[sup.ID] = sup
	return nil
}

func (m *Memory) GetSupplier(ctx context.Context, id string) (*core.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id = normalizeSupplierID(id)
	sup, ok := m.suppliers[id]
	if !ok {
		return nil, &core.NotFoundError{Resource: "supplier", ID: id}
	}
	return &sup, nil
}

func (m *Memory) ListSuppliers(ctx context.Context, activeOnly bool) ([]core.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Supplier, 0, len(m.suppliers))
	for _, sup := range m.suppliers {
		if activeOnly && !sup.Active {
			continue
		}
		out = append(out, sup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) MarkSynced(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id = normalizeSupplierID(id)
	sup, ok := m.suppliers[id]
	if !ok {
		return nil
	}
	sup.LastSync = &at
	m.suppliers[id] = sup
	return nil
}

/* ----------------------------------------
	Catalog
---------------------------------------- */

func (m *Memory) UpsertCatalogVariants(ctx context.Context, variants []core.CatalogVariant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range variants {
		key := v.Key()
		v.SupplierID, v.SKU = key.SupplierID, key.SKU
		list := m.catalog[key.SupplierID]
		replaced := false
		for i := range list {
			if list[i].SKU == key.SKU {
				list[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, v)
		}
		m.catalog[key.SupplierID] = list
	}
	return nil
}

func (m *Memory) ListCatalogVariants(ctx context.Context, supplierID string, offset, limit int) ([]core.CatalogVariant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.catalog[normalizeSupplierID(supplierID)]
	if offset >= len(list) {
		return nil, nil
	}
	end := min(offset+limit, len(list))
	out := make([]core.CatalogVariant, end-offset)
	copy(out, list[offset:end])
	return out, nil
}

func (m *Memory) FindCatalogVariant(ctx context.Context, key core.VariantKey) (*core.CatalogVariant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.catalog[key.SupplierID] {
		if v.SKU == key.SKU {
			return &v, nil
		}
	}
	return nil, &core.NotFoundError{Resource: "variant", ID: key.String()}
}

/* ----------------------------------------
	Variants
---------------------------------------- */

func (m *Memory) GetVariant(ctx context.Context, key core.VariantKey) (*core.ProductVariant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.variants[key]
	if !ok {
		return nil, &core.NotFoundError{Resource: "variant", ID: key.String()}
	}
	return cloneVariant(v), nil
}

// FindVariantBySKU returns the most recently updated variant with sku.
func (m *Memory) FindVariantBySKU(ctx context.Context, sku string) (*core.ProductVariant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sku = strings.ToUpper(strings.TrimSpace(sku))
	var best *core.ProductVariant
	for k, v := range m.variants {
		if k.SKU != sku {
			continue
		}
		if best == nil || v.UpdatedAt.After(best.UpdatedAt) {
			best = cloneVariant(v)
		}
	}
	if best == nil {
		return nil, &core.NotFoundError{Resource: "variant", ID: sku}
	}
	return best, nil
}

func (m *Memory) InsertVariant(ctx context.Context, v *core.ProductVariant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := v.Key()
	if _, exists := m.variants[key]; exists {
		return core.ValidationError{Field: "sku", Value: key.String(), Message: "variant already exists"}
	}
	m.variants[key] = *cloneVariant(*v)
	return nil
}

func (m *Memory) UpdateVariant(ctx context.Context, v *core.ProductVariant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := v.Key()
	if _, exists := m.variants[key]; !exists {
		return &core.NotFoundError{Resource: "variant", ID: key.String()}
	}
	m.variants[key] = *cloneVariant(*v)
	return nil
}

// ApplyVariantUpdate stores the variant and its changes under one lock.
// Nothing is written when the variant is missing or a change id is
// already recorded.
func (m *Memory) ApplyVariantUpdate(ctx context.Context, v *core.ProductVariant, changes []core.InventoryChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := v.Key()
	if _, exists := m.variants[key]; !exists {
		return &core.NotFoundError{Resource: "variant", ID: key.String()}
	}
	if err := m.checkChangeIDs(changes); err != nil {
		return err
	}
	m.variants[key] = *cloneVariant(*v)
	m.changes = append(m.changes, changes...)
	return nil
}

// Variants returns every stored variant ordered by key.
func (m *Memory) Variants() []core.ProductVariant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.ProductVariant, 0, len(m.variants))
	for _, v := range m.variants {
		out = append(out, *cloneVariant(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}

func cloneVariant(v core.ProductVariant) *core.ProductVariant {
	c := v
	if v.PreviousPrice != nil {
		p := *v.PreviousPrice
		c.PreviousPrice = &p
	}
	if v.PriceLastChanged != nil {
		t := *v.PriceLastChanged
		c.PriceLastChanged = &t
	}
	if v.LeadTimeDays != nil {
		d := *v.LeadTimeDays
		c.LeadTimeDays = &d
	}
	if v.Inventory.PreviousQuantity != nil {
		q := *v.Inventory.PreviousQuantity
		c.Inventory.PreviousQuantity = &q
	}
	c.SupplierMappings = append([]core.SupplierMapping(nil), v.SupplierMappings...)
	return &c
}

/* ----------------------------------------
	Changes
---------------------------------------- */

func (m *Memory) InsertChanges(ctx context.Context, changes []core.InventoryChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkChangeIDs(changes); err != nil {
		return err
	}
	m.changes = append(m.changes, changes...)
	return nil
}

// checkChangeIDs rejects ids already stored or repeated in changes, as the
// primary key does in Postgres. Callers hold m.mu.
func (m *Memory) checkChangeIDs(changes []core.InventoryChange) error {
	seen := make(map[string]bool, len(m.changes)+len(changes))
	for _, c := range m.changes {
		seen[c.ID] = true
	}
	for _, c := range changes {
		if seen[c.ID] {
			return fmt.Errorf("insert change %s: duplicate key", c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

func (m *Memory) MarkChangesNotified(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range m.changes {
		if want[m.changes[i].ID] {
			m.changes[i].Notified = true
		}
	}
	return nil
}

// RecentChanges returns the newest changes first; changes detected at the
// same instant keep reverse insertion order.
func (m *Memory) RecentChanges(ctx context.Context, limit int) ([]core.InventoryChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.InventoryChange, 0, min(limit, len(m.changes)))
	for i := len(m.changes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.changes[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out, nil
}

/* ----------------------------------------
	Sync logs
---------------------------------------- */

func (m *Memory) CreateSyncLog(ctx context.Context, log *core.SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, cloneLog(*log))
	return nil
}

func (m *Memory) FinishSyncLog(ctx context.Context, log *core.SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.logs {
		if m.logs[i].ID == log.ID {
			m.logs[i] = cloneLog(*log)
			return nil
		}
	}
	return &core.NotFoundError{Resource: "sync log", ID: log.ID}
}

func (m *Memory) SyncHistory(ctx context.Context, limit int) ([]core.SyncLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.SyncLog, 0, min(limit, len(m.logs)))
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, cloneLog(m.logs[i]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func cloneLog(l core.SyncLog) core.SyncLog {
	c := l
	c.Errors = append([]string{}, l.Errors...)
	if l.CompletedAt != nil {
		t := *l.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
