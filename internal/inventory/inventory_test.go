package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/invsync/internal/cache"
	"github.com/JonMunkholm/invsync/internal/connector"
	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/database"
	"github.com/JonMunkholm/invsync/internal/logging"
)

var (
	_ Store            = (*database.Memory)(nil)
	_ Catalog          = (*database.Memory)(nil)
	_ SupplierRegistry = (*database.Memory)(nil)
	_ Store            = (*database.Postgres)(nil)
	_ Catalog          = (*database.Postgres)(nil)
	_ SupplierRegistry = (*database.Postgres)(nil)
)

var testClock = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

// recordingNotifier collects delivered events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, ev ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) kinds() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[EventKind]int)
	for _, ev := range r.events {
		out[ev.Kind]++
	}
	return out
}

type harness struct {
	svc      *Service
	store    *database.Memory
	conn     *connector.Static
	notifier *recordingNotifier
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	store := database.NewMemory()
	conn := connector.NewStatic("sanmar", teeProduct(120, 4.25))
	notifier := &recordingNotifier{}

	ctx := context.Background()
	_ = store.UpsertSupplier(ctx, core.Supplier{ID: "sanmar", Name: "SanMar", Active: true})

	svc := NewService(Deps{
		Store:      store,
		Catalog:    store,
		Suppliers:  store,
		Connectors: connector.NewRegistry(conn),
		Notifier:   notifier,
	}, opts)
	svc.now = func() time.Time { return testClock }
	return &harness{svc: svc, store: store, conn: conn, notifier: notifier}
}

// teeProduct is a two-color, two-size product whose Black colorway holds
// all the stock.
func teeProduct(blackStock int, price float64) core.NormalizedProduct {
	lead := 3
	return core.NormalizedProduct{
		SupplierID: "sanmar",
		StyleID:    "PC61",
		Name:       "Essential Tee",
		Brand:      "Port & Company",
		Category:   "t-shirts",
		Sizes:      []string{"S", "M"},
		Colors: []core.ProductColor{
			{Name: "Black", Hex: "#000000", Stock: blackStock},
			{Name: "Navy", Hex: "#000080", Stock: 0},
		},
		BulkBreaks:     []core.PricingTier{{MinQuantity: 1, Price: price}},
		BaseCost:       price,
		TotalInventory: blackStock,
		InStock:        blackStock > 0,
		LeadTimeDays:   &lead,
	}
}

func catalogItem(sku string) core.CatalogVariant {
	return core.CatalogVariant{SupplierID: "sanmar", SKU: sku, SupplierSKU: "PC61", Size: "M", Color: "Black"}
}

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func qtyUpdate(n int) core.VariantUpdate { return core.VariantUpdate{Quantity: intPtr(n)} }

func countTypes(changes []core.InventoryChange) map[core.ChangeType]int {
	out := make(map[core.ChangeType]int)
	for _, c := range changes {
		out[c.ChangeType]++
	}
	return out
}

// ----------------------------------------------------------------------------
// UpdateVariantInventory Tests
// ----------------------------------------------------------------------------

func TestUpdateVariantInventory_Baseline(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	changes, err := h.svc.UpdateVariantInventory(ctx, catalogItem("pc-pc61-blk-m"),
		core.VariantUpdate{Quantity: intPtr(-5), Price: floatPtr(4.254)}, core.SourceSync)
	if err != nil {
		t.Fatalf("UpdateVariantInventory: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("baseline produced %d changes, want 0", len(changes))
	}

	v, err := h.store.GetVariant(ctx, core.NewVariantKey("sanmar", "PC-PC61-BLK-M"))
	if err != nil {
		t.Fatalf("GetVariant: %v", err)
	}
	if v.Inventory.Quantity != 0 || v.Inventory.Status != core.StatusOutOfStock {
		t.Errorf("inventory = %+v, want clamped 0/out_of_stock", v.Inventory)
	}
	if v.Price != 4.25 {
		t.Errorf("price = %v, want 4.25", v.Price)
	}
	if len(v.SupplierMappings) != 1 || !v.SupplierMappings[0].IsPrimary || v.SupplierMappings[0].SupplierSKU != "PC61" {
		t.Errorf("supplier mappings = %+v", v.SupplierMappings)
	}
}

func TestUpdateVariantInventory_Idempotent(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	item := catalogItem("PC-PC61-BLK-M")

	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(100), core.SourceSync)

	upd := core.VariantUpdate{Quantity: intPtr(20), Price: floatPtr(5), LeadTimeDays: intPtr(4)}
	first, err := h.svc.UpdateVariantInventory(ctx, item, upd, core.SourceSync)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("first apply detected no changes")
	}

	second, err := h.svc.UpdateVariantInventory(ctx, item, upd, core.SourceSync)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second apply detected %d changes, want 0: %+v", len(second), second)
	}
}

func TestUpdateVariantInventory_OutOfStockTransition(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	item := catalogItem("PC-PC61-BLK-M")

	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(50), core.SourceSync)

	changes, err := h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(0), core.SourceSync)
	if err != nil {
		t.Fatalf("UpdateVariantInventory: %v", err)
	}
	h.svc.WaitNotifications()

	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2: %+v", len(changes), changes)
	}
	for _, c := range changes {
		switch c.ChangeType {
		case core.ChangeQuantity:
			if c.OldValue != "50" || c.NewValue != "0" {
				t.Errorf("quantity change = %s -> %s, want 50 -> 0", c.OldValue, c.NewValue)
			}
		case core.ChangeStatus:
			if c.OldValue != "in_stock" || c.NewValue != "out_of_stock" {
				t.Errorf("status change = %s -> %s", c.OldValue, c.NewValue)
			}
		default:
			t.Errorf("unexpected change type %s", c.ChangeType)
		}
		if c.Source != core.SourceSync {
			t.Errorf("source = %s, want sync", c.Source)
		}
	}

	kinds := h.notifier.kinds()
	if kinds[EventOutOfStock] != 1 || len(kinds) != 1 {
		t.Errorf("events = %v, want one out_of_stock", kinds)
	}

	v, _ := h.store.GetVariant(ctx, item.Key())
	if v.Inventory.PreviousQuantity == nil || *v.Inventory.PreviousQuantity != 50 {
		t.Errorf("previousQuantity = %v, want 50", v.Inventory.PreviousQuantity)
	}

	recent, _ := h.store.RecentChanges(ctx, 10)
	for _, c := range recent {
		if !c.Notified {
			t.Errorf("change %s not marked notified", c.ChangeType)
		}
	}
}

func TestUpdateVariantInventory_Price(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	item := catalogItem("PC-PC61-BLK-M")

	_, _ = h.svc.UpdateVariantInventory(ctx, item, core.VariantUpdate{Price: floatPtr(10)}, core.SourceSync)

	// Within the one-cent tolerance.
	changes, _ := h.svc.UpdateVariantInventory(ctx, item, core.VariantUpdate{Price: floatPtr(10.005)}, core.SourceSync)
	if len(changes) != 0 {
		t.Errorf("sub-cent move produced %d changes", len(changes))
	}
	v, _ := h.store.GetVariant(ctx, item.Key())
	if v.PriceLastChanged != nil {
		t.Error("priceLastChanged set without a price change")
	}

	changes, _ = h.svc.UpdateVariantInventory(ctx, item, core.VariantUpdate{Price: floatPtr(10.5)}, core.SourceSync)
	if got := countTypes(changes); got[core.ChangePrice] != 1 || len(changes) != 1 {
		t.Fatalf("changes = %v, want one price change", got)
	}
	v, _ = h.store.GetVariant(ctx, item.Key())
	if v.Price != 10.5 || v.PreviousPrice == nil || *v.PreviousPrice != 10 || v.PriceLastChanged == nil {
		t.Errorf("variant price state = %v prev %v changed %v", v.Price, v.PreviousPrice, v.PriceLastChanged)
	}

	// 5% rise: no alert. Then a 20% rise: alert.
	_, _ = h.svc.UpdateVariantInventory(ctx, item, core.VariantUpdate{Price: floatPtr(11.025)}, core.SourceSync)
	_, _ = h.svc.UpdateVariantInventory(ctx, item, core.VariantUpdate{Price: floatPtr(13.25)}, core.SourceSync)
	h.svc.WaitNotifications()

	if got := h.notifier.kinds()[EventPriceIncrease]; got != 1 {
		t.Errorf("price increase events = %d, want 1", got)
	}
}

func TestUpdateVariantInventory_LeadTime(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	item := catalogItem("PC-PC61-BLK-M")

	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(80), core.SourceSync)

	changes, _ := h.svc.UpdateVariantInventory(ctx, item, core.VariantUpdate{LeadTimeDays: intPtr(5)}, core.SourceWebhook)
	if len(changes) != 1 || changes[0].ChangeType != core.ChangeLeadTime {
		t.Fatalf("changes = %+v, want one leadtime change", changes)
	}
	if changes[0].OldValue != "" || changes[0].NewValue != "5" || changes[0].Source != core.SourceWebhook {
		t.Errorf("leadtime change = %+v", changes[0])
	}

	// Unreported fields stay untouched.
	v, _ := h.store.GetVariant(ctx, item.Key())
	if v.Inventory.Quantity != 80 {
		t.Errorf("quantity = %d, want 80", v.Inventory.Quantity)
	}
}

func TestUpdateVariantInventory_RequiresSKU(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.svc.UpdateVariantInventory(context.Background(), core.CatalogVariant{SupplierID: "sanmar"}, qtyUpdate(1), core.SourceSync)
	var ve core.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestUpdateVariantInventory_ConcurrentSameSKU(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	item := catalogItem("PC-PC61-BLK-M")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(n), core.SourceWebhook); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	h.svc.WaitNotifications()

	for err := range errs {
		t.Errorf("concurrent update failed: %v", err)
	}
	if got := len(h.store.Variants()); got != 1 {
		t.Errorf("stored %d variants, want 1", got)
	}
	if held := h.svc.locks.held(); held != 0 {
		t.Errorf("%d lock entries left behind", held)
	}
}

func TestUpdateVariantInventory_NotifierFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.svc.notifier = NotifierFunc(func(ctx context.Context, ev ChangeEvent) error {
		return errors.New("smtp down")
	})
	ctx := context.Background()
	item := catalogItem("PC-PC61-BLK-M")

	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(60), core.SourceSync)
	changes, err := h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(0), core.SourceSync)
	if err != nil || len(changes) != 2 {
		t.Fatalf("update = %d changes, %v", len(changes), err)
	}
	h.svc.WaitNotifications()

	recent, _ := h.store.RecentChanges(ctx, 10)
	for _, c := range recent {
		if c.Notified {
			t.Error("change marked notified although delivery failed")
		}
	}
}

func TestUpdateVariantInventory_StockEvents(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     map[EventKind]int
	}{
		{"in stock to low", 120, 10, map[EventKind]int{EventLowStock: 1}},
		{"in stock to out", 120, 0, map[EventKind]int{EventOutOfStock: 1}},
		{"out to low", 0, 10, map[EventKind]int{EventLowStock: 1}},
		{"low stays low", 30, 10, map[EventKind]int{}},
		{"low back to in stock", 10, 120, map[EventKind]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			ctx := context.Background()
			item := catalogItem("PC-PC61-BLK-M")

			_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(tt.from), core.SourceSync)
			if _, err := h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(tt.to), core.SourceSync); err != nil {
				t.Fatalf("UpdateVariantInventory: %v", err)
			}
			h.svc.WaitNotifications()

			got := h.notifier.kinds()
			if len(got) != len(tt.want) {
				t.Fatalf("events = %v, want %v", got, tt.want)
			}
			for kind, n := range tt.want {
				if got[kind] != n {
					t.Errorf("%s events = %d, want %d", kind, got[kind], n)
				}
			}
		})
	}
}

func TestUpdateVariantInventory_FirstPriceAfterQuantityBaseline(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	item := catalogItem("PC-PC61-BLK-M")

	// A quantity-only webhook is the first thing seen for this SKU.
	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(80), core.SourceWebhook)

	changes, err := h.svc.UpdateVariantInventory(ctx, item,
		core.VariantUpdate{Quantity: intPtr(80), Price: floatPtr(4.25)}, core.SourceSync)
	if err != nil {
		t.Fatalf("UpdateVariantInventory: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("first price produced changes: %+v", changes)
	}
	v, _ := h.store.GetVariant(ctx, item.Key())
	if v.Price != 4.25 || v.PreviousPrice != nil || v.PriceLastChanged != nil {
		t.Errorf("price state = %v prev %v changed %v", v.Price, v.PreviousPrice, v.PriceLastChanged)
	}

	// From here on price moves are changes again.
	changes, _ = h.svc.UpdateVariantInventory(ctx, item, core.VariantUpdate{Price: floatPtr(4.50)}, core.SourceSync)
	if len(changes) != 1 || changes[0].OldValue != "4.25" || changes[0].NewValue != "4.50" {
		t.Errorf("changes = %+v, want 4.25 -> 4.50", changes)
	}
}

// flakyStore fails the next n variant updates.
type flakyStore struct {
	Store
	n int
}

func (f *flakyStore) ApplyVariantUpdate(ctx context.Context, v *core.ProductVariant, changes []core.InventoryChange) error {
	if f.n > 0 {
		f.n--
		return errors.New("connection reset")
	}
	return f.Store.ApplyVariantUpdate(ctx, v, changes)
}

func TestUpdateVariantInventory_FailedWriteKeepsTransition(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	item := catalogItem("PC-PC61-BLK-M")
	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(50), core.SourceSync)

	h.svc.store = &flakyStore{Store: h.store, n: 1}
	if _, err := h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(0), core.SourceSync); err == nil {
		t.Fatal("UpdateVariantInventory returned nil error")
	}
	v, _ := h.store.GetVariant(ctx, item.Key())
	if v.Inventory.Quantity != 50 || v.Inventory.Status != core.StatusInStock {
		t.Errorf("variant after failed write = %d %s, want 50 in_stock", v.Inventory.Quantity, v.Inventory.Status)
	}

	// The retry still sees the transition.
	changes, err := h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(0), core.SourceSync)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := countTypes(changes); got[core.ChangeQuantity] != 1 || got[core.ChangeStatus] != 1 {
		t.Errorf("retry changes = %v, want quantity and status", got)
	}
	recent, _ := h.store.RecentChanges(ctx, 10)
	if len(recent) != 2 {
		t.Errorf("persisted %d changes, want 2", len(recent))
	}
}

// ----------------------------------------------------------------------------
// Sync Tests
// ----------------------------------------------------------------------------

// countingCatalog counts page loads.
type countingCatalog struct {
	Catalog
	mu    sync.Mutex
	pages []int
}

func (c *countingCatalog) ListCatalogVariants(ctx context.Context, supplierID string, offset, limit int) ([]core.CatalogVariant, error) {
	items, err := c.Catalog.ListCatalogVariants(ctx, supplierID, offset, limit)
	c.mu.Lock()
	c.pages = append(c.pages, len(items))
	c.mu.Unlock()
	return items, err
}

func TestSyncSupplier(t *testing.T) {
	h := newHarness(t, Options{BatchSize: 3})
	ctx := context.Background()
	counting := &countingCatalog{Catalog: h.store}
	h.svc.catalog = counting

	n, err := h.svc.ImportCatalog(ctx, "sanmar")
	if err != nil || n != 4 {
		t.Fatalf("ImportCatalog = %d, %v; want 4", n, err)
	}

	// First run stores baselines only.
	res, err := h.svc.SyncSupplier(ctx, "sanmar", core.SourceSync)
	if err != nil {
		t.Fatalf("SyncSupplier: %v", err)
	}
	if res.Status != core.SyncCompleted || res.VariantsSynced != 4 || res.ChangesDetected != 0 {
		t.Errorf("first run = %+v", res)
	}
	if len(counting.pages) != 2 || counting.pages[0] != 3 || counting.pages[1] != 1 {
		t.Errorf("catalog pages = %v, want [3 1]", counting.pages)
	}

	black, err := h.store.GetVariant(ctx, core.NewVariantKey("sanmar", "PC-PC61-BLK-M"))
	if err != nil {
		t.Fatalf("black variant: %v", err)
	}
	if black.Inventory.Quantity != 120 || black.Price != 4.25 || black.LeadTimeDays == nil || *black.LeadTimeDays != 3 {
		t.Errorf("black baseline = %+v", black)
	}
	navy, _ := h.store.GetVariant(ctx, core.NewVariantKey("sanmar", "PC-PC61-NVY-S"))
	if navy == nil || navy.Inventory.Status != core.StatusOutOfStock {
		t.Errorf("navy baseline = %+v", navy)
	}

	// Black drops to low stock and the price rises 17.6%.
	h.conn.Put(teeProduct(30, 5.00))
	res, err = h.svc.SyncSupplier(ctx, "sanmar", core.SourceSync)
	if err != nil {
		t.Fatalf("second SyncSupplier: %v", err)
	}
	// Black S/M: quantity, status, price. Navy S/M: price.
	if res.ChangesDetected != 8 {
		t.Errorf("changes detected = %d, want 8", res.ChangesDetected)
	}
	h.svc.WaitNotifications()
	kinds := h.notifier.kinds()
	if kinds[EventLowStock] != 2 || kinds[EventPriceIncrease] != 4 {
		t.Errorf("events = %v, want 2 low_stock and 4 price_increase", kinds)
	}

	// Same supplier state again: nothing new.
	res, _ = h.svc.SyncSupplier(ctx, "sanmar", core.SourceSync)
	if res.ChangesDetected != 0 {
		t.Errorf("repeat sync detected %d changes", res.ChangesDetected)
	}

	history, _ := h.svc.GetSyncHistory(ctx, 0)
	if len(history) != 3 || history[0].Status != core.SyncCompleted || history[0].CompletedAt == nil {
		t.Errorf("history = %+v", history)
	}
	sup, _ := h.store.GetSupplier(ctx, "sanmar")
	if sup.LastSync == nil || !sup.LastSync.Equal(testClock) {
		t.Errorf("supplier last sync = %v", sup.LastSync)
	}
}

func TestSyncSupplier_ProductFailureDoesNotAbort(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_ = h.store.UpsertCatalogVariants(ctx, []core.CatalogVariant{
		catalogItem("PC-PC61-BLK-M"),
		{SupplierID: "sanmar", SKU: "PC-GONE-BLK-M", SupplierSKU: "GONE"},
		catalogItem("PC-PC61-BLK-S"),
	})

	res, err := h.svc.SyncSupplier(ctx, "sanmar", core.SourceSync)
	if err != nil {
		t.Fatalf("SyncSupplier: %v", err)
	}
	if res.Status != core.SyncCompleted || res.VariantsSynced != 2 || res.Failures != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "PC-GONE-BLK-M") {
		t.Errorf("errors = %v", res.Errors)
	}
}

// stubConnector serves the tee for PC61. SLOW blocks until the fetch
// deadline; any other id comes back as a nil product.
type stubConnector struct{}

func (stubConnector) SupplierID() string { return "sanmar" }

func (stubConnector) FetchProducts(ctx context.Context) ([]core.NormalizedProduct, error) {
	return []core.NormalizedProduct{teeProduct(120, 4.25)}, nil
}

func (stubConnector) FetchProduct(ctx context.Context, id string) (*core.NormalizedProduct, error) {
	switch id {
	case "PC61":
		p := teeProduct(120, 4.25)
		return &p, nil
	case "SLOW":
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, nil
}

func (stubConnector) TestConnection(ctx context.Context) bool { return true }

func TestSyncSupplier_FetchFailuresAreCounted(t *testing.T) {
	tests := []struct {
		name        string
		supplierSKU string
		wantErr     string
	}{
		{"nil product", "GONE", "product not found: GONE"},
		{"fetch timeout", "SLOW", "context deadline exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{FetchTimeout: 20 * time.Millisecond})
			h.svc.connectors = connector.NewRegistry(stubConnector{})
			ctx := context.Background()

			_ = h.store.UpsertCatalogVariants(ctx, []core.CatalogVariant{
				catalogItem("PC-PC61-BLK-M"),
				{SupplierID: "sanmar", SKU: "PC-MISS-BLK-M", SupplierSKU: tt.supplierSKU},
				catalogItem("PC-PC61-BLK-S"),
			})

			res, err := h.svc.SyncSupplier(ctx, "sanmar", core.SourceSync)
			if err != nil {
				t.Fatalf("SyncSupplier: %v", err)
			}
			if res.Status != core.SyncCompleted || res.VariantsSynced != 2 || res.Failures != 1 {
				t.Errorf("result = %+v", res)
			}
			if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "PC-MISS-BLK-M") || !strings.Contains(res.Errors[0], tt.wantErr) {
				t.Errorf("errors = %v, want one mentioning %q", res.Errors, tt.wantErr)
			}

			history, _ := h.store.SyncHistory(ctx, 1)
			if len(history) != 1 || history[0].Status != core.SyncCompleted || history[0].CompletedAt == nil {
				t.Errorf("persisted log = %+v", history)
			}
		})
	}
}

// failingStore fails every variant write.
type failingStore struct {
	Store
}

func (failingStore) InsertVariant(ctx context.Context, v *core.ProductVariant) error {
	return errors.New("connection reset")
}

func TestSyncSupplier_StoreFailureFailsRun(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.svc.store = failingStore{Store: h.store}
	_ = h.store.UpsertCatalogVariants(ctx, []core.CatalogVariant{catalogItem("PC-PC61-BLK-M")})

	res, err := h.svc.SyncSupplier(ctx, "sanmar", core.SourceSync)
	if err == nil {
		t.Fatal("SyncSupplier returned nil error")
	}
	if res == nil || res.Status != core.SyncFailed {
		t.Fatalf("result = %+v, want failed", res)
	}

	history, _ := h.store.SyncHistory(ctx, 1)
	if len(history) != 1 || history[0].Status != core.SyncFailed || len(history[0].Errors) == 0 {
		t.Errorf("persisted log = %+v", history)
	}
	sup, _ := h.store.GetSupplier(ctx, "sanmar")
	if sup.LastSync != nil {
		t.Error("failed run marked the supplier synced")
	}
}

func TestSyncSupplier_UnknownSupplier(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.svc.SyncSupplier(context.Background(), "acme", core.SourceSync)
	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("error = %v, want NotFoundError", err)
	}
}

func TestSyncAllSuppliers_IsolatesFailures(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	// Active but without a connector.
	_ = h.store.UpsertSupplier(ctx, core.Supplier{ID: "ascolour", Name: "AS Colour", Active: true})
	_ = h.store.UpsertSupplier(ctx, core.Supplier{ID: "dormant", Name: "Dormant", Active: false})
	_ = h.store.UpsertCatalogVariants(ctx, []core.CatalogVariant{catalogItem("PC-PC61-BLK-M")})

	results, err := h.svc.SyncAllSuppliers(ctx, core.SourceSync)
	if err != nil {
		t.Fatalf("SyncAllSuppliers: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	byID := map[string]SyncResult{}
	for _, r := range results {
		byID[r.SupplierID] = r
	}
	if byID["ascolour"].Status != core.SyncFailed || len(byID["ascolour"].Errors) == 0 {
		t.Errorf("ascolour = %+v, want failed with error", byID["ascolour"])
	}
	if byID["sanmar"].Status != core.SyncCompleted || byID["sanmar"].VariantsSynced != 1 {
		t.Errorf("sanmar = %+v", byID["sanmar"])
	}
}

func TestDeriveUpdate(t *testing.T) {
	p := teeProduct(40, 6)
	p.Colors[0].Price = 6.5

	upd := deriveUpdate(core.CatalogVariant{Color: "black", Size: "S"}, &p)
	if *upd.Quantity != 40 || *upd.Price != 6.5 || *upd.LeadTimeDays != 3 {
		t.Errorf("black update = qty %d price %v", *upd.Quantity, *upd.Price)
	}

	upd = deriveUpdate(core.CatalogVariant{Color: "Navy"}, &p)
	if *upd.Quantity != 0 || *upd.Price != 6 {
		t.Errorf("navy update = qty %d price %v", *upd.Quantity, *upd.Price)
	}

	// Without per-color stock the product total applies.
	p.Colors[0].Stock = 0
	p.TotalInventory = 250
	upd = deriveUpdate(core.CatalogVariant{Color: "Navy"}, &p)
	if *upd.Quantity != 250 {
		t.Errorf("total fallback qty = %d, want 250", *upd.Quantity)
	}

	p.BulkBreaks = nil
	upd = deriveUpdate(core.CatalogVariant{Color: "Red"}, &p)
	if upd.Price != nil {
		t.Errorf("price = %v, want unreported", *upd.Price)
	}
}

func TestResolveVariant(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	if _, err := h.svc.ImportCatalog(ctx, "sanmar"); err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}

	// Catalog only: never synced yet.
	cv, err := h.svc.ResolveVariant(ctx, core.NewVariantKey("sanmar", "pc-pc61-nvy-s"))
	if err != nil {
		t.Fatalf("ResolveVariant(catalog) error: %v", err)
	}
	if cv.SupplierSKU != "PC61" || cv.Color != "Navy" {
		t.Errorf("catalog variant = %+v", cv)
	}

	// Stored variants win over the catalog.
	_, _ = h.svc.UpdateVariantInventory(ctx, catalogItem("PC-PC61-BLK-M"), qtyUpdate(5), core.SourceSync)
	cv, err = h.svc.ResolveVariant(ctx, core.NewVariantKey("SANMAR", "PC-PC61-BLK-M"))
	if err != nil || cv.Size != "M" {
		t.Errorf("ResolveVariant(stored) = %+v, %v", cv, err)
	}

	_, err = h.svc.ResolveVariant(ctx, core.NewVariantKey("sanmar", "NOPE"))
	if core.StatusCode(err) != http.StatusNotFound {
		t.Errorf("ResolveVariant(unknown) error = %v, want not found", err)
	}
	if core.MapError(err).Code != "SKU001" {
		t.Errorf("MapError code = %q, want SKU001", core.MapError(err).Code)
	}
}

// ----------------------------------------------------------------------------
// Query Tests
// ----------------------------------------------------------------------------

// mapBackend is an in-memory cache.Backend.
type mapBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (b *mapBackend) Ping(ctx context.Context) error { return nil }

func (b *mapBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (b *mapBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *mapBackend) Delete(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.data, k)
	}
	return nil
}

func (b *mapBackend) DeletePattern(ctx context.Context, pattern string) (int, error) { return 0, nil }

func (b *mapBackend) Close() error { return nil }

func TestGetInventory_ReadThroughAndInvalidation(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	c := cache.New(&mapBackend{data: map[string][]byte{}}, cache.Options{})
	if st := c.Connect(ctx); st != cache.StateConnected {
		t.Fatalf("cache state = %s", st)
	}
	h.svc.cache = c
	item := catalogItem("PC-PC61-BLK-M")

	if _, err := h.svc.GetInventory(ctx, "", "pc-pc61-blk-m"); err == nil {
		t.Fatal("GetInventory(unknown) returned nil error")
	}

	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(70), core.SourceSync)
	first, err := h.svc.GetInventory(ctx, "", "pc-pc61-blk-m")
	if err != nil || first.Inventory.Quantity != 70 {
		t.Fatalf("GetInventory = %+v, %v", first, err)
	}
	second, _ := h.svc.GetInventory(ctx, "", "PC-PC61-BLK-M")
	if second.Inventory.Quantity != 70 {
		t.Errorf("cached quantity = %d", second.Inventory.Quantity)
	}
	if hits := c.Stats().Hits; hits != 1 {
		t.Errorf("cache hits = %d, want 1", hits)
	}

	// Writes drop the cached entry.
	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(10), core.SourceWebhook)
	third, _ := h.svc.GetInventory(ctx, "", "PC-PC61-BLK-M")
	if third.Inventory.Quantity != 10 {
		t.Errorf("quantity after update = %d, want 10", third.Inventory.Quantity)
	}

	var ve core.ValidationError
	if _, err := h.svc.GetInventory(ctx, "", "  "); !errors.As(err, &ve) {
		t.Errorf("blank sku error = %v, want ValidationError", err)
	}
}

func TestGetInventory_SameSKUAtTwoSuppliers(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	c := cache.New(&mapBackend{data: map[string][]byte{}}, cache.Options{})
	c.Connect(ctx)
	h.svc.cache = c

	sanmar := catalogItem("PC-PC61-BLK-M")
	alpha := sanmar
	alpha.SupplierID = "alphabroder"
	_, _ = h.svc.UpdateVariantInventory(ctx, sanmar, qtyUpdate(70), core.SourceSync)
	_, _ = h.svc.UpdateVariantInventory(ctx, alpha, qtyUpdate(5), core.SourceSync)

	tests := []struct {
		supplierID string
		want       int
	}{
		{"sanmar", 70},
		{"alphabroder", 5},
		{"SanMar", 70},
	}
	for _, tt := range tests {
		// Twice: once loaded, once from the cache.
		for i := 0; i < 2; i++ {
			v, err := h.svc.GetInventory(ctx, tt.supplierID, "pc-pc61-blk-m")
			if err != nil || v.Inventory.Quantity != tt.want {
				t.Errorf("GetInventory(%s) = %+v, %v; want quantity %d", tt.supplierID, v, err, tt.want)
			}
		}
	}

	// A write at one supplier drops the SKU-only entry too.
	if _, err := h.svc.GetInventory(ctx, "", "PC-PC61-BLK-M"); err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	_, _ = h.svc.UpdateVariantInventory(ctx, sanmar, qtyUpdate(0), core.SourceWebhook)
	v, _ := h.svc.GetInventory(ctx, "sanmar", "PC-PC61-BLK-M")
	if v.Inventory.Quantity != 0 {
		t.Errorf("sanmar quantity after update = %d, want 0", v.Inventory.Quantity)
	}
	var nf *core.NotFoundError
	if _, err := h.svc.GetInventory(ctx, "ascolour", "PC-PC61-BLK-M"); !errors.As(err, &nf) {
		t.Errorf("unknown supplier error = %v, want NotFoundError", err)
	}
}

// ----------------------------------------------------------------------------
// Sync Limiter Tests
// ----------------------------------------------------------------------------

func TestSyncLimiter_AcquireRelease(t *testing.T) {
	l := newSyncLimiter(2, time.Second)
	ctx := context.Background()

	r1, err := l.acquire(ctx, "sanmar")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	r2, err := l.acquire(ctx, "ascolour")
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if got := len(l.active()); got != 2 {
		t.Errorf("active = %d, want 2", got)
	}

	r1()
	r1() // second call is a no-op
	if got := l.active(); len(got) != 1 || got[0] != "ascolour" {
		t.Errorf("active after release = %v, want [ascolour]", got)
	}
	r2()
	if err := l.drain(ctx); err != nil {
		t.Errorf("drain: %v", err)
	}
}

func TestSyncLimiter_Timeout(t *testing.T) {
	l := newSyncLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	release, err := l.acquire(ctx, "sanmar")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = l.acquire(ctx, "ascolour")
	if !errors.Is(err, core.ErrTooManySyncs) {
		t.Fatalf("error = %v, want ErrTooManySyncs", err)
	}
	if got := core.StatusCode(err); got != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", got)
	}
}

func TestSyncLimiter_CallerCancelled(t *testing.T) {
	l := newSyncLimiter(1, time.Second)
	release, _ := l.acquire(context.Background(), "sanmar")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.acquire(ctx, "sanmar"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestSyncLimiter_DrainWaits(t *testing.T) {
	l := newSyncLimiter(1, time.Second)
	release, _ := l.acquire(context.Background(), "sanmar")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("drain with running sync = %v, want deadline exceeded", err)
	}

	release()
	if err := l.drain(context.Background()); err != nil {
		t.Errorf("drain after release: %v", err)
	}
}

func TestSyncSupplier_NoFreeSlot(t *testing.T) {
	h := newHarness(t, Options{MaxConcurrentSyncs: 1, SlotWait: 10 * time.Millisecond})
	release, err := h.svc.limiter.acquire(context.Background(), "other")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	if _, err := h.svc.SyncSupplier(context.Background(), "sanmar", core.SourceSync); !errors.Is(err, core.ErrTooManySyncs) {
		t.Errorf("error = %v, want ErrTooManySyncs", err)
	}
	logs, _ := h.store.SyncHistory(context.Background(), 10)
	if len(logs) != 0 {
		t.Errorf("sync logs = %d, want none for a run that never started", len(logs))
	}
}

func TestGetSyncStatus(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_ = h.store.UpsertSupplier(ctx, core.Supplier{ID: "ascolour", Name: "AS Colour", Active: true})

	report, err := h.svc.GetSyncStatus(ctx)
	if err != nil {
		t.Fatalf("GetSyncStatus: %v", err)
	}
	if len(report.Suppliers) != 2 {
		t.Fatalf("suppliers = %+v", report.Suppliers)
	}
	as, sm := report.Suppliers[0], report.Suppliers[1]
	if as.Connector || as.Reachable != nil {
		t.Errorf("ascolour = %+v, want no connector", as)
	}
	if !sm.Connector || sm.Reachable == nil || !*sm.Reachable {
		t.Errorf("sanmar = %+v, want reachable connector", sm)
	}
	if sm.Syncing {
		t.Errorf("sanmar reported syncing with no run in progress")
	}
	if want := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC); !report.NextSync.Equal(want) {
		t.Errorf("next sync = %v, want %v", report.NextSync, want)
	}
	if report.Cache.State != cache.StateDisabled {
		t.Errorf("cache state = %s", report.Cache.State)
	}
}

func TestNextSyncTime(t *testing.T) {
	day := func(d, h, m int) time.Time { return time.Date(2026, 3, d, h, m, 0, 0, time.UTC) }
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{day(2, 0, 0), day(2, 0, 0)},
		{day(2, 0, 1), day(2, 6, 0)},
		{day(2, 5, 59), day(2, 6, 0)},
		{day(2, 6, 0), day(2, 6, 0)},
		{day(2, 6, 0).Add(time.Nanosecond), day(2, 12, 0)},
		{day(2, 13, 30), day(2, 18, 0)},
		{day(2, 18, 1), day(3, 0, 0)},
		{day(2, 23, 59), day(3, 0, 0)},
	}
	for _, tt := range tests {
		if got := NextSyncTime(tt.now); !got.Equal(tt.want) {
			t.Errorf("NextSyncTime(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestNextRun(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name      string
		now, last time.Time
		want      time.Time
	}{
		{"first run on a boundary", at(6, 0), time.Time{}, at(6, 0)},
		{"first run between boundaries", at(7, 0), time.Time{}, at(12, 0)},
		{"boundary just ran", at(6, 0), at(6, 0), at(12, 0)},
		{"woke slightly early", at(5, 59), at(6, 0), at(12, 0)},
		{"later boundary", at(12, 30), at(6, 0), at(18, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextRun(tt.now, tt.last); !got.Equal(tt.want) {
				t.Errorf("nextRun(%v, %v) = %v, want %v", tt.now, tt.last, got, tt.want)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{{0, 20}, {-3, 20}, {5, 5}, {1000, 100}}
	for _, tt := range tests {
		if got := clampLimit(tt.in, DefaultHistoryLimit, MaxHistoryLimit); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Notifier Tests
// ----------------------------------------------------------------------------

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: logging.New(&buf, "debug", "text")}
	_ = n.Notify(context.Background(), ChangeEvent{Kind: EventOutOfStock, SKU: "PC-PC61-BLK-M", OldQuantity: 50})

	out := buf.String()
	if !strings.Contains(out, "inventory alert") || !strings.Contains(out, "out_of_stock") || !strings.Contains(out, "old_quantity=50") {
		t.Errorf("log output = %q", out)
	}
}

func TestMultiNotifier(t *testing.T) {
	boom := NotifierFunc(func(ctx context.Context, ev ChangeEvent) error { return errors.New("boom") })
	fizz := NotifierFunc(func(ctx context.Context, ev ChangeEvent) error { return errors.New("fizz") })

	tests := []struct {
		name      string
		sinks     func(rec *recordingNotifier) MultiNotifier
		wantErr   []string
		delivered int
	}{
		{"all deliver", func(rec *recordingNotifier) MultiNotifier { return MultiNotifier{rec, LogNotifier{}} }, nil, 1},
		{"one of two fails", func(rec *recordingNotifier) MultiNotifier { return MultiNotifier{boom, rec} }, nil, 1},
		{"every sink fails", func(rec *recordingNotifier) MultiNotifier { return MultiNotifier{boom, fizz} }, []string{"boom", "fizz"}, 0},
		{"no sinks", func(rec *recordingNotifier) MultiNotifier { return nil }, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingNotifier{}
			err := tt.sinks(rec).Notify(context.Background(), ChangeEvent{Kind: EventLowStock})
			if len(tt.wantErr) == 0 && err != nil {
				t.Errorf("error = %v, want nil", err)
			}
			for _, want := range tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), want) {
					t.Errorf("error = %v, want it to mention %s", err, want)
				}
			}
			if len(rec.events) != tt.delivered {
				t.Errorf("recorded %d events, want %d", len(rec.events), tt.delivered)
			}
		})
	}
}

func TestUpdateVariantInventory_PartialDeliveryMarksNotified(t *testing.T) {
	h := newHarness(t, Options{})
	boom := NotifierFunc(func(ctx context.Context, ev ChangeEvent) error { return errors.New("smtp down") })
	h.svc.notifier = MultiNotifier{boom, h.notifier}
	ctx := context.Background()
	item := catalogItem("PC-PC61-BLK-M")

	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(60), core.SourceSync)
	_, _ = h.svc.UpdateVariantInventory(ctx, item, qtyUpdate(0), core.SourceSync)
	h.svc.WaitNotifications()

	recent, _ := h.store.RecentChanges(ctx, 10)
	if len(recent) != 2 {
		t.Fatalf("got %d changes, want 2", len(recent))
	}
	for _, c := range recent {
		if !c.Notified {
			t.Errorf("change %s not marked notified after partial delivery", c.ChangeType)
		}
	}
}

func TestHTTPNotifier(t *testing.T) {
	var got ChangeEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := HTTPNotifier{URL: srv.URL}
	ev := ChangeEvent{Kind: EventPriceIncrease, SKU: "GIL-39-BLK-S", OldPrice: 10, NewPrice: 12, Increase: 0.2}
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.Kind != EventPriceIncrease || got.SKU != "GIL-39-BLK-S" || got.NewPrice != 12 {
		t.Errorf("received %+v", got)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	if err := (HTTPNotifier{URL: failing.URL}).Notify(context.Background(), ev); err == nil {
		t.Error("Notify against a 500 returned nil error")
	}
}
