package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/invsync/internal/core"
)

// Catalog lists the variants the catalog expects each supplier to carry.
type Catalog interface {
	// ListCatalogVariants pages through a supplier's variants in a stable
	// order. A short page means the end was reached.
	ListCatalogVariants(ctx context.Context, supplierID string, offset, limit int) ([]core.CatalogVariant, error)

	// FindCatalogVariant returns one catalog entry or a *core.NotFoundError.
	FindCatalogVariant(ctx context.Context, key core.VariantKey) (*core.CatalogVariant, error)

	// UpsertCatalogVariants adds variants, keeping the position of ones
	// already listed.
	UpsertCatalogVariants(ctx context.Context, variants []core.CatalogVariant) error
}

// Store persists variants, detected changes and sync runs. It is the
// source of truth; the cache only mirrors it.
type Store interface {
	// GetVariant returns the persisted variant or a *core.NotFoundError.
	GetVariant(ctx context.Context, key core.VariantKey) (*core.ProductVariant, error)

	// FindVariantBySKU looks a variant up by SKU alone, or returns a
	// *core.NotFoundError.
	FindVariantBySKU(ctx context.Context, sku string) (*core.ProductVariant, error)

	InsertVariant(ctx context.Context, v *core.ProductVariant) error

	// ApplyVariantUpdate persists an existing variant's new state together
	// with the changes detected against its old one, atomically. A failed
	// write leaves the old state in place so the next update diffs again.
	ApplyVariantUpdate(ctx context.Context, v *core.ProductVariant, changes []core.InventoryChange) error

	MarkChangesNotified(ctx context.Context, ids []string) error

	// RecentChanges returns the newest changes first.
	RecentChanges(ctx context.Context, limit int) ([]core.InventoryChange, error)

	CreateSyncLog(ctx context.Context, log *core.SyncLog) error
	FinishSyncLog(ctx context.Context, log *core.SyncLog) error

	// SyncHistory returns the newest runs first.
	SyncHistory(ctx context.Context, limit int) ([]core.SyncLog, error)
}

// SupplierRegistry is the list of suppliers the engine syncs.
type SupplierRegistry interface {
	ListSuppliers(ctx context.Context, activeOnly bool) ([]core.Supplier, error)

	// GetSupplier returns one supplier or a *core.NotFoundError.
	GetSupplier(ctx context.Context, id string) (*core.Supplier, error)

	MarkSynced(ctx context.Context, id string, at time.Time) error

	// UpsertSupplier registers a supplier or updates its name, feed and
	// active flag.
	UpsertSupplier(ctx context.Context, sup core.Supplier) error
}

func isNotFound(err error) bool {
	var nf *core.NotFoundError
	return errors.As(err, &nf)
}
