package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/invsync/internal/core"
)

// Postgres is the persistent store. It implements the inventory Store,
// Catalog and SupplierRegistry on top of the generated queries.
type Postgres struct {
	pool *pgxpool.Pool
	q    *Queries
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: New(pool)}
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func notFound(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &core.NotFoundError{Resource: resource, ID: id}
	}
	return err
}

/* ----------------------------------------
	Suppliers
---------------------------------------- */

func (p *Postgres) UpsertSupplier(ctx context.Context, sup core.Supplier) error {
	return p.q.UpsertSupplier(ctx, UpsertSupplierParams{
		ID:      normalizeSupplierID(sup.ID),
		Name:    sup.Name,
		Active:  sup.Active,
		FeedUrl: toPgText(sup.FeedURL),
	})
}

func (p *Postgres) GetSupplier(ctx context.Context, id string) (*core.Supplier, error) {
	id = normalizeSupplierID(id)
	row, err := p.q.GetSupplier(ctx, id)
	if err != nil {
		return nil, notFound(err, "supplier", id)
	}
	sup := supplierFromRow(row)
	return &sup, nil
}

func (p *Postgres) ListSuppliers(ctx context.Context, activeOnly bool) ([]core.Supplier, error) {
	var (
		rows []Supplier
		err  error
	)
	if activeOnly {
		rows, err = p.q.ListActiveSuppliers(ctx)
	} else {
		rows, err = p.q.ListSuppliers(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]core.Supplier, len(rows))
	for i, r := range rows {
		out[i] = supplierFromRow(r)
	}
	return out, nil
}

func (p *Postgres) MarkSynced(ctx context.Context, id string, at time.Time) error {
	return p.q.MarkSupplierSynced(ctx, MarkSupplierSyncedParams{
		ID:       normalizeSupplierID(id),
		LastSync: toPgTime(at),
	})
}

func supplierFromRow(r Supplier) core.Supplier {
	return core.Supplier{
		ID:       r.ID,
		Name:     r.Name,
		Active:   r.Active,
		FeedURL:  r.FeedUrl.String,
		LastSync: fromPgTimePtr(r.LastSync),
	}
}

/* ----------------------------------------
	Catalog
---------------------------------------- */

func (p *Postgres) ListCatalogVariants(ctx context.Context, supplierID string, offset, limit int) ([]core.CatalogVariant, error) {
	rows, err := p.q.ListCatalogVariants(ctx, ListCatalogVariantsParams{
		SupplierID: normalizeSupplierID(supplierID),
		Limit:      int32(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		return nil, err
	}
	out := make([]core.CatalogVariant, len(rows))
	for i, r := range rows {
		out[i] = catalogFromRow(r)
	}
	return out, nil
}

func (p *Postgres) FindCatalogVariant(ctx context.Context, key core.VariantKey) (*core.CatalogVariant, error) {
	row, err := p.q.GetCatalogVariant(ctx, GetCatalogVariantParams{
		SupplierID: key.SupplierID,
		Sku:        key.SKU,
	})
	if err != nil {
		return nil, notFound(err, "variant", key.String())
	}
	cv := catalogFromRow(row)
	return &cv, nil
}

// UpsertCatalogVariants writes the batch in one transaction.
func (p *Postgres) UpsertCatalogVariants(ctx context.Context, variants []core.CatalogVariant) error {
	return p.inTx(ctx, func(q *Queries) error {
		for _, v := range variants {
			key := v.Key()
			if err := q.UpsertCatalogVariant(ctx, UpsertCatalogVariantParams{
				SupplierID:  key.SupplierID,
				Sku:         key.SKU,
				ProductID:   v.ProductID,
				SupplierSku: v.SupplierSKU,
				Size:        v.Size,
				Color:       v.Color,
			}); err != nil {
				return fmt.Errorf("upsert catalog variant %s: %w", key, err)
			}
		}
		return nil
	})
}

func catalogFromRow(r CatalogVariant) core.CatalogVariant {
	return core.CatalogVariant{
		ProductID:   r.ProductID,
		SupplierID:  r.SupplierID,
		SKU:         r.Sku,
		SupplierSKU: r.SupplierSku,
		Size:        r.Size,
		Color:       r.Color,
	}
}

/* ----------------------------------------
	Variants
---------------------------------------- */

func (p *Postgres) GetVariant(ctx context.Context, key core.VariantKey) (*core.ProductVariant, error) {
	row, err := p.q.GetVariant(ctx, GetVariantParams{SupplierID: key.SupplierID, Sku: key.SKU})
	if err != nil {
		return nil, notFound(err, "variant", key.String())
	}
	return variantFromRow(row)
}

func (p *Postgres) FindVariantBySKU(ctx context.Context, sku string) (*core.ProductVariant, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	row, err := p.q.GetVariantBySku(ctx, sku)
	if err != nil {
		return nil, notFound(err, "variant", sku)
	}
	return variantFromRow(row)
}

func (p *Postgres) InsertVariant(ctx context.Context, v *core.ProductVariant) error {
	id, err := toPgUUID(v.ID)
	if err != nil {
		return fmt.Errorf("variant id: %w", err)
	}
	mappings, err := json.Marshal(v.SupplierMappings)
	if err != nil {
		return fmt.Errorf("encode supplier mappings: %w", err)
	}
	return p.q.InsertVariant(ctx, InsertVariantParams{
		ID:               id,
		SupplierID:       v.SupplierID,
		Sku:              v.SKU,
		ProductID:        v.ProductID,
		Size:             v.Size,
		Color:            v.Color,
		Price:            toPgNumeric(v.Price),
		WholesaleCost:    toPgNumeric(v.WholesaleCost),
		PreviousPrice:    toPgNumericPtr(v.PreviousPrice),
		PriceLastChanged: toPgTimePtr(v.PriceLastChanged),
		LeadTimeDays:     toPgInt4(v.LeadTimeDays),
		Quantity:         int32(v.Inventory.Quantity),
		Status:           string(v.Inventory.Status),
		PreviousQuantity: toPgInt4(v.Inventory.PreviousQuantity),
		LastSync:         toPgTime(v.Inventory.LastSync),
		SupplierMappings: mappings,
		UpdatedAt:        toPgTime(v.UpdatedAt),
	})
}

func (p *Postgres) UpdateVariant(ctx context.Context, v *core.ProductVariant) error {
	return writeVariant(ctx, p.q, v)
}

// ApplyVariantUpdate writes the variant's new state and the changes that
// led to it in one transaction. Either both land or neither does.
func (p *Postgres) ApplyVariantUpdate(ctx context.Context, v *core.ProductVariant, changes []core.InventoryChange) error {
	return p.inTx(ctx, func(q *Queries) error {
		if err := writeVariant(ctx, q, v); err != nil {
			return err
		}
		return insertChanges(ctx, q, changes)
	})
}

func writeVariant(ctx context.Context, q *Queries, v *core.ProductVariant) error {
	id, err := toPgUUID(v.ID)
	if err != nil {
		return fmt.Errorf("variant id: %w", err)
	}
	mappings, err := json.Marshal(v.SupplierMappings)
	if err != nil {
		return fmt.Errorf("encode supplier mappings: %w", err)
	}
	return q.UpdateVariant(ctx, UpdateVariantParams{
		ID:               id,
		ProductID:        v.ProductID,
		Size:             v.Size,
		Color:            v.Color,
		Price:            toPgNumeric(v.Price),
		WholesaleCost:    toPgNumeric(v.WholesaleCost),
		PreviousPrice:    toPgNumericPtr(v.PreviousPrice),
		PriceLastChanged: toPgTimePtr(v.PriceLastChanged),
		LeadTimeDays:     toPgInt4(v.LeadTimeDays),
		Quantity:         int32(v.Inventory.Quantity),
		Status:           string(v.Inventory.Status),
		PreviousQuantity: toPgInt4(v.Inventory.PreviousQuantity),
		LastSync:         toPgTime(v.Inventory.LastSync),
		SupplierMappings: mappings,
		UpdatedAt:        toPgTime(v.UpdatedAt),
	})
}

func variantFromRow(r ProductVariant) (*core.ProductVariant, error) {
	var mappings []core.SupplierMapping
	if len(r.SupplierMappings) > 0 {
		if err := json.Unmarshal(r.SupplierMappings, &mappings); err != nil {
			return nil, fmt.Errorf("decode supplier mappings for %s: %w", r.Sku, err)
		}
	}
	return &core.ProductVariant{
		ID:               fromPgUUID(r.ID),
		ProductID:        r.ProductID,
		SupplierID:       r.SupplierID,
		SKU:              r.Sku,
		Size:             r.Size,
		Color:            r.Color,
		Price:            fromPgNumeric(r.Price),
		WholesaleCost:    fromPgNumeric(r.WholesaleCost),
		PreviousPrice:    fromPgNumericPtr(r.PreviousPrice),
		PriceLastChanged: fromPgTimePtr(r.PriceLastChanged),
		LeadTimeDays:     fromPgInt4(r.LeadTimeDays),
		Inventory: core.InventoryLevel{
			Quantity:         int(r.Quantity),
			Status:           core.StockStatus(r.Status),
			LastSync:         r.LastSync.Time,
			PreviousQuantity: fromPgInt4(r.PreviousQuantity),
		},
		SupplierMappings: mappings,
		UpdatedAt:        r.UpdatedAt.Time,
	}, nil
}

/* ----------------------------------------
	Changes
---------------------------------------- */

// InsertChanges records all changes of one update atomically.
func (p *Postgres) InsertChanges(ctx context.Context, changes []core.InventoryChange) error {
	return p.inTx(ctx, func(q *Queries) error {
		return insertChanges(ctx, q, changes)
	})
}

func insertChanges(ctx context.Context, q *Queries, changes []core.InventoryChange) error {
	for _, c := range changes {
		id, err := toPgUUID(c.ID)
		if err != nil {
			return fmt.Errorf("change id: %w", err)
		}
		variantID, err := toPgUUID(c.VariantID)
		if err != nil {
			return fmt.Errorf("change variant id: %w", err)
		}
		if err := q.InsertInventoryChange(ctx, InsertInventoryChangeParams{
			ID:         id,
			VariantID:  variantID,
			Sku:        c.SKU,
			SupplierID: c.SupplierID,
			ChangeType: string(c.ChangeType),
			OldValue:   c.OldValue,
			NewValue:   c.NewValue,
			Source:     string(c.Source),
			DetectedAt: toPgTime(c.DetectedAt),
			Notified:   c.Notified,
		}); err != nil {
			return fmt.Errorf("insert change %s: %w", c.ID, err)
		}
	}
	return nil
}

func (p *Postgres) MarkChangesNotified(ctx context.Context, ids []string) error {
	pgIDs := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		u, err := toPgUUID(id)
		if err != nil {
			return fmt.Errorf("change id: %w", err)
		}
		pgIDs = append(pgIDs, u)
	}
	return p.q.MarkChangesNotified(ctx, pgIDs)
}

func (p *Postgres) RecentChanges(ctx context.Context, limit int) ([]core.InventoryChange, error) {
	rows, err := p.q.ListRecentChanges(ctx, int32(limit))
	if err != nil {
		return nil, err
	}
	out := make([]core.InventoryChange, len(rows))
	for i, r := range rows {
		out[i] = core.InventoryChange{
			ID:         fromPgUUID(r.ID),
			VariantID:  fromPgUUID(r.VariantID),
			SKU:        r.Sku,
			SupplierID: r.SupplierID,
			ChangeType: core.ChangeType(r.ChangeType),
			OldValue:   r.OldValue,
			NewValue:   r.NewValue,
			Source:     core.ChangeSource(r.Source),
			DetectedAt: r.DetectedAt.Time,
			Notified:   r.Notified,
		}
	}
	return out, nil
}

/* ----------------------------------------
	Sync logs
---------------------------------------- */

func (p *Postgres) CreateSyncLog(ctx context.Context, log *core.SyncLog) error {
	id, err := toPgUUID(log.ID)
	if err != nil {
		return fmt.Errorf("sync log id: %w", err)
	}
	errs, err := encodeErrors(log.Errors)
	if err != nil {
		return err
	}
	return p.q.InsertSyncLog(ctx, InsertSyncLogParams{
		ID:         id,
		SupplierID: log.SupplierID,
		Status:     string(log.Status),
		StartedAt:  toPgTime(log.StartedAt),
		Errors:     errs,
	})
}

func (p *Postgres) FinishSyncLog(ctx context.Context, log *core.SyncLog) error {
	id, err := toPgUUID(log.ID)
	if err != nil {
		return fmt.Errorf("sync log id: %w", err)
	}
	errs, err := encodeErrors(log.Errors)
	if err != nil {
		return err
	}
	return p.q.FinishSyncLog(ctx, FinishSyncLogParams{
		ID:              id,
		Status:          string(log.Status),
		CompletedAt:     toPgTimePtr(log.CompletedAt),
		VariantsSynced:  int32(log.VariantsSynced),
		ChangesDetected: int32(log.ChangesDetected),
		Errors:          errs,
		DurationMs:      log.Duration.Milliseconds(),
	})
}

func (p *Postgres) SyncHistory(ctx context.Context, limit int) ([]core.SyncLog, error) {
	rows, err := p.q.ListSyncLogs(ctx, int32(limit))
	if err != nil {
		return nil, err
	}
	out := make([]core.SyncLog, 0, len(rows))
	for _, r := range rows {
		errs := []string{}
		if len(r.Errors) > 0 {
			if err := json.Unmarshal(r.Errors, &errs); err != nil {
				return nil, fmt.Errorf("decode sync log errors: %w", err)
			}
		}
		out = append(out, core.SyncLog{
			ID:              fromPgUUID(r.ID),
			SupplierID:      r.SupplierID,
			Status:          core.SyncStatus(r.Status),
			StartedAt:       r.StartedAt.Time,
			CompletedAt:     fromPgTimePtr(r.CompletedAt),
			VariantsSynced:  int(r.VariantsSynced),
			ChangesDetected: int(r.ChangesDetected),
			Errors:          errs,
			Duration:        time.Duration(r.DurationMs) * time.Millisecond,
		})
	}
	return out, nil
}

func encodeErrors(errs []string) ([]byte, error) {
	if errs == nil {
		errs = []string{}
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return nil, fmt.Errorf("encode sync log errors: %w", err)
	}
	return b, nil
}

/* ----------------------------------------
	Transactions
---------------------------------------- */

func (p *Postgres) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := fn(p.q.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func normalizeSupplierID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
