package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/invsync/internal/connector"
	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/normalize"
)

// SyncResult summarizes one supplier sync run.
type SyncResult struct {
	SupplierID      string          `json:"supplierId"`
	SyncLogID       string          `json:"syncLogId,omitempty"`
	Status          core.SyncStatus `json:"status"`
	VariantsSynced  int             `json:"variantsSynced"`
	ChangesDetected int             `json:"changesDetected"`
	Failures        int             `json:"failures"`
	Errors          []string        `json:"errors"`
	Duration        string          `json:"duration"`
}

// SyncSupplier pulls current state for every catalog variant of one
// supplier and applies it. Variants are processed in catalog order, in
// batches of Options.BatchSize.
//
// A failed product fetch is counted and recorded on the sync log; it never
// aborts the run. Anything else (catalog or store failures, cancellation)
// marks the run failed and is returned.
func (s *Service) SyncSupplier(ctx context.Context, supplierID string, source core.ChangeSource) (*SyncResult, error) {
	sup, err := s.suppliers.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	conn, err := s.connectors.MustGet(sup.ID)
	if err != nil {
		return nil, err
	}

	release, err := s.limiter.acquire(ctx, sup.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := s.now()
	log := &core.SyncLog{
		ID:         uuid.New().String(),
		SupplierID: sup.ID,
		Status:     core.SyncRunning,
		StartedAt:  start,
		Errors:     []string{},
	}
	if err := s.store.CreateSyncLog(ctx, log); err != nil {
		return nil, fmt.Errorf("create sync log: %w", err)
	}

	logger := s.logger.With("supplier", sup.ID, "sync_id", log.ID)
	logger.Info("sync started", "source", source)

	runErr := s.syncCatalog(ctx, conn, sup.ID, source, log)
	failures := len(log.Errors)

	finished := s.now()
	log.CompletedAt = &finished
	log.Duration = finished.Sub(start)
	if runErr != nil {
		log.Status = core.SyncFailed
		log.Errors = append(log.Errors, runErr.Error())
	} else {
		log.Status = core.SyncCompleted
	}

	// The run's own context may be the reason it failed.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.store.FinishSyncLog(persistCtx, log); err != nil {
		logger.Error("finish sync log failed", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("finish sync log: %w", err)
		}
	}
	if runErr == nil {
		if err := s.suppliers.MarkSynced(persistCtx, sup.ID, finished); err != nil {
			logger.Warn("mark supplier synced failed", "error", err)
		}
	}
	s.metrics.RecordSync(sup.ID, log.Status, log.Duration)

	res := &SyncResult{
		SupplierID:      sup.ID,
		SyncLogID:       log.ID,
		Status:          log.Status,
		VariantsSynced:  log.VariantsSynced,
		ChangesDetected: log.ChangesDetected,
		Failures:        failures,
		Errors:          log.Errors,
		Duration:        log.Duration.Round(time.Millisecond).String(),
	}

	if runErr != nil {
		logger.Error("sync failed",
			"variants_synced", log.VariantsSynced,
			"changes", log.ChangesDetected,
			"error", runErr,
		)
		return res, runErr
	}
	logger.Info("sync completed",
		"variants_synced", log.VariantsSynced,
		"changes", log.ChangesDetected,
		"failures", res.Failures,
		"duration_ms", log.Duration.Milliseconds(),
	)
	return res, nil
}

// syncCatalog walks the supplier's catalog batch by batch.
func (s *Service) syncCatalog(ctx context.Context, conn connector.Connector, supplierID string, source core.ChangeSource, log *core.SyncLog) error {
	for offset := 0; ; {
		if err := ctx.Err(); err != nil {
			return err
		}
		items, err := s.catalog.ListCatalogVariants(ctx, supplierID, offset, s.opts.BatchSize)
		if err != nil {
			return fmt.Errorf("list catalog variants at %d: %w", offset, err)
		}
		if err := s.syncBatch(ctx, conn, items, source, log); err != nil {
			return err
		}
		if len(items) < s.opts.BatchSize {
			return nil
		}
		offset += len(items)
	}
}

// syncBatch applies one batch. Each supplier product is fetched once per
// batch even when several catalog variants share it.
func (s *Service) syncBatch(ctx context.Context, conn connector.Connector, items []core.CatalogVariant, source core.ChangeSource, log *core.SyncLog) error {
	type fetched struct {
		product *core.NormalizedProduct
		err     error
	}
	products := make(map[string]fetched)

	for _, item := range items {
		id := strings.ToUpper(strings.TrimSpace(item.SupplierSKU))
		f, ok := products[id]
		if !ok {
			p, err := s.fetchProduct(ctx, conn, item.SupplierSKU)
			f = fetched{product: p, err: err}
			products[id] = f
		}
		if f.err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Errors = append(log.Errors, fmt.Sprintf("%s: %v", item.SKU, f.err))
			continue
		}

		changes, err := s.UpdateVariantInventory(ctx, item, deriveUpdate(item, f.product), source)
		if err != nil {
			return fmt.Errorf("update %s: %w", item.SKU, err)
		}
		log.VariantsSynced++
		log.ChangesDetected += len(changes)
	}
	return nil
}

func (s *Service) fetchProduct(ctx context.Context, conn connector.Connector, id string) (*core.NormalizedProduct, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	p, err := conn.FetchProduct(ctx, id)
	if err == nil && p == nil {
		err = &core.NotFoundError{Resource: "product", ID: id}
	}
	if err != nil {
		s.metrics.RecordFetchError(conn.SupplierID())
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.Transient("fetch "+id, err)
		}
		return nil, err
	}
	return p, nil
}

// deriveUpdate picks the values for one catalog variant out of its
// supplier product. Per-color stock and price win when the supplier
// reports them; otherwise the product totals apply.
func deriveUpdate(item core.CatalogVariant, p *core.NormalizedProduct) core.VariantUpdate {
	upd := core.VariantUpdate{
		Size:         item.Size,
		Color:        item.Color,
		ProductID:    item.ProductID,
		LeadTimeDays: p.LeadTimeDays,
	}

	qty := p.TotalInventory
	color, found := findColor(p.Colors, item.Color)
	if found && colorStockReported(p.Colors) {
		qty = color.Stock
	}
	upd.Quantity = &qty

	switch {
	case found && color.Price > 0:
		price := color.Price
		upd.Price = &price
	case len(p.BulkBreaks) > 0:
		price := normalize.PriceForQuantity(p.BulkBreaks, 1)
		upd.Price = &price
	}
	return upd
}

func findColor(colors []core.ProductColor, name string) (core.ProductColor, bool) {
	if strings.TrimSpace(name) == "" {
		return core.ProductColor{}, false
	}
	want, _ := normalize.Color(name)
	for _, c := range colors {
		if strings.EqualFold(c.Name, want.Name) || strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return core.ProductColor{}, false
}

func colorStockReported(colors []core.ProductColor) bool {
	for _, c := range colors {
		if c.Stock > 0 {
			return true
		}
	}
	return false
}

// SyncAllSuppliers syncs every active supplier one after another. One
// supplier failing does not stop the others; its result carries the error.
func (s *Service) SyncAllSuppliers(ctx context.Context, source core.ChangeSource) ([]SyncResult, error) {
	sups, err := s.suppliers.ListSuppliers(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}

	results := make([]SyncResult, 0, len(sups))
	for _, sup := range sups {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.SyncSupplier(ctx, sup.ID, source)
		if res == nil {
			res = &SyncResult{SupplierID: sup.ID, Status: core.SyncFailed}
		}
		if err != nil {
			if len(res.Errors) == 0 {
				res.Errors = []string{err.Error()}
			}
			s.logger.Warn("supplier sync failed", "supplier", sup.ID, "error", err)
		}
		results = append(results, *res)
	}
	return results, nil
}
