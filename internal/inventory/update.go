package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/normalize"
)

// UpdateVariantInventory applies supplier state to one variant and returns
// the changes it detected.
//
// A variant seen for the first time is inserted as a baseline and yields
// no changes. A price of zero means none was reported yet, so the first
// price seen afterwards is baselined the same way. Otherwise each field
// that moved records one change, and the variant is written together
// with its changes; re-applying the same update yields none. The cached
// inventory entries, per supplier and SKU-only, are dropped either way.
func (s *Service) UpdateVariantInventory(ctx context.Context, item core.CatalogVariant, upd core.VariantUpdate, source core.ChangeSource) ([]core.InventoryChange, error) {
	key := item.Key()
	if key.IsZero() {
		return nil, core.ValidationError{Field: "sku", Message: "sku is required"}
	}

	unlock := s.locks.Lock(key)
	defer unlock()
	defer s.cache.Delete(context.WithoutCancel(ctx), key.CacheKey(), core.NewVariantKey("", key.SKU).CacheKey())

	now := s.now()
	existing, err := s.store.GetVariant(ctx, key)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("load variant %s: %w", key, err)
	}
	if existing == nil {
		v := baselineVariant(item, upd, now)
		if err := s.store.InsertVariant(ctx, v); err != nil {
			return nil, fmt.Errorf("insert variant %s: %w", key, err)
		}
		s.logger.Debug("baseline variant stored", "variant", key.String(), "quantity", v.Inventory.Quantity)
		return nil, nil
	}

	v := *existing
	var changes []core.InventoryChange
	record := func(t core.ChangeType, oldVal, newVal string) {
		changes = append(changes, core.InventoryChange{
			ID:         uuid.New().String(),
			VariantID:  v.ID,
			SKU:        v.SKU,
			SupplierID: v.SupplierID,
			ChangeType: t,
			OldValue:   oldVal,
			NewValue:   newVal,
			Source:     source,
			DetectedAt: now,
		})
	}

	oldQty := existing.Inventory.Quantity
	oldStatus := existing.Inventory.Status
	if upd.Quantity != nil {
		newQty := core.ClampQuantity(*upd.Quantity)
		if newQty != oldQty {
			record(core.ChangeQuantity, strconv.Itoa(oldQty), strconv.Itoa(newQty))
			prev := oldQty
			v.Inventory.PreviousQuantity = &prev
			v.Inventory.Quantity = newQty
		}
	}
	if newStatus := core.CalculateStatus(v.Inventory.Quantity); newStatus != oldStatus {
		record(core.ChangeStatus, string(oldStatus), string(newStatus))
		v.Inventory.Status = newStatus
	}

	oldPrice := existing.Price
	switch {
	case upd.Price == nil:
	case oldPrice <= 0:
		// Baselined without a price; the first reported price is its
		// baseline, not a change.
		v.Price = normalize.RoundCents(*upd.Price)
		v.WholesaleCost = v.Price
	case normalize.PriceChanged(oldPrice, *upd.Price):
		newPrice := normalize.RoundCents(*upd.Price)
		record(core.ChangePrice, formatPrice(oldPrice), formatPrice(newPrice))
		prev := oldPrice
		v.PreviousPrice = &prev
		v.PriceLastChanged = &now
		v.Price = newPrice
		v.WholesaleCost = newPrice
	}

	if upd.LeadTimeDays != nil && (existing.LeadTimeDays == nil || *existing.LeadTimeDays != *upd.LeadTimeDays) {
		record(core.ChangeLeadTime, formatDays(existing.LeadTimeDays), strconv.Itoa(*upd.LeadTimeDays))
		days := *upd.LeadTimeDays
		v.LeadTimeDays = &days
	}

	if upd.Size != "" {
		v.Size = upd.Size
	}
	if upd.Color != "" {
		v.Color = upd.Color
	}
	if upd.ProductID != "" {
		v.ProductID = upd.ProductID
	}
	v.Inventory.LastSync = now
	v.UpdatedAt = now
	v.SupplierMappings = refreshMapping(v.SupplierMappings, item, &v, now)

	if err := s.store.ApplyVariantUpdate(ctx, &v, changes); err != nil {
		return nil, fmt.Errorf("update variant %s: %w", key, err)
	}
	if len(changes) == 0 {
		return nil, nil
	}

	for _, c := range changes {
		s.metrics.RecordChange(v.SupplierID, c.ChangeType)
	}
	s.logger.Info("variant changed",
		"variant", key.String(),
		"changes", len(changes),
		"source", source,
	)

	if events := detectEvents(existing, &v, changes, source, now); len(events) > 0 {
		s.dispatch(ctx, events)
	}
	return changes, nil
}

func baselineVariant(item core.CatalogVariant, upd core.VariantUpdate, now time.Time) *core.ProductVariant {
	key := item.Key()
	qty := 0
	if upd.Quantity != nil {
		qty = core.ClampQuantity(*upd.Quantity)
	}
	var price float64
	if upd.Price != nil {
		price = normalize.RoundCents(*upd.Price)
	}
	var lead *int
	if upd.LeadTimeDays != nil {
		days := *upd.LeadTimeDays
		lead = &days
	}

	v := &core.ProductVariant{
		ID:            uuid.New().String(),
		ProductID:     firstNonEmpty(upd.ProductID, item.ProductID),
		SupplierID:    key.SupplierID,
		SKU:           key.SKU,
		Size:          firstNonEmpty(upd.Size, item.Size),
		Color:         firstNonEmpty(upd.Color, item.Color),
		Price:         price,
		WholesaleCost: price,
		LeadTimeDays:  lead,
		Inventory: core.InventoryLevel{
			Quantity: qty,
			Status:   core.CalculateStatus(qty),
			LastSync: now,
		},
		UpdatedAt: now,
	}
	v.SupplierMappings = refreshMapping(nil, item, v, now)
	return v
}

// refreshMapping updates the variant's listing at item's supplier, adding
// it as the primary mapping when absent.
func refreshMapping(mappings []core.SupplierMapping, item core.CatalogVariant, v *core.ProductVariant, now time.Time) []core.SupplierMapping {
	lead := 0
	if v.LeadTimeDays != nil {
		lead = *v.LeadTimeDays
	}
	out := make([]core.SupplierMapping, len(mappings), len(mappings)+1)
	copy(out, mappings)
	for i := range out {
		if out[i].SupplierID == v.SupplierID {
			out[i].SupplierPrice = v.Price
			out[i].LeadTimeDays = lead
			out[i].InStock = v.Inventory.Quantity > 0
			out[i].LastUpdated = now
			if item.SupplierSKU != "" {
				out[i].SupplierSKU = item.SupplierSKU
			}
			return out
		}
	}
	return append(out, core.SupplierMapping{
		SupplierID:    v.SupplierID,
		SupplierSKU:   item.SupplierSKU,
		SupplierPrice: v.Price,
		IsPrimary:     len(out) == 0,
		LeadTimeDays:  lead,
		InStock:       v.Inventory.Quantity > 0,
		LastUpdated:   now,
	})
}

// detectEvents finds the alert-worthy transitions between two states.
func detectEvents(before, after *core.ProductVariant, changes []core.InventoryChange, source core.ChangeSource, now time.Time) []ChangeEvent {
	idsOf := func(types ...core.ChangeType) []string {
		var ids []string
		for _, c := range changes {
			for _, t := range types {
				if c.ChangeType == t {
					ids = append(ids, c.ID)
				}
			}
		}
		return ids
	}
	base := ChangeEvent{
		SupplierID:  after.SupplierID,
		SKU:         after.SKU,
		VariantID:   after.ID,
		OldQuantity: before.Inventory.Quantity,
		NewQuantity: after.Inventory.Quantity,
		Source:      source,
		DetectedAt:  now,
	}

	var events []ChangeEvent
	if before.Inventory.Status != after.Inventory.Status {
		switch after.Inventory.Status {
		case core.StatusOutOfStock:
			ev := base
			ev.Kind = EventOutOfStock
			ev.changeIDs = idsOf(core.ChangeQuantity, core.ChangeStatus)
			events = append(events, ev)
		case core.StatusLowStock:
			ev := base
			ev.Kind = EventLowStock
			ev.changeIDs = idsOf(core.ChangeQuantity, core.ChangeStatus)
			events = append(events, ev)
		}
	}
	if inc := normalize.PriceIncrease(before.Price, after.Price); inc > PriceAlertThreshold {
		ev := base
		ev.Kind = EventPriceIncrease
		ev.OldPrice = before.Price
		ev.NewPrice = after.Price
		ev.Increase = inc
		ev.changeIDs = idsOf(core.ChangePrice)
		events = append(events, ev)
	}
	return events
}

// dispatch delivers events in the background under NotifyTimeout.
// Delivered changes are marked notified; failures are only logged.
func (s *Service) dispatch(ctx context.Context, events []ChangeEvent) {
	base := context.WithoutCancel(ctx)
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		ctx, cancel := context.WithTimeout(base, s.opts.NotifyTimeout)
		defer cancel()

		var delivered []string
		for _, ev := range events {
			if err := s.notifier.Notify(ctx, ev); err != nil {
				s.logger.Warn("notification failed", "kind", ev.Kind, "sku", ev.SKU, "error", err)
				continue
			}
			delivered = append(delivered, ev.changeIDs...)
		}
		if len(delivered) == 0 {
			return
		}
		if err := s.store.MarkChangesNotified(ctx, delivered); err != nil {
			s.logger.Warn("mark changes notified failed", "error", err)
		}
	}()
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

func formatDays(d *int) string {
	if d == nil {
		return ""
	}
	return strconv.Itoa(*d)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
