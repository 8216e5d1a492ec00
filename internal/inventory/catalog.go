package inventory

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/normalize"
)

// ImportCatalog lists every color and size of a supplier's current
// products in the catalog, so the next sync tracks them. Existing entries
// keep their position. Returns the number of variants written.
func (s *Service) ImportCatalog(ctx context.Context, supplierID string) (int, error) {
	sup, err := s.suppliers.GetSupplier(ctx, supplierID)
	if err != nil {
		return 0, err
	}
	conn, err := s.connectors.MustGet(sup.ID)
	if err != nil {
		return 0, err
	}

	products, err := conn.FetchProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch %s catalog: %w", sup.ID, err)
	}

	var variants []core.CatalogVariant
	for _, p := range products {
		variants = append(variants, CatalogVariants(sup.ID, p)...)
	}
	if len(variants) == 0 {
		return 0, nil
	}
	if err := s.catalog.UpsertCatalogVariants(ctx, variants); err != nil {
		return 0, fmt.Errorf("store %s catalog: %w", sup.ID, err)
	}

	s.logger.Info("catalog imported",
		"supplier", sup.ID,
		"products", len(products),
		"variants", len(variants),
	)
	return len(variants), nil
}

// CatalogVariants expands a product into one catalog entry per color and
// size, in the product's color then size order.
func CatalogVariants(supplierID string, p core.NormalizedProduct) []core.CatalogVariant {
	colors := p.Colors
	if len(colors) == 0 {
		colors = []core.ProductColor{{}}
	}
	sizes := p.Sizes
	if len(sizes) == 0 {
		sizes = []string{""}
	}

	out := make([]core.CatalogVariant, 0, len(colors)*len(sizes))
	for _, c := range colors {
		for _, size := range sizes {
			out = append(out, core.CatalogVariant{
				ProductID:   p.StyleID,
				SupplierID:  supplierID,
				SKU:         normalize.NormalizeSKU(p.Brand, p.StyleID, c.Name, size),
				SupplierSKU: p.StyleID,
				Size:        size,
				Color:       c.Name,
			})
		}
	}
	return out
}

// ResolveVariant finds the catalog entry for key, preferring the stored
// variant and falling back to the catalog for SKUs never synced. Unknown
// SKUs return a *core.NotFoundError.
func (s *Service) ResolveVariant(ctx context.Context, key core.VariantKey) (*core.CatalogVariant, error) {
	v, err := s.store.GetVariant(ctx, key)
	if err == nil {
		return &core.CatalogVariant{
			ProductID:  v.ProductID,
			SupplierID: v.SupplierID,
			SKU:        v.SKU,
			Size:       v.Size,
			Color:      v.Color,
		}, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	cv, err := s.catalog.FindCatalogVariant(ctx, key)
	if isNotFound(err) {
		return nil, &core.NotFoundError{Resource: "sku", ID: key.String()}
	}
	return cv, err
}
