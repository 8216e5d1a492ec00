package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/logging"
	"github.com/JonMunkholm/invsync/internal/normalize"
)

// Result is the outcome of normalizing one record. Product is nil whenever
// Errors is non-empty. Warnings never block a product.
type Result struct {
	Product  *core.NormalizedProduct `json:"product"`
	Warnings []string                `json:"warnings"`
	Errors   []string                `json:"errors"`
}

// OK reports whether the record produced a product.
func (r Result) OK() bool {
	return r.Product != nil && len(r.Errors) == 0
}

// Service normalizes raw supplier records through the mapping registry.
type Service struct {
	registry *Registry
	now      func() time.Time
}

// NewService creates a normalizer backed by registry. A nil registry uses
// the built-in mappings.
func NewService(registry *Registry) *Service {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Service{
		registry: registry,
		now:      time.Now,
	}
}

// Registry returns the service's mapping registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Normalize maps one raw record from supplierID into a NormalizedProduct.
// It never returns an error: mapping and validation problems are reported
// in the Result.
func (s *Service) Normalize(ctx context.Context, supplierID string, raw map[string]any) Result {
	var res Result

	m, ok := s.registry.Get(supplierID)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("no mapping registered for supplier %q", supplierID))
		return res
	}
	if len(raw) == 0 {
		res.Errors = append(res.Errors, "record is empty")
		return res
	}

	p := s.mapRecord(m, raw, &res.Warnings)

	if v := Validate(p); !v.Valid {
		for _, e := range v.Errors {
			res.Errors = append(res.Errors, e.Error())
		}
		logging.FromContext(ctx).Debug("record failed validation",
			"supplier", m.SupplierID, "style", p.StyleID, "errors", len(v.Errors))
		return res
	}

	res.Product = p
	return res
}

func (s *Service) mapRecord(m Mapping, raw map[string]any, warnings *[]string) *core.NormalizedProduct {
	warn := func(format string, args ...any) {
		*warnings = append(*warnings, fmt.Sprintf(format, args...))
	}

	p := &core.NormalizedProduct{
		SupplierID:  m.SupplierID,
		StyleID:     normalize.ExtractString(raw, m.StyleID...),
		SupplierSKU: normalize.ExtractString(raw, m.SupplierSKU...),
		Description: normalize.ExtractString(raw, m.Description...),
		LastUpdated: s.now().UTC(),
	}
	if p.SupplierSKU == "" {
		p.SupplierSKU = p.StyleID
	}

	rawName := normalize.ExtractString(raw, m.ProductName...)

	// Brand: explicit field, then the supplier default, then the name.
	rawBrand := normalize.ExtractString(raw, m.Brand...)
	if rawBrand == "" {
		rawBrand = m.DefaultBrand
	}
	if rawBrand == "" {
		rawBrand = normalize.DetectBrand(rawName)
	}
	p.Brand = normalize.Brand(rawBrand)

	p.Name = normalize.StripNamePrefix(rawName, p.Brand, p.StyleID)

	rawCategory := normalize.ExtractString(raw, m.Category...)
	p.Category = normalize.Category(rawCategory)
	if rawCategory != "" && p.Category == "other" {
		warn("category %q unrecognized, using other", rawCategory)
	}

	sizes, unresolved := normalize.Sizes(normalize.ExtractStrings(raw, m.Sizes, m.SizeName...))
	for _, u := range unresolved {
		warn("size %q unrecognized, raw value kept", u)
	}
	p.Sizes = sizes

	p.Colors = s.mapColors(m, raw, warn)

	if v, ok := normalize.Extract(raw, m.Pricing...); ok {
		p.BulkBreaks = normalize.PricingTiers(v)
		if len(p.BulkBreaks) == 0 {
			warn("pricing present but no usable tiers")
		}
	}
	if len(p.BulkBreaks) > 0 {
		p.BaseCost = p.BulkBreaks[0].Price
	}

	if rawMaterial := normalize.ExtractString(raw, m.Material...); rawMaterial != "" {
		p.Material = normalize.Material(rawMaterial)
	}
	if v, ok := normalize.Extract(raw, m.Weight...); ok {
		if oz, ok := normalize.WeightOz(v); ok {
			p.WeightOz = oz
		} else {
			warn("weight %v could not be converted to ounces", v)
		}
	}

	p.ImageURLs = normalize.ExtractStrings(raw, m.Images, m.ImageURL...)
	p.Tags = normalize.ExtractStrings(raw, m.Tags)

	if days, ok := normalize.ExtractFloat(raw, m.LeadTime...); ok && days >= 0 {
		d := int(days)
		p.LeadTimeDays = &d
	}

	// Total stock: the record's own figure, else the per-color sum.
	if total, ok := normalize.ExtractFloat(raw, m.Stock...); ok {
		p.TotalInventory = core.ClampQuantity(int(total))
	} else {
		for _, c := range p.Colors {
			p.TotalInventory += c.Stock
		}
	}
	p.InStock = p.TotalInventory > 0

	// The product SKU is its lead variant: first color, first size.
	leadColor, leadSize := "", ""
	if len(p.Colors) > 0 {
		leadColor = p.Colors[0].Name
	}
	if len(p.Sizes) > 0 {
		leadSize = p.Sizes[0]
	}
	if p.StyleID != "" {
		p.SKU = normalize.NormalizeSKU(p.Brand, p.StyleID, leadColor, leadSize)
	}

	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

func (s *Service) mapColors(m Mapping, raw map[string]any, warn func(string, ...any)) []core.ProductColor {
	v, ok := normalize.Extract(raw, m.Colors)
	if !ok {
		return []core.ProductColor{}
	}

	var entries []any
	switch x := v.(type) {
	case []any:
		entries = x
	case string:
		for _, name := range strings.Split(x, ",") {
			entries = append(entries, name)
		}
	default:
		return []core.ProductColor{}
	}

	colors := make([]core.ProductColor, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		var (
			name  string
			stock float64
			price float64
			sku   string
		)
		switch x := e.(type) {
		case string:
			name = strings.TrimSpace(x)
		case map[string]any:
			name = normalize.ExtractString(x, m.ColorName...)
			stock, _ = normalize.ExtractFloat(x, m.ColorStock...)
			price, _ = normalize.ExtractFloat(x, m.ColorPrice...)
			sku = normalize.ExtractString(x, m.ColorSKU...)
		}
		if name == "" {
			continue
		}

		c, known := normalize.Color(name)
		if !known {
			warn("color %q not in palette, using default hex", name)
		}
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true

		c.SKU = sku
		c.Stock = core.ClampQuantity(int(stock))
		if price > 0 {
			c.Price = normalize.RoundCents(price)
		}
		colors = append(colors, c)
	}
	return colors
}

// Summary counts the outcomes of a batch.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Warnings   int `json:"warnings"`
}

// BatchResult holds per-record results in input order.
type BatchResult struct {
	SupplierID string    `json:"supplierId"`
	Results    []Result  `json:"results"`
	Summary    Summary   `json:"summary"`
	StartedAt  time.Time `json:"startedAt"`
	Duration   string    `json:"duration"`
}

// Products returns the successfully normalized products in input order.
func (b *BatchResult) Products() []core.NormalizedProduct {
	out := make([]core.NormalizedProduct, 0, b.Summary.Successful)
	for _, r := range b.Results {
		if r.Product != nil {
			out = append(out, *r.Product)
		}
	}
	return out
}

// NormalizeBatch normalizes records in order. A cancelled context stops the
// batch; records not reached are counted as failed.
func (s *Service) NormalizeBatch(ctx context.Context, supplierID string, records []map[string]any) *BatchResult {
	start := s.now()
	batch := &BatchResult{
		SupplierID: supplierID,
		Results:    make([]Result, 0, len(records)),
		StartedAt:  start.UTC(),
	}

	for _, rec := range records {
		var r Result
		if err := ctx.Err(); err != nil {
			r.Errors = []string{fmt.Sprintf("batch cancelled: %v", err)}
		} else {
			r = s.Normalize(ctx, supplierID, rec)
		}
		batch.Results = append(batch.Results, r)

		batch.Summary.Total++
		batch.Summary.Warnings += len(r.Warnings)
		if r.OK() {
			batch.Summary.Successful++
		} else {
			batch.Summary.Failed++
		}
	}
	batch.Duration = s.now().Sub(start).String()

	logging.FromContext(ctx).Info("batch normalized",
		"supplier", supplierID,
		"total", batch.Summary.Total,
		"successful", batch.Summary.Successful,
		"failed", batch.Summary.Failed,
		"warnings", batch.Summary.Warnings,
	)
	return batch
}
