package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/invsync/internal/core"
)

func fixedService() *Service {
	s := NewService(nil)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func asColourRecord() map[string]any {
	return map[string]any{
		"styleCode":    "5001",
		"styleName":    "AS Colour 5001 - Staple Tee",
		"productType":  "T-Shirts",
		"composition":  "100% cotton",
		"fabricWeight": "180g",
		"pricing":      map[string]any{"wholesale": 12.5},
		"colors": []any{
			map[string]any{"colorName": "Black", "qty": float64(100)},
			map[string]any{"colorName": "heather gray", "qty": float64(20)},
		},
		"sizes":  []any{"XS", "S", "Medium", "XXL"},
		"images": []any{"https://cdn.example.com/5001.jpg"},
	}
}

func hasWarning(r Result, substr string) bool {
	for _, w := range r.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// Registry Tests
// ----------------------------------------------------------------------------

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	got := r.SupplierIDs()
	want := []string{"ascolour", "sanmar", "ssactivewear"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("SupplierIDs() = %v, want %v", got, want)
	}
	if _, ok := r.Get(" SanMar "); !ok {
		t.Error("Get() should match supplier ids case-insensitively")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(Mapping{SupplierID: "acme"})

	defer func() {
		if recover() == nil {
			t.Error("Register() should panic on duplicate supplier")
		}
	}()
	r.Register(Mapping{SupplierID: "ACME"})
}

// ----------------------------------------------------------------------------
// Validator Tests
// ----------------------------------------------------------------------------

func validProduct() *core.NormalizedProduct {
	return &core.NormalizedProduct{
		SupplierID:  "sanmar",
		StyleID:     "PC61",
		SKU:         "PC-PC61-BLK-M",
		SupplierSKU: "PC61",
		Name:        "Essential Tee",
		Brand:       "Port & Company",
		Category:    "t-shirts",
		Sizes:       []string{"M"},
		Colors:      []core.ProductColor{{Name: "Black", Hex: "#000000"}},
		BulkBreaks:  []core.PricingTier{{MinQuantity: 1, Price: 4.25}},
	}
}

func TestValidate(t *testing.T) {
	upTo := 11
	tests := []struct {
		name      string
		mutate    func(*core.NormalizedProduct)
		wantField string
	}{
		{name: "valid", mutate: func(*core.NormalizedProduct) {}},
		{name: "missing brand", mutate: func(p *core.NormalizedProduct) { p.Brand = "" }, wantField: "brand"},
		{name: "missing name", mutate: func(p *core.NormalizedProduct) { p.Name = "" }, wantField: "name"},
		{name: "missing supplier sku", mutate: func(p *core.NormalizedProduct) { p.SupplierSKU = "" }, wantField: "supplierSku"},
		{name: "missing supplier id", mutate: func(p *core.NormalizedProduct) { p.SupplierID = "" }, wantField: "supplierId"},
		{name: "malformed sku", mutate: func(p *core.NormalizedProduct) { p.SKU = "pc61 black" }, wantField: "sku"},
		{name: "no sizes", mutate: func(p *core.NormalizedProduct) { p.Sizes = nil }, wantField: "size"},
		{name: "no colors", mutate: func(p *core.NormalizedProduct) { p.Colors = nil }, wantField: "color"},
		{name: "no tiers", mutate: func(p *core.NormalizedProduct) { p.BulkBreaks = nil }, wantField: "bulkBreaks"},
		{
			name: "overlapping tiers",
			mutate: func(p *core.NormalizedProduct) {
				p.BulkBreaks = []core.PricingTier{
					{MinQuantity: 1, MaxQuantity: &upTo, Price: 5},
					{MinQuantity: 6, Price: 4},
				}
			},
			wantField: "bulkBreaks[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(p)
			res := Validate(p)

			if tt.wantField == "" {
				if !res.Valid || res.Err() != nil {
					t.Fatalf("Validate() = %+v, want valid", res.Errors)
				}
				return
			}
			if res.Valid {
				t.Fatalf("Validate() valid, want failure on %s", tt.wantField)
			}
			found := false
			for _, e := range res.Errors {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not mention %s", res.Errors, tt.wantField)
			}
			if core.StatusCode(res.Err()) != 400 {
				t.Errorf("Err() should classify as a validation error")
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	if Validate(nil).Valid {
		t.Error("nil product should not validate")
	}
}

// ----------------------------------------------------------------------------
// Normalize Tests
// ----------------------------------------------------------------------------

func TestNormalize_ASColour(t *testing.T) {
	res := fixedService().Normalize(context.Background(), "ascolour", asColourRecord())
	if !res.OK() {
		t.Fatalf("Normalize() errors = %v", res.Errors)
	}
	p := res.Product

	checks := []struct {
		field string
		got   any
		want  any
	}{
		{"Brand", p.Brand, "AS Colour"},
		{"Name", p.Name, "Staple Tee"},
		{"Category", p.Category, "t-shirts"},
		{"SKU", p.SKU, "ASC-5001-BLK-XS"},
		{"SupplierSKU", p.SupplierSKU, "5001"},
		{"Sizes", strings.Join(p.Sizes, ","), "XS,S,M,2XL"},
		{"Colors", len(p.Colors), 2},
		{"Color[1]", p.Colors[1].Name, "Heather Grey"},
		{"Material", p.Material, "100% Cotton"},
		{"WeightOz", p.WeightOz, 6.35},
		{"BaseCost", p.BaseCost, 12.5},
		{"TotalInventory", p.TotalInventory, 120},
		{"InStock", p.InStock, true},
		{"ImageURLs", len(p.ImageURLs), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.field, c.got, c.want)
		}
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
}

func TestNormalize_SSActivewearTiersAndWarnings(t *testing.T) {
	raw := map[string]any{
		"styleID":      float64(39),
		"styleName":    "5000",
		"title":        "Heavy Cotton T-Shirt",
		"brandName":    "Gildan",
		"categoryName": "Tees",
		"pieceWeight":  "heavy",
		"colors": []any{
			map[string]any{"colorName": "Black", "qty": float64(-4)},
			map[string]any{"colorName": "Electric Plum"},
		},
		"sizes": []any{"S", "Tall LT"},
		"pricing": []any{
			map[string]any{"quantity": float64(1), "price": 3.5},
			map[string]any{"quantity": float64(72), "price": 2.75},
		},
	}

	res := fixedService().Normalize(context.Background(), "ssactivewear", raw)
	if !res.OK() {
		t.Fatalf("Normalize() errors = %v", res.Errors)
	}
	p := res.Product

	if p.StyleID != "39" || p.SKU != "GIL-39-BLK-S" {
		t.Errorf("StyleID/SKU = %q/%q", p.StyleID, p.SKU)
	}
	if len(p.BulkBreaks) != 2 || p.BulkBreaks[0].MaxQuantity == nil || *p.BulkBreaks[0].MaxQuantity != 71 {
		t.Errorf("BulkBreaks = %+v", p.BulkBreaks)
	}
	if p.Colors[0].Stock != 0 {
		t.Errorf("negative color stock should clamp to 0, got %d", p.Colors[0].Stock)
	}
	if p.Colors[1].Hex != core.DefaultColorHex {
		t.Errorf("unknown color hex = %q, want %q", p.Colors[1].Hex, core.DefaultColorHex)
	}
	if p.InStock {
		t.Error("InStock should be false with no stock")
	}

	for _, want := range []string{`size "Tall LT"`, `color "Electric Plum"`, "weight"} {
		if !hasWarning(res, want) {
			t.Errorf("missing warning containing %s in %v", want, res.Warnings)
		}
	}
}

func TestNormalize_Failures(t *testing.T) {
	svc := fixedService()
	ctx := context.Background()

	t.Run("unknown supplier", func(t *testing.T) {
		res := svc.Normalize(ctx, "acme", asColourRecord())
		if res.Product != nil || len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "no mapping registered") {
			t.Errorf("Normalize() = %+v", res)
		}
	})

	t.Run("empty record", func(t *testing.T) {
		if res := svc.Normalize(ctx, "ascolour", nil); res.OK() {
			t.Error("empty record should fail")
		}
	})

	t.Run("missing pricing is fatal", func(t *testing.T) {
		raw := asColourRecord()
		delete(raw, "pricing")
		res := svc.Normalize(ctx, "ascolour", raw)
		if res.Product != nil {
			t.Fatal("product should be nil on validation failure")
		}
		if !strings.Contains(strings.Join(res.Errors, ";"), "bulkBreaks") {
			t.Errorf("Errors = %v, want pricing failure", res.Errors)
		}
	})
}

// ----------------------------------------------------------------------------
// Batch Tests
// ----------------------------------------------------------------------------

func TestNormalizeBatch(t *testing.T) {
	bad := asColourRecord()
	delete(bad, "sizes")
	warned := asColourRecord()
	warned["productType"] = "Blankets"

	batch := fixedService().NormalizeBatch(context.Background(), "ascolour", []map[string]any{asColourRecord(), bad, warned})

	want := Summary{Total: 3, Successful: 2, Failed: 1, Warnings: 1}
	if batch.Summary != want {
		t.Errorf("Summary = %+v, want %+v", batch.Summary, want)
	}
	if len(batch.Products()) != 2 {
		t.Errorf("Products() = %d, want 2", len(batch.Products()))
	}
	if batch.Results[1].Product != nil {
		t.Error("failed record should have no product")
	}

	report := batch.Report()
	for _, want := range []string{"ascolour", "Total:      3", "Failed:     1", "Record 2:", `category "Blankets"`} {
		if !strings.Contains(report, want) {
			t.Errorf("Report() missing %q:\n%s", want, report)
		}
	}
}

func TestNormalizeBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := fixedService().NormalizeBatch(ctx, "ascolour", []map[string]any{asColourRecord(), asColourRecord()})
	if batch.Summary.Failed != 2 || batch.Summary.Successful != 0 {
		t.Errorf("Summary = %+v, want all failed", batch.Summary)
	}
}
