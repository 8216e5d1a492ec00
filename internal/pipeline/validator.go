package pipeline

// validator.go checks a normalized product against the required-field
// contract before it leaves the pipeline.
//
// Every failure is collected so a batch report can show all problems for
// a record at once. Pricing tiers are additionally checked for positive
// prices and well-formed, non-overlapping ranges.

import (
	"errors"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/normalize"
)

// ValidationResult contains the result of validating a product.
type ValidationResult struct {
	Valid  bool                   // True if all validations passed
	Errors []core.ValidationError // List of validation errors (empty if Valid)
}

// Err returns the failures as a core.ValidationErrors, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return core.ValidationErrors(r.Errors)
}

// Validate checks p against the required-field contract.
func Validate(p *core.NormalizedProduct) ValidationResult {
	result := ValidationResult{Valid: true}
	if p == nil {
		return ValidationResult{Errors: []core.ValidationError{{Message: "product is missing"}}}
	}

	fail := func(field, value, msg string) {
		result.Valid = false
		result.Errors = append(result.Errors, core.ValidationError{Field: field, Value: value, Message: msg})
	}

	required := []struct {
		field string
		value string
	}{
		{"brand", p.Brand},
		{"name", p.Name},
		{"category", p.Category},
		{"sku", p.SKU},
		{"supplierSku", p.SupplierSKU},
		{"supplierId", p.SupplierID},
	}
	for _, r := range required {
		if r.value == "" {
			fail(r.field, "", "required field is empty")
		}
	}

	if p.SKU != "" && !normalize.IsValidSKU(p.SKU) {
		fail("sku", p.SKU, "sku does not match BRAND-STYLE-COLOR-SIZE format")
	}
	if len(p.Sizes) == 0 {
		fail("size", "", "at least one size is required")
	}
	if len(p.Colors) == 0 {
		fail("color", "", "at least one color is required")
	}
	if len(p.BulkBreaks) == 0 {
		fail("bulkBreaks", "", "at least one pricing tier is required")
	} else if err := normalize.ValidatePricingTiers(p.BulkBreaks); err != nil {
		var ves core.ValidationErrors
		if errors.As(err, &ves) {
			result.Valid = false
			result.Errors = append(result.Errors, ves...)
		}
	}

	return result
}
