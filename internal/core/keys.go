package core

import "strings"

// VariantKey identifies a variant at one supplier. It is comparable, so it
// can be used directly as a map key, and it is the single source of cache
// and storage keys for a variant.
type VariantKey struct {
	SupplierID string
	SKU        string
}

// NewVariantKey builds a key with whitespace trimmed and the SKU upper-cased
// so the same variant reported by different channels compares equal.
func NewVariantKey(supplierID, sku string) VariantKey {
	return VariantKey{
		SupplierID: strings.ToLower(strings.TrimSpace(supplierID)),
		SKU:        strings.ToUpper(strings.TrimSpace(sku)),
	}
}

// IsZero reports whether the key has no SKU.
func (k VariantKey) IsZero() bool {
	return k.SKU == ""
}

// String returns "supplier/SKU" for logs.
func (k VariantKey) String() string {
	if k.SupplierID == "" {
		return k.SKU
	}
	return k.SupplierID + "/" + k.SKU
}

// CacheKey returns the cache key for the variant's inventory entry. A key
// without a supplier names the SKU-only lookup, which is cached apart from
// each supplier's own entry.
func (k VariantKey) CacheKey() string {
	if k.SupplierID == "" {
		return "inventory:" + k.SKU
	}
	return "inventory:" + k.SupplierID + ":" + k.SKU
}
