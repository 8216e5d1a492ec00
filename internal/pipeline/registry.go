// Package pipeline turns raw supplier records into validated
// core.NormalizedProduct values.
//
// Each supplier's field layout is described by a Mapping held in an
// explicit Registry keyed by supplier id. Records are never sniffed for
// shape: a supplier without a registered mapping is rejected.
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Mapping lists, per canonical field, the raw paths to try in order.
// Paths are dotted ("pricing.wholesale"); the first non-empty value wins.
type Mapping struct {
	SupplierID string
	Name       string

	StyleID     []string
	SupplierSKU []string
	ProductName []string
	Brand       []string
	Category    []string
	Description []string
	Material    []string
	Weight      []string
	Pricing     []string
	Stock       []string
	LeadTime    []string

	// DefaultBrand is used when the record carries no brand, e.g. a
	// single-brand supplier.
	DefaultBrand string

	// Colors is the list path; entries are strings or objects read through
	// ColorName, ColorStock, ColorPrice and ColorSKU.
	Colors     string
	ColorName  []string
	ColorStock []string
	ColorPrice []string
	ColorSKU   []string

	Sizes    string
	SizeName []string

	Images   string
	ImageURL []string

	Tags string
}

// Registry holds supplier mappings.
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]Mapping
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{mappings: make(map[string]Mapping)}
}

// DefaultRegistry returns a registry with the built-in supplier mappings.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range builtinMappings {
		r.Register(m)
	}
	return r
}

// Register adds a mapping.
// Panics if a mapping for the same supplier is already registered.
func (r *Registry) Register(m Mapping) {
	id := normalizeID(m.SupplierID)
	if id == "" {
		panic("mapping has no supplier id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mappings[id]; exists {
		panic(fmt.Sprintf("mapping already registered: %s", id))
	}
	m.SupplierID = id
	r.mappings[id] = m
}

// Get returns the mapping for supplierID.
// Returns false if not found.
func (r *Registry) Get(supplierID string) (Mapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mappings[normalizeID(supplierID)]
	return m, ok
}

// SupplierIDs returns the registered supplier ids, sorted.
func (r *Registry) SupplierIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.mappings))
	for id := range r.mappings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
