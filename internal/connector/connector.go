// Package connector is the seam between the sync engine and each
// supplier's transport. A Connector hands back already normalized
// products; how they were fetched is its own business.
package connector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/invsync/internal/core"
)

// Connector is implemented by every supplier adapter.
type Connector interface {
	// SupplierID returns the supplier this connector serves.
	SupplierID() string

	// FetchProducts returns the supplier's full catalog.
	FetchProducts(ctx context.Context) ([]core.NormalizedProduct, error)

	// FetchProduct returns one product by the supplier's product id. A
	// missing product is reported either as a *core.NotFoundError or as a
	// nil product with a nil error.
	FetchProduct(ctx context.Context, id string) (*core.NormalizedProduct, error)

	// TestConnection reports whether the supplier is reachable.
	TestConnection(ctx context.Context) bool
}

// Registry holds one connector per supplier id.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry creates a registry holding the given connectors.
func NewRegistry(conns ...Connector) *Registry {
	r := &Registry{connectors: make(map[string]Connector)}
	for _, c := range conns {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the connector for c.SupplierID().
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[normalizeID(c.SupplierID())] = c
}

// Get returns the connector for supplierID.
func (r *Registry) Get(supplierID string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[normalizeID(supplierID)]
	return c, ok
}

// MustGet is Get returning a *core.NotFoundError for unknown suppliers.
func (r *Registry) MustGet(supplierID string) (Connector, error) {
	c, ok := r.Get(supplierID)
	if !ok {
		return nil, &core.NotFoundError{Resource: "connector", ID: supplierID}
	}
	return c, nil
}

// SupplierIDs returns the registered supplier ids, sorted.
func (r *Registry) SupplierIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.connectors))
	for id := range r.connectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Health tests every connector and returns supplier id to reachability.
func (r *Registry) Health(ctx context.Context) map[string]bool {
	out := make(map[string]bool)
	for _, id := range r.SupplierIDs() {
		c, _ := r.Get(id)
		out[id] = c.TestConnection(ctx)
	}
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Static serves a fixed product list. It backs suppliers delivered as
// file drops and is the connector used in tests.
type Static struct {
	supplierID string

	mu       sync.RWMutex
	products map[string]core.NormalizedProduct
	order    []string
}

// NewStatic creates a connector serving products keyed by StyleID.
func NewStatic(supplierID string, products ...core.NormalizedProduct) *Static {
	s := &Static{supplierID: normalizeID(supplierID), products: make(map[string]core.NormalizedProduct)}
	s.Replace(products)
	return s
}

// Replace swaps the served catalog.
func (s *Static) Replace(products []core.NormalizedProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = make(map[string]core.NormalizedProduct, len(products))
	s.order = s.order[:0]
	for _, p := range products {
		id := strings.ToUpper(p.StyleID)
		if _, exists := s.products[id]; !exists {
			s.order = append(s.order, id)
		}
		s.products[id] = p
	}
}

// Put adds or replaces one product.
func (s *Static) Put(p core.NormalizedProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.ToUpper(p.StyleID)
	if _, exists := s.products[id]; !exists {
		s.order = append(s.order, id)
	}
	s.products[id] = p
}

func (s *Static) SupplierID() string { return s.supplierID }

func (s *Static) FetchProducts(ctx context.Context) ([]core.NormalizedProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.NormalizedProduct, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out, nil
}

func (s *Static) FetchProduct(ctx context.Context, id string) (*core.NormalizedProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return nil, &core.NotFoundError{Resource: "product", ID: fmt.Sprintf("%s/%s", s.supplierID, id)}
	}
	return &p, nil
}

func (s *Static) TestConnection(ctx context.Context) bool {
	return ctx.Err() == nil
}
