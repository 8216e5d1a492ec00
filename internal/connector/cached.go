package connector

import (
	"context"
	"strings"

	"github.com/JonMunkholm/invsync/internal/cache"
	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/normalize"
)

// Cached puts the shared cache in front of a connector's read paths. It is
// meant for browsing and quoting; sync runs use the bare connector so they
// always see live supplier state.
type Cached struct {
	Connector
	cache *cache.Service
}

// WithCache wraps c with the shared cache service.
func WithCache(c Connector, svc *cache.Service) *Cached {
	return &Cached{Connector: c, cache: svc}
}

// ListKey is the cache key for a supplier's product list.
func ListKey(supplierID string) string {
	return "products:list:" + normalizeID(supplierID)
}

// ProductKey is the cache key for one product's details.
func ProductKey(supplierID, id string) string {
	return "products:detail:" + normalizeID(supplierID) + ":" + strings.ToUpper(strings.TrimSpace(id))
}

// PriceKey is the cache key for one product's pricing tiers.
func PriceKey(supplierID, id string) string {
	return "prices:" + normalizeID(supplierID) + ":" + strings.ToUpper(strings.TrimSpace(id))
}

func (c *Cached) FetchProducts(ctx context.Context) ([]core.NormalizedProduct, error) {
	return cache.GetOrLoad(ctx, c.cache, ListKey(c.SupplierID()), cache.ProductLists, c.Connector.FetchProducts)
}

func (c *Cached) FetchProduct(ctx context.Context, id string) (*core.NormalizedProduct, error) {
	return cache.GetOrLoad(ctx, c.cache, ProductKey(c.SupplierID(), id), cache.ProductDetails,
		func(ctx context.Context) (*core.NormalizedProduct, error) {
			p, err := c.Connector.FetchProduct(ctx, id)
			if err == nil && p == nil {
				return nil, &core.NotFoundError{Resource: "product", ID: id}
			}
			return p, err
		})
}

// PricingTiers returns a product's quantity breaks, cached under the
// prices class.
func (c *Cached) PricingTiers(ctx context.Context, id string) ([]core.PricingTier, error) {
	return cache.GetOrLoad(ctx, c.cache, PriceKey(c.SupplierID(), id), cache.Prices,
		func(ctx context.Context) ([]core.PricingTier, error) {
			p, err := c.FetchProduct(ctx, id)
			if err != nil {
				return nil, err
			}
			return p.BulkBreaks, nil
		})
}

// Quote is the unit and extended price for a quantity.
type Quote struct {
	SupplierID string             `json:"supplierId"`
	ProductID  string             `json:"productId"`
	Quantity   int                `json:"quantity"`
	UnitPrice  float64            `json:"unitPrice"`
	Total      float64            `json:"total"`
	Tiers      []core.PricingTier `json:"tiers"`
}

// Quote prices qty units of a product from its cached tiers.
func (c *Cached) Quote(ctx context.Context, id string, qty int) (*Quote, error) {
	if qty < 1 {
		return nil, core.ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}
	tiers, err := c.PricingTiers(ctx, id)
	if err != nil {
		return nil, err
	}
	unit := normalize.PriceForQuantity(tiers, qty)
	return &Quote{
		SupplierID: c.SupplierID(),
		ProductID:  id,
		Quantity:   qty,
		UnitPrice:  unit,
		Total:      normalize.RoundCents(unit * float64(qty)),
		Tiers:      tiers,
	}, nil
}

// Invalidate drops every cached entry for the supplier.
func (c *Cached) Invalidate(ctx context.Context) {
	id := normalizeID(c.SupplierID())
	c.cache.Delete(ctx, ListKey(id))
	c.cache.DeletePattern(ctx, "products:detail:"+id+":*")
	c.cache.DeletePattern(ctx, "prices:"+id+":*")
}
