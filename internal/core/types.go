package core

import (
	"time"
)

// SizeUnknown marks a size that could not be read at all.
const SizeUnknown = "Unknown"

// DefaultColorHex is the sentinel hex for colors missing from the palette.
const DefaultColorHex = "#808080"

// PricingTier is one quantity break in a supplier price list.
// MaxQuantity is nil for the open-ended final tier.
type PricingTier struct {
	MinQuantity int     `json:"minQuantity"`
	MaxQuantity *int    `json:"maxQuantity"`
	Price       float64 `json:"price"`
}

// Contains reports whether qty falls inside the tier's range.
func (t PricingTier) Contains(qty int) bool {
	if qty < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || qty <= *t.MaxQuantity
}

// ProductColor is one colorway of a normalized product.
type ProductColor struct {
	Name  string  `json:"name"`
	Hex   string  `json:"hex"`
	SKU   string  `json:"sku,omitempty"`
	Stock int     `json:"stock"`
	Price float64 `json:"price,omitempty"`
}

// NormalizedProduct is the supplier-agnostic product produced by the
// normalization pipeline.
type NormalizedProduct struct {
	SupplierID     string         `json:"supplierId"`
	StyleID        string         `json:"styleId"`
	SKU            string         `json:"sku"`
	SupplierSKU    string         `json:"supplierSku"`
	Name           string         `json:"name"`
	Brand          string         `json:"brand"`
	Category       string         `json:"category"`
	Description    string         `json:"description,omitempty"`
	Sizes          []string       `json:"sizes"`
	Colors         []ProductColor `json:"colors"`
	ImageURLs      []string       `json:"imageUrls"`
	Material       string         `json:"material,omitempty"`
	WeightOz       float64        `json:"weightOz,omitempty"`
	Tags           []string       `json:"tags"`
	BaseCost       float64        `json:"baseCost"`
	BulkBreaks     []PricingTier  `json:"bulkBreaks"`
	TotalInventory int            `json:"totalInventory"`
	InStock        bool           `json:"inStock"`
	LeadTimeDays   *int           `json:"leadTimeDays,omitempty"`
	LastUpdated    time.Time      `json:"lastUpdated"`
}

// Key returns the composite identity of the product at its supplier.
func (p NormalizedProduct) Key() VariantKey {
	sku := p.SKU
	if sku == "" {
		sku = p.SupplierSKU
	}
	return NewVariantKey(p.SupplierID, sku)
}

// SupplierMapping links a variant to one supplier's listing of it.
type SupplierMapping struct {
	SupplierID    string    `json:"supplierId"`
	SupplierSKU   string    `json:"supplierSku"`
	SupplierPrice float64   `json:"supplierPrice"`
	IsPrimary     bool      `json:"isPrimary"`
	LeadTimeDays  int       `json:"leadTimeDays"`
	MOQ           int       `json:"moq"`
	InStock       bool      `json:"inStock"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// InventoryLevel is the persisted stock state of a variant.
type InventoryLevel struct {
	Quantity         int         `json:"quantity"`
	Status           StockStatus `json:"status"`
	LastSync         time.Time   `json:"lastSync"`
	PreviousQuantity *int        `json:"previousQuantity,omitempty"`
}

// ProductVariant is one sellable size/color combination.
type ProductVariant struct {
	ID               string            `json:"id"`
	ProductID        string            `json:"productId"`
	SupplierID       string            `json:"supplierId"`
	SKU              string            `json:"sku"`
	Size             string            `json:"size"`
	Color            string            `json:"color"`
	Price            float64           `json:"price"`
	WholesaleCost    float64           `json:"wholesaleCost"`
	PreviousPrice    *float64          `json:"previousPrice,omitempty"`
	PriceLastChanged *time.Time        `json:"priceLastChanged,omitempty"`
	LeadTimeDays     *int              `json:"leadTimeDays,omitempty"`
	Inventory        InventoryLevel    `json:"inventory"`
	SupplierMappings []SupplierMapping `json:"supplierMappings"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Key returns the variant's composite identity.
func (v ProductVariant) Key() VariantKey {
	return NewVariantKey(v.SupplierID, v.SKU)
}

// ChangeType names the field an InventoryChange describes.
type ChangeType string

const (
	ChangeQuantity ChangeType = "quantity"
	ChangePrice    ChangeType = "price"
	ChangeStatus   ChangeType = "status"
	ChangeLeadTime ChangeType = "leadtime"
)

// ChangeSource identifies the ingestion channel that produced a change.
type ChangeSource string

const (
	SourceSync    ChangeSource = "sync"
	SourceWebhook ChangeSource = "webhook"
)

// InventoryChange records a single field-level difference detected while
// applying supplier data. Values are stored as strings so every change
// type fits one row shape.
type InventoryChange struct {
	ID         string       `json:"id"`
	VariantID  string       `json:"variantId"`
	SKU        string       `json:"sku"`
	SupplierID string       `json:"supplierId"`
	ChangeType ChangeType   `json:"changeType"`
	OldValue   string       `json:"oldValue"`
	NewValue   string       `json:"newValue"`
	Source     ChangeSource `json:"source"`
	DetectedAt time.Time    `json:"detectedAt"`
	Notified   bool         `json:"notified"`
}

// SyncStatus is the lifecycle state of a SyncLog.
type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// SyncLog is the persisted record of one supplier sync run.
type SyncLog struct {
	ID              string        `json:"id"`
	SupplierID      string        `json:"supplierId"`
	Status          SyncStatus    `json:"status"`
	StartedAt       time.Time     `json:"startedAt"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
	VariantsSynced  int           `json:"variantsSynced"`
	ChangesDetected int           `json:"changesDetected"`
	Errors          []string      `json:"errors"`
	Duration        time.Duration `json:"duration"`
}

// Supplier is an entry in the supplier registry.
type Supplier struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Active   bool       `json:"active"`
	FeedURL  string     `json:"feedUrl,omitempty"`
	LastSync *time.Time `json:"lastSync,omitempty"`
}

// ProductMatch is a transient identity decision from the fuzzy matcher.
type ProductMatch struct {
	ID         string            `json:"id"`
	Confidence float64           `json:"confidence"`
	Product    NormalizedProduct `json:"product"`
}

// CatalogVariant is a variant the catalog expects a supplier to carry.
// SupplierSKU is the supplier's own product id used to fetch its state.
type CatalogVariant struct {
	ProductID   string `json:"productId"`
	SupplierID  string `json:"supplierId"`
	SKU         string `json:"sku"`
	SupplierSKU string `json:"supplierSku"`
	Size        string `json:"size"`
	Color       string `json:"color"`
}

// Key returns the variant's composite identity.
func (c CatalogVariant) Key() VariantKey {
	return NewVariantKey(c.SupplierID, c.SKU)
}

// VariantUpdate is the supplier-side state applied to one variant.
// Nil fields were not reported and are left untouched.
type VariantUpdate struct {
	Quantity     *int
	Price        *float64
	LeadTimeDays *int
	Size         string
	Color        string
	ProductID    string
}
