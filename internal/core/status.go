package core

// StockStatus is derived from quantity and never stored independently.
type StockStatus string

const (
	StatusInStock    StockStatus = "in_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusOutOfStock StockStatus = "out_of_stock"
)

// LowStockThreshold is the smallest quantity considered fully in stock.
const LowStockThreshold = 50

// CalculateStatus maps a quantity to its stock status.
// Negative quantities are treated as zero.
func CalculateStatus(quantity int) StockStatus {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity < LowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// ClampQuantity enforces the non-negative quantity invariant.
func ClampQuantity(quantity int) int {
	if quantity < 0 {
		return 0
	}
	return quantity
}
