package domain

import "time"

// StockAllocation is one ledger row per (sku, order). At most one row
// exists per pair; the primary key enforces it.
type StockAllocation struct {
	OrderID    string           `json:"orderId"`
	SKU        string           `json:"sku"`
	Units      int              `json:"units"`
	PriceCents int64            `json:"priceCents"`
	UserID     string           `json:"userId"`
	Status     AllocationStatus `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// SkuStockLevel is the running unit count for one sku. Every allocation
// mutation adjusts this row and the allocation row in the same atomic
// operation.
type SkuStockLevel struct {
	SKU       string    `json:"sku"`
	Units     int       `json:"units"`
	UpdatedAt time.Time `json:"updatedAt"`
}
