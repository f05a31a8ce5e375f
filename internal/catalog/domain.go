package catalog

import (
	"errors"
	"time"
)

// ProductStatus enumerates catalog product statuses.
type ProductStatus string

const (
	ProductStatusDraft      ProductStatus = "draft"
	ProductStatusActive     ProductStatus = "active"
	ProductStatusArchived   ProductStatus = "archived"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

// ErrProductNotFound indicates a referenced product does not exist.
var ErrProductNotFound = errors.New("product not found")

// Product is the catalog record billing snapshots from. Name and HSN code are
// copied onto bill line items at creation time and do not follow later edits.
type Product struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	HSNCode        *string       `json:"hsn_code,omitempty"`
	Price          float64       `json:"price"`
	CompareAtPrice *float64      `json:"compare_at_price,omitempty"`
	Quantity       float64       `json:"quantity"`
	Status         ProductStatus `json:"status"`
	OrgID          int64         `json:"org_id"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// StockDirection describes the polarity of a stock adjustment.
type StockDirection string

const (
	StockAdd      StockDirection = "add"
	StockSubtract StockDirection = "subtract"
)
