package domain

import "github.com/shopspring/decimal"

// ProductSnapshot is a product's identity, name and price as observed in
// the catalog at one point in time. It lives for a single workflow
// invocation and is never persisted.
type ProductSnapshot struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// RequestedItem is one client-submitted (productId, quantity) pair. Prices
// never come from the client; they are resolved against catalog snapshots.
type RequestedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
