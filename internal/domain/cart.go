package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a single cart line. ProductID is a weak reference into the
// product collection; consumers must tolerate it no longer resolving.
type CartItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// Cart is the session cart: an ordered sequence of lines, unique by product
type Cart struct {
	Items []CartItem `json:"items"`
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Find returns the index of the line for productID, or -1
func (c *Cart) Find(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// ProductDetail is a denormalized line captured into an abandoned cart
// snapshot so the record stays readable after the product changes or
// disappears.
type ProductDetail struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
	Image string    `json:"image"`
}

// AbandonedCart is an immutable point-in-time snapshot of an inactive
// non-empty cart. Only IsRecovered may change after creation, and only
// from false to true.
type AbandonedCart struct {
	ID             uuid.UUID       `json:"id"`
	Items          []CartItem      `json:"items"`
	Timestamp      time.Time       `json:"timestamp"`
	Total          float64         `json:"total"`
	ProductDetails []ProductDetail `json:"productDetails"`
	IsRecovered    bool            `json:"isRecovered"`
}
