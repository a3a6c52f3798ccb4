package domain

import "time"

// CartItem is a product snapshot plus a quantity. The snapshot is taken at
// the time the product is added, so later catalog changes do not rewrite
// carts that already hold the item.
type CartItem struct {
	Product
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

// Cart holds the authoritative line items for one session. TotalItems and
// TotalPrice are derived from Items and must never be set independently;
// RecomputeTotals runs after every mutation.
type Cart struct {
	SessionID  string     `json:"session_id"`
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RecomputeTotals rebuilds the aggregates from scratch. O(n) over the items,
// which stays cheap at expected cart sizes.
func (c *Cart) RecomputeTotals() {
	items := 0
	var price float64
	for _, it := range c.Items {
		items += it.Quantity
		price += it.Price * float64(it.Quantity)
	}
	c.TotalItems = items
	c.TotalPrice = price
}
