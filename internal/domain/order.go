package domain

import "time"

type OrderItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

// Order is synthesized when the payment stage validates. It is ephemeral:
// it lives on the checkout session for the confirmation view and is emitted
// as an event, but no durable order record exists.
type Order struct {
	ID          string      `json:"id"`
	Number      string      `json:"number"`
	SessionID   string      `json:"session_id"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	Currency    string      `json:"currency"`
	PlacedAt    time.Time   `json:"placed_at"`
}
