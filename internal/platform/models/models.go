package models

type Item struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type Variant struct {
	ID         int64  `json:"id"`
	ItemID     int64  `json:"item_id"`
	Size       string `json:"size"`
	Active     bool   `json:"active"`
	Stock      int    `json:"stock"`
	PriceCents int64  `json:"price_cents"`
	PriceID    string `json:"price_id"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`

	Item *Item `json:"item,omitempty"`
}

// VariantSnapshot is the slice of a variant that gets frozen into an order
// item at purchase time. Later catalog edits never touch persisted snapshots.
type VariantSnapshot struct {
	ItemID     int64  `json:"item_id"`
	Size       string `json:"size"`
	PriceCents int64  `json:"price_cents"`
}

type Order struct {
	ID              string  `json:"id"`
	SessionID       string  `json:"session_id"`
	PaymentIntentID *string `json:"payment_intent_id,omitempty"`
	CustomerEmail   *string `json:"customer_email,omitempty"`
	CustomerName    *string `json:"customer_name,omitempty"`
	CustomerPhone   *string `json:"customer_phone,omitempty"`
	TotalCents      *int64  `json:"total_cents,omitempty"`
	Currency        *string `json:"currency,omitempty"`
	CreatedAt       int64   `json:"created_at"`

	Items []*OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID       int64  `json:"id"`
	OrderID  string `json:"order_id"`
	PriceID  string `json:"price_id"`
	Quantity int    `json:"quantity"`

	// Snapshot columns; nil when the catalog row was gone at purchase time.
	ItemID     *int64  `json:"item_id,omitempty"`
	Size       *string `json:"size,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

type ProcessedEvent struct {
	ID         string `json:"id"`
	ReceivedAt int64  `json:"received_at"`
}
