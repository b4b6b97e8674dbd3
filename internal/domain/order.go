package domain

import "time"

// Delivery statuses an order moves through after payment.
const (
	DeliveryProcessing = "processing"
	DeliveryShipped    = "shipped"
	DeliveryInTransit  = "in_transit"
	DeliveryDelivered  = "delivered"
	DeliveryCancelled  = "cancelled"
)

// Payment statuses mirrored from the settlement provider.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Order is the central entity: a priced snapshot of cart contents plus
// payment and delivery state. Line-item prices are copied at creation time
// and never re-read from the catalog.
type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Items      []OrderItem     `json:"orderItems"`
	TotalCents int64           `json:"totalCents"`
	Currency   string          `json:"currency"`
	Shipping   ShippingAddress `json:"shippingAddress"`
	IsPaid     bool            `json:"isPaid"`
	PaidAt     *time.Time      `json:"paidAt,omitempty"`
	PayPalID   string          `json:"paypalId,omitempty"`
	Payment    PaymentResult   `json:"paymentResult"`
	Delivery   string          `json:"delivery"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// OrderItem is one product/variant/quantity entry. UnitPriceCents is a
// snapshot computed by the pricing engine at save time.
type OrderItem struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	ProductID      string    `json:"productId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Size           string    `json:"size,omitempty"`
	Color          string    `json:"color,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ShippingAddress is frozen at order creation; it never tracks the
// customer's live address.
type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentResult holds the last-known provider-side payment state. The
// provider remains the source of truth for whether funds actually moved.
type PaymentResult struct {
	Status        string `json:"status,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Email         string `json:"email,omitempty"`
}

// ValidDeliveryStatus reports whether s is a known delivery status.
func ValidDeliveryStatus(s string) bool {
	switch s {
	case DeliveryProcessing, DeliveryShipped, DeliveryInTransit, DeliveryDelivered, DeliveryCancelled:
		return true
	}
	return false
}

// DeliveryTerminal reports whether no transitions out of s are defined.
func DeliveryTerminal(s string) bool {
	return s == DeliveryDelivered || s == DeliveryCancelled
}

// ItemSumCents recomputes the order total from the stored line-item
// snapshots. Used to cross-check the persisted total before settlement.
func (o *Order) ItemSumCents() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += item.UnitPriceCents * int64(item.Quantity)
	}
	return sum
}
