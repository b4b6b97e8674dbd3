package domain

import "time"

// Product is the read-only catalog surface the order flow needs: current
// base price plus any active discount. Catalog management lives elsewhere.
type Product struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description,omitempty"`
	PriceCents      int64                  `json:"priceCents"`
	Currency        string                 `json:"currency"`
	DiscountPercent float64                `json:"discountPercent"`
	Attributes      map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}
