package pricing

import (
	"context"
	"errors"
	"math"

	"shopora/internal/domain"
	"shopora/internal/logger"
	productrepo "shopora/internal/repository/product"
)

// Engine prices order line items against the current catalog. Resolved
// prices are snapshots: once stored on an order they are never re-derived.
type Engine struct {
	products productRepo
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(products productrepo.Repository) *Engine {
	return &Engine{products: products}
}

// ItemRequest is a client-submitted line item before pricing.
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// ResolveUnitPrice returns the product's current unit price in cents, net
// of any active discount, rounded to the cent.
func (e *Engine) ResolveUnitPrice(ctx context.Context, productID string) (int64, error) {
	p, err := e.products.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	if p.DiscountPercent <= 0 {
		return p.PriceCents, nil
	}
	discounted := float64(p.PriceCents) * (100 - p.DiscountPercent) / 100
	return int64(math.Round(discounted)), nil
}

// PriceItems resolves every requested line item and accumulates the order
// total. Each item's price is rounded for storage first; the total is the
// sum of the rounded per-item totals, which keeps stored totals and stored
// items numerically consistent.
//
// Items whose product no longer resolves are skipped rather than failing
// the whole order.
func (e *Engine) PriceItems(ctx context.Context, reqs []ItemRequest) ([]domain.OrderItem, int64, error) {
	items := make([]domain.OrderItem, 0, len(reqs))
	var total int64
	for _, req := range reqs {
		unit, err := e.ResolveUnitPrice(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("pricing: skipping unresolvable product", "product_id", req.ProductID)
				continue
			}
			return nil, 0, err
		}
		items = append(items, domain.OrderItem{
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			UnitPriceCents: unit,
			Size:           req.Size,
			Color:          req.Color,
		})
		total += unit * int64(req.Quantity)
	}
	return items, total, nil
}
