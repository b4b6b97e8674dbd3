package order

import (
	"context"
	"time"

	"shopora/internal/domain"
)

// CreateInput carries an already-priced order. Unit prices and the total
// come from the pricing engine, never from the client.
type CreateInput struct {
	UserID     string
	Items      []domain.OrderItem
	TotalCents int64
	Currency   string
	Shipping   domain.ShippingAddress
}

// ListAllFilter narrows the admin order listing.
type ListAllFilter struct {
	PaymentStatus string
	EmailSearch   string
	StartDate     *time.Time
	EndDate       *time.Time
	Delivery      string
	Page          int
	Limit         int
	Sort          string // "dateAsc", "dateDesc", "priceAsc", "priceDesc"
}

// Repository persists orders. All status mutations are guarded by an
// optimistic version check: a stale version yields domain.ErrConflict.
type Repository interface {
	Create(ctx context.Context, in CreateInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, f ListAllFilter) ([]domain.Order, int, error)
	SetPaymentIntent(ctx context.Context, id string, version int64, paypalID, status string) error
	MarkPaid(ctx context.Context, id string, version int64, res domain.PaymentResult, paidAt time.Time) error
	SetPaymentStatus(ctx context.Context, id string, version int64, status string, isPaid bool) error
	SetDelivery(ctx context.Context, id string, version int64, status string) error
}
