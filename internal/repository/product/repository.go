package product

import (
	"context"

	"shopora/internal/domain"
)

// Repository is the read-only catalog lookup used by the pricing engine.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}
