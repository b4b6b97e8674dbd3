package notification

import (
	"context"

	"shopora/internal/domain"
)

// CreateInput describes a notification to persist. A nil UserID makes the
// record global.
type CreateInput struct {
	UserID  *string
	Title   string
	Message string
	Kind    string
	Scope   string
}

// Repository persists notification records. Persisted rows are the durable
// fallback when live delivery misses a disconnected client.
type Repository interface {
	Create(ctx context.Context, in CreateInput) (*domain.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) (*domain.Notification, error)
	Delete(ctx context.Context, id string) error
}
