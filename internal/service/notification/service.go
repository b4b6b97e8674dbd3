package notification

import (
	"context"
	"fmt"

	"shopora/internal/domain"
	"shopora/internal/logger"
	"shopora/internal/notify"
	notificationrepo "shopora/internal/repository/notification"

	"github.com/google/uuid"
)

// listLimit caps the merged per-user/global read query.
const listLimit = 50

// Service is the notification dispatcher: it persists each event, then
// attempts live delivery. Live delivery is best effort; the persisted row
// is the durable fallback.
type Service struct {
	repo repo
	hub  *notify.Hub
}

type repo interface {
	Create(ctx context.Context, in notificationrepo.CreateInput) (*domain.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) (*domain.Notification, error)
	Delete(ctx context.Context, id string) error
}

func New(repo notificationrepo.Repository, hub *notify.Hub) *Service {
	return &Service{repo: repo, hub: hub}
}

// Emit persists a notification and pushes it to the recipient's live
// connections, or to everyone when userID is nil.
func (s *Service) Emit(ctx context.Context, userID *string, title, message, kind string) (*domain.Notification, error) {
	if title == "" || message == "" {
		return nil, fmt.Errorf("%w: title and message are required", domain.ErrValidation)
	}
	if kind == "" {
		kind = domain.KindSystem
	}
	scope := domain.ScopeSingle
	if userID == nil {
		scope = domain.ScopeGlobal
	}

	n, err := s.repo.Create(ctx, notificationrepo.CreateInput{
		UserID:  userID,
		Title:   title,
		Message: message,
		Kind:    kind,
		Scope:   scope,
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Publish(*n)
	}
	logger.Info("notification emitted", "id", n.ID, "scope", n.Scope, "kind", n.Kind)
	return n, nil
}

// ListForUser returns the user's notifications merged with global ones,
// newest first, capped at 50.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	if err := validID(userID); err != nil {
		return nil, err
	}
	return s.repo.ListForUser(ctx, userID, listLimit)
}

func (s *Service) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid id %q", domain.ErrValidation, id)
	}
	return nil
}
