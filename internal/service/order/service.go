package order

import (
	"context"
	"fmt"
	"time"

	"shopora/internal/domain"
	"shopora/internal/events"
	"shopora/internal/logger"
	"shopora/internal/paypal"
	"shopora/internal/pricing"
	orderrepo "shopora/internal/repository/order"
	notificationsvc "shopora/internal/service/notification"
)

// Service owns the order lifecycle: creation with server-side pricing,
// settlement against the payment provider, and payment/delivery status
// transitions with their notification side effects.
type Service struct {
	repo     orderRepo
	pricer   pricer
	gateway  gateway
	notifier notifier
	events   *events.Publisher
	currency string
}

type orderRepo interface {
	Create(ctx context.Context, in orderrepo.CreateInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, f orderrepo.ListAllFilter) ([]domain.Order, int, error)
	SetPaymentIntent(ctx context.Context, id string, version int64, paypalID, status string) error
	MarkPaid(ctx context.Context, id string, version int64, res domain.PaymentResult, paidAt time.Time) error
	SetPaymentStatus(ctx context.Context, id string, version int64, status string, isPaid bool) error
	SetDelivery(ctx context.Context, id string, version int64, status string) error
}

type pricer interface {
	PriceItems(ctx context.Context, reqs []pricing.ItemRequest) ([]domain.OrderItem, int64, error)
}

type gateway interface {
	CreateOrder(ctx context.Context, totalCents int64, currency string) (*paypal.Intent, error)
	CaptureOrder(ctx context.Context, intentID string) (*paypal.Capture, error)
}

type notifier interface {
	Emit(ctx context.Context, userID *string, title, message, kind string) (*domain.Notification, error)
}

func New(repo orderrepo.Repository, pricer *pricing.Engine, gw *paypal.Client, notifier *notificationsvc.Service, pub *events.Publisher) *Service {
	return &Service{
		repo:     repo,
		pricer:   pricer,
		gateway:  gw,
		notifier: notifier,
		events:   pub,
		currency: "USD",
	}
}

// CreateInput carries client-submitted cart contents. The client total is
// advisory only; the pricing engine recomputes every unit price and the
// order total server-side.
type CreateInput struct {
	Items      []pricing.ItemRequest  `json:"orderItems"`
	TotalCents int64                  `json:"totalCents"`
	Shipping   domain.ShippingAddress `json:"shippingAddress"`
}

// Create prices the submitted items and persists the order with payment
// pending and delivery processing.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order items required", domain.ErrValidation)
	}
	for _, item := range in.Items {
		if item.ProductID == "" {
			return nil, fmt.Errorf("%w: product id required", domain.ErrValidation)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
		}
	}
	if err := validShipping(in.Shipping); err != nil {
		return nil, err
	}

	items, total, err := s.pricer.PriceItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no order items could be priced", domain.ErrValidation)
	}

	order, err := s.repo.Create(ctx, orderrepo.CreateInput{
		UserID:     userID,
		Items:      items,
		TotalCents: total,
		Currency:   s.currency,
		Shipping:   in.Shipping,
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(order, "created")
	return order, nil
}

// CreateIntent creates the provider-side payment intent for an existing
// order after cross-checking the stored total against the line-item sum.
func (s *Service) CreateIntent(ctx context.Context, orderID, userID string, admin bool) (string, *domain.Order, error) {
	order, err := s.ownedOrder(ctx, orderID, userID, admin)
	if err != nil {
		return "", nil, err
	}

	// Defense against stale client-held totals: the stored total must
	// match the stored line-item snapshots to the cent.
	if order.ItemSumCents() != order.TotalCents {
		return "", nil, domain.ErrPriceMismatch
	}

	intent, err := s.gateway.CreateOrder(ctx, order.TotalCents, order.Currency)
	if err != nil {
		return "", nil, err
	}

	if err := s.repo.SetPaymentIntent(ctx, order.ID, order.Version, intent.ID, domain.PaymentPending); err != nil {
		return "", nil, err
	}

	updated, err := s.repo.GetByID(ctx, order.ID)
	if err != nil {
		return "", nil, err
	}
	s.publishEvent(updated, "payment_pending")
	return intent.ID, updated, nil
}

// CaptureIntent captures an approved payment intent and marks the order
// paid. Any gateway failure, including a missing capture record on a 2xx
// response, leaves the order unchanged.
func (s *Service) CaptureIntent(ctx context.Context, orderID, userID string, admin bool, intentID string) (*domain.Order, error) {
	order, err := s.ownedOrder(ctx, orderID, userID, admin)
	if err != nil {
		return nil, err
	}

	if intentID == "" {
		intentID = order.PayPalID
	}
	if intentID == "" {
		return nil, fmt.Errorf("%w: payment intent id required", domain.ErrValidation)
	}

	capture, err := s.gateway.CaptureOrder(ctx, intentID)
	if err != nil {
		return nil, err
	}

	result := domain.PaymentResult{
		Status:        domain.PaymentPaid,
		TransactionID: capture.TransactionID,
		Email:         capture.PayerEmail,
	}
	if err := s.repo.MarkPaid(ctx, order.ID, order.Version, result, time.Now().UTC()); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, &updated.UserID, "Payment Successful",
		fmt.Sprintf("Your payment for order #%s has been processed successfully.", updated.ID))
	s.publishEvent(updated, "paid")
	return updated, nil
}

// MarkPaymentStatus is the operator override for the provider-mirrored
// payment status. Marking an order "pending" also flips isPaid, matching
// long-standing behavior the admin dashboard depends on.
func (s *Service) MarkPaymentStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if status == "" {
		return nil, fmt.Errorf("%w: payment status required", domain.ErrValidation)
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	isPaid := order.IsPaid
	if status == domain.PaymentPending || status == domain.PaymentPaid {
		isPaid = true
	}

	if err := s.repo.SetPaymentStatus(ctx, order.ID, order.Version, status, isPaid); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, &updated.UserID, "Payment Status Updated",
		fmt.Sprintf("Your order #%s payment status is now: %s.", updated.ID, status))
	s.publishEvent(updated, "payment_status")
	return updated, nil
}

// AdvanceDelivery moves the order's delivery status. Repeating the current
// status is a no-op and emits nothing. Terminal states reject further
// transitions, and an unpaid order cannot advance past processing except
// to cancelled.
func (s *Service) AdvanceDelivery(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.ValidDeliveryStatus(status) {
		return nil, fmt.Errorf("%w: unknown delivery status %q", domain.ErrValidation, status)
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if status == order.Delivery {
		return order, nil
	}
	if domain.DeliveryTerminal(order.Delivery) {
		return nil, fmt.Errorf("%w: order delivery is already %s", domain.ErrValidation, order.Delivery)
	}
	if !order.IsPaid && status != domain.DeliveryProcessing && status != domain.DeliveryCancelled {
		return nil, fmt.Errorf("%w: order must be paid before delivery can advance", domain.ErrValidation)
	}

	if err := s.repo.SetDelivery(ctx, order.ID, order.Version, status); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, &updated.UserID, "Delivery Status Updated",
		fmt.Sprintf("Your order #%s delivery status is now: %s.", updated.ID, status))
	s.publishEvent(updated, "delivery_status")
	return updated, nil
}

// Get returns an order visible to the caller: its owner, or any admin.
func (s *Service) Get(ctx context.Context, orderID, userID string, admin bool) (*domain.Order, error) {
	return s.ownedOrder(ctx, orderID, userID, admin)
}

// ListForUser returns the caller's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListAll is the admin listing with filters, pagination and sorting.
func (s *Service) ListAll(ctx context.Context, f orderrepo.ListAllFilter) ([]domain.Order, int, error) {
	if f.Delivery != "" && !domain.ValidDeliveryStatus(f.Delivery) {
		return nil, 0, fmt.Errorf("%w: unknown delivery status %q", domain.ErrValidation, f.Delivery)
	}
	return s.repo.ListAll(ctx, f)
}

func (s *Service) ownedOrder(ctx context.Context, orderID, userID string, admin bool) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && order.UserID != userID {
		// Hide other users' orders rather than acknowledging them.
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// emit sends a lifecycle notification to the order owner. Emission failure
// never fails the order operation that triggered it.
func (s *Service) emit(ctx context.Context, userID *string, title, message string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Emit(ctx, userID, title, message, domain.KindOrder); err != nil {
		logger.Error("order: notification emit failed", "title", title, "err", err)
	}
}

func (s *Service) publishEvent(order *domain.Order, kind string) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(events.OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Type:          kind,
		PaymentStatus: order.Payment.Status,
		Delivery:      order.Delivery,
		TotalCents:    order.TotalCents,
	})
	if err != nil {
		logger.Warn("order: event publish failed", "order_id", order.ID, "type", kind, "err", err)
	}
}

func validShipping(a domain.ShippingAddress) error {
	if a.Street == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
		return fmt.Errorf("%w: complete shipping address required", domain.ErrValidation)
	}
	return nil
}
