package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"shopora/internal/domain"
	"shopora/internal/notify"
	"shopora/internal/pricing"
	notificationrepo "shopora/internal/repository/notification"
	orderrepo "shopora/internal/repository/order"
	notificationsvc "shopora/internal/service/notification"
	ordersvc "shopora/internal/service/order"
)

const testSecret = "test-secret"

type memProducts struct {
	products map[string]*domain.Product
}

func (r *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type memOrders struct {
	orders map[string]*domain.Order
}

func (r *memOrders) Create(_ context.Context, in orderrepo.CreateInput) (*domain.Order, error) {
	o := &domain.Order{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		Items:      in.Items,
		TotalCents: in.TotalCents,
		Currency:   in.Currency,
		Shipping:   in.Shipping,
		Payment:    domain.PaymentResult{Status: domain.PaymentPending},
		Delivery:   domain.DeliveryProcessing,
		Version:    1,
		CreatedAt:  time.Now(),
	}
	r.orders[o.ID] = o
	return o, nil
}

func (r *memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrders) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrders) ListAll(_ context.Context, _ orderrepo.ListAllFilter) ([]domain.Order, int, error) {
	var out []domain.Order
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (r *memOrders) SetPaymentIntent(_ context.Context, id string, version int64, paypalID, status string) error {
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Version != version {
		return domain.ErrConflict
	}
	o.PayPalID = paypalID
	o.Payment.Status = status
	o.Version++
	return nil
}

func (r *memOrders) MarkPaid(_ context.Context, id string, version int64, res domain.PaymentResult, paidAt time.Time) error {
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Version != version {
		return domain.ErrConflict
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.Payment = res
	o.Version++
	return nil
}

func (r *memOrders) SetPaymentStatus(_ context.Context, id string, version int64, status string, isPaid bool) error {
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Version != version {
		return domain.ErrConflict
	}
	o.Payment.Status = status
	o.IsPaid = isPaid
	o.Version++
	return nil
}

func (r *memOrders) SetDelivery(_ context.Context, id string, version int64, status string) error {
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Version != version {
		return domain.ErrConflict
	}
	o.Delivery = status
	o.Version++
	return nil
}

type memNotifications struct {
	rows []domain.Notification
}

func (r *memNotifications) Create(_ context.Context, in notificationrepo.CreateInput) (*domain.Notification, error) {
	n := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Title:     in.Title,
		Message:   in.Message,
		Kind:      in.Kind,
		Scope:     in.Scope,
		CreatedAt: time.Now(),
	}
	r.rows = append(r.rows, n)
	return &n, nil
}

func (r *memNotifications) ListForUser(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range r.rows {
		if n.Scope == domain.ScopeGlobal || (n.UserID != nil && *n.UserID == userID) {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memNotifications) MarkRead(_ context.Context, id string) (*domain.Notification, error) {
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].IsRead = true
			return &r.rows[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memNotifications) Delete(_ context.Context, id string) error {
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type testEnv struct {
	router   http.Handler
	orders   *memOrders
	products *memProducts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	products := &memProducts{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Desk Lamp", PriceCents: 4500, Currency: "USD"},
		"p2": {ID: "p2", Name: "Notebook", PriceCents: 1000, Currency: "USD", DiscountPercent: 20},
	}}
	orders := &memOrders{orders: map[string]*domain.Order{}}
	notifications := &memNotifications{}

	hub := notify.NewHub()
	notifSvc := notificationsvc.New(notifications, hub)
	orderSvc := ordersvc.New(
		orders,
		pricing.New(products),
		nil, // no payment gateway in routing tests
		notifSvc,
		nil,
	)

	router := buildRouter(nil, Deps{
		Orders:         orderSvc,
		Notifications:  notifSvc,
		Hub:            hub,
		JWTSecret:      testSecret,
		PayPalClientID: "client-abc",
	})
	return &testEnv{router: router, orders: orders, products: products}
}

func signToken(t *testing.T, userID string, admin bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"is_admin": admin,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointIsPublic(t *testing.T) {
	env := newTestEnv(t)
	rec := doJSON(t, env.router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/api/order", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	badToken := signToken(t, "u1", false) + "tampered"
	rec = doJSON(t, env.router, http.MethodGet, "/api/order", badToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestAdminRoutesRejectRegularUsers(t *testing.T) {
	env := newTestEnv(t)
	user := signToken(t, "u1", false)

	rec := doJSON(t, env.router, http.MethodGet, "/api/order/all", user, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	rec = doJSON(t, env.router, http.MethodPut, "/api/order/delivery/some-id/shipped", user, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin delivery update, got %d", rec.Code)
	}
}

func TestCreateOrderPricesServerSide(t *testing.T) {
	env := newTestEnv(t)
	user := signToken(t, "u1", false)

	rec := doJSON(t, env.router, http.MethodPost, "/api/order", user, gin.H{
		"orderItems": []gin.H{
			{"productId": "p1", "quantity": 2},
			{"productId": "p2", "quantity": 1},
		},
		"totalCents": 1, // advisory, must be ignored
		"shippingAddress": gin.H{
			"street": "1 Main St", "city": "Springfield", "postalCode": "12345", "country": "US",
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got domain.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// 2 x 4500 plus 1000 with 20% off.
	if got.TotalCents != 9800 {
		t.Fatalf("expected total 9800, got %d", got.TotalCents)
	}
	if got.Delivery != domain.DeliveryProcessing || got.IsPaid {
		t.Fatalf("unexpected initial state: %+v", got)
	}
}

func TestCreateOrderValidationMapsTo400(t *testing.T) {
	env := newTestEnv(t)
	user := signToken(t, "u1", false)

	rec := doJSON(t, env.router, http.MethodPost, "/api/order", user, gin.H{"orderItems": []gin.H{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetOrderHiddenFromStrangers(t *testing.T) {
	env := newTestEnv(t)
	o, err := env.orders.Create(context.Background(), orderrepo.CreateInput{
		UserID:     "owner",
		Items:      []domain.OrderItem{{ProductID: "p1", Quantity: 1, UnitPriceCents: 4500}},
		TotalCents: 4500,
		Currency:   "USD",
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	stranger := signToken(t, "stranger", false)
	rec := doJSON(t, env.router, http.MethodGet, "/api/order/"+o.ID, stranger, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign order, got %d", rec.Code)
	}

	admin := signToken(t, "ops", true)
	rec = doJSON(t, env.router, http.MethodGet, "/api/order/"+o.ID, admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestDeliveryUpdateGatedOnPayment(t *testing.T) {
	env := newTestEnv(t)
	o, _ := env.orders.Create(context.Background(), orderrepo.CreateInput{
		UserID:     "owner",
		Items:      []domain.OrderItem{{ProductID: "p1", Quantity: 1, UnitPriceCents: 4500}},
		TotalCents: 4500,
		Currency:   "USD",
	})
	admin := signToken(t, "ops", true)

	rec := doJSON(t, env.router, http.MethodPut, "/api/order/delivery/"+o.ID+"/shipped", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 shipping an unpaid order, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, env.router, http.MethodPut, "/api/order/delivery/"+o.ID+"/cancelled", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 cancelling unpaid order, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMarkPaymentStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	o, _ := env.orders.Create(context.Background(), orderrepo.CreateInput{
		UserID:     "owner",
		Items:      []domain.OrderItem{{ProductID: "p1", Quantity: 1, UnitPriceCents: 4500}},
		TotalCents: 4500,
		Currency:   "USD",
	})
	admin := signToken(t, "ops", true)

	rec := doJSON(t, env.router, http.MethodPut, "/api/order/"+o.ID+"/pending", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got domain.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.IsPaid {
		t.Fatalf("marking pending must flip isPaid")
	}
}

func TestPayPalConfigEndpointIsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/api/order/paypal/config", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["clientId"] != "client-abc" {
		t.Fatalf("expected configured client id, got %q", body["clientId"])
	}
}

func TestNotificationLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	admin := signToken(t, "ops", true)
	userID := uuid.NewString()
	user := signToken(t, userID, false)

	rec := doJSON(t, env.router, http.MethodPost, "/api/notification", admin, gin.H{
		"userId": userID, "title": "Hello", "message": "Welcome aboard", "kind": "system",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = doJSON(t, env.router, http.MethodGet, "/api/notification", user, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listed struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listed.Notifications) != 1 || listed.Notifications[0].Title != "Hello" {
		t.Fatalf("unexpected listing %+v", listed.Notifications)
	}

	rec = doJSON(t, env.router, http.MethodPut, "/api/notification/"+created.ID+"/read", user, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 marking read, got %d", rec.Code)
	}

	rec = doJSON(t, env.router, http.MethodDelete, "/api/notification/"+created.ID, user, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin delete, got %d", rec.Code)
	}

	rec = doJSON(t, env.router, http.MethodDelete, "/api/notification/"+created.ID, admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting, got %d", rec.Code)
	}
}

func TestNotificationEmitRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	user := signToken(t, "u1", false)

	rec := doJSON(t, env.router, http.MethodPost, "/api/notification", user, gin.H{
		"title": "x", "message": "y",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
