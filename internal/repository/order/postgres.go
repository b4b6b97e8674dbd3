package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopora/internal/domain"
	"shopora/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `
id::text, user_id::text, total_cents, currency,
shipping_street, shipping_city, shipping_postal_code, shipping_country,
is_paid, paid_at, COALESCE(paypal_id, ''),
payment_status, COALESCE(payment_transaction_id, ''), COALESCE(payment_email, ''),
delivery, version, created_at, updated_at`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insertOrder = `
INSERT INTO orders (user_id, total_cents, currency, shipping_street, shipping_city, shipping_postal_code, shipping_country)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id::text
`
	var orderID string
	err = tx.QueryRow(ctx, insertOrder,
		in.UserID,
		in.TotalCents,
		in.Currency,
		in.Shipping.Street,
		in.Shipping.City,
		in.Shipping.PostalCode,
		in.Shipping.Country,
	).Scan(&orderID)
	if err != nil {
		logger.Warn("order repo: insert order failed", "user_id", in.UserID, "err", err)
		return nil, err
	}

	const insertItem = `
INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents, size, color)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
`
	for _, item := range in.Items {
		if _, err := tx.Exec(ctx, insertItem,
			orderID,
			item.ProductID,
			item.Quantity,
			item.UnitPriceCents,
			item.Size,
			item.Color,
		); err != nil {
			logger.Warn("order repo: insert item failed", "order_id", orderID, "product_id", item.ProductID, "err", err)
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, orderID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	q := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	row := r.pool.QueryRow(ctx, q, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	items, err := r.fetchItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	q := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) ListAll(ctx context.Context, f ListAllFilter) ([]domain.Order, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.PaymentStatus != "" {
		add("payment_status = $%d", f.PaymentStatus)
	}
	if f.EmailSearch != "" {
		add("payment_email ILIKE $%d", "%"+f.EmailSearch+"%")
	}
	if f.StartDate != nil {
		add("created_at >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("created_at <= $%d", *f.EndDate)
	}
	if f.Delivery != "" {
		add("delivery = $%d", f.Delivery)
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM orders %s`, where)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := "created_at DESC"
	switch f.Sort {
	case "dateAsc":
		orderBy = "created_at ASC"
	case "priceAsc":
		orderBy = "total_cents ASC"
	case "priceDesc":
		orderBy = "total_cents DESC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	q := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY %s LIMIT %d OFFSET %d`,
		orderColumns, where, orderBy, limit, offset)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *postgresRepo) SetPaymentIntent(ctx context.Context, id string, version int64, paypalID, status string) error {
	const q = `
UPDATE orders
SET paypal_id = $1, payment_status = $2, version = version + 1, updated_at = now()
WHERE id = $3 AND version = $4
`
	return r.guardedExec(ctx, q, id, paypalID, status, id, version)
}

func (r *postgresRepo) MarkPaid(ctx context.Context, id string, version int64, res domain.PaymentResult, paidAt time.Time) error {
	const q = `
UPDATE orders
SET is_paid = true,
    paid_at = $1,
    payment_status = $2,
    payment_transaction_id = $3,
    payment_email = NULLIF($4, ''),
    version = version + 1,
    updated_at = now()
WHERE id = $5 AND version = $6
`
	return r.guardedExec(ctx, q, id, paidAt, res.Status, res.TransactionID, res.Email, id, version)
}

func (r *postgresRepo) SetPaymentStatus(ctx context.Context, id string, version int64, status string, isPaid bool) error {
	const q = `
UPDATE orders
SET payment_status = $1, is_paid = $2, version = version + 1, updated_at = now()
WHERE id = $3 AND version = $4
`
	return r.guardedExec(ctx, q, id, status, isPaid, id, version)
}

func (r *postgresRepo) SetDelivery(ctx context.Context, id string, version int64, status string) error {
	const q = `
UPDATE orders
SET delivery = $1, version = version + 1, updated_at = now()
WHERE id = $2 AND version = $3
`
	return r.guardedExec(ctx, q, id, status, id, version)
}

// guardedExec runs a version-checked update and maps a zero row count to
// either ErrConflict (row exists at another version) or ErrNotFound.
func (r *postgresRepo) guardedExec(ctx context.Context, q, id string, args ...interface{}) error {
	cmd, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		logger.Warn("order repo: guarded update failed", "order_id", id, "err", err)
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return domain.ErrConflict
	}
	return domain.ErrNotFound
}

func (r *postgresRepo) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := r.fetchItems(ctx, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return nil
}

func (r *postgresRepo) fetchItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	const q = `
SELECT id::text, order_id::text, product_id::text, quantity, unit_price_cents, COALESCE(size, ''), COALESCE(color, ''), created_at
FROM order_items
WHERE order_id = ANY($1)
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.Size,
			&item.Color,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		out[item.OrderID] = append(out[item.OrderID], item)
	}
	return out, rows.Err()
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.TotalCents,
		&o.Currency,
		&o.Shipping.Street,
		&o.Shipping.City,
		&o.Shipping.PostalCode,
		&o.Shipping.Country,
		&o.IsPaid,
		&o.PaidAt,
		&o.PayPalID,
		&o.Payment.Status,
		&o.Payment.TransactionID,
		&o.Payment.Email,
		&o.Delivery,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
