package notification

import (
	"context"
	"errors"

	"shopora/internal/domain"
	"shopora/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id::text, user_id::text, title, message, kind, scope, is_read, created_at`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Notification, error) {
	const q = `
INSERT INTO notifications (user_id, title, message, kind, scope)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + columns
	row := r.pool.QueryRow(ctx, q, in.UserID, in.Title, in.Message, in.Kind, in.Scope)
	n, err := scanNotification(row)
	if err != nil {
		logger.Warn("notification repo: create failed", "err", err)
		return nil, err
	}
	return n, nil
}

// ListForUser merges the user's own notifications with global ones, newest
// first, capped at limit.
func (r *postgresRepo) ListForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	const q = `
SELECT ` + columns + `
FROM notifications
WHERE user_id = $1 OR scope = 'global'
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *postgresRepo) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	const q = `
UPDATE notifications
SET is_read = true
WHERE id = $1
RETURNING ` + columns
	row := r.pool.QueryRow(ctx, q, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&n.Kind,
		&n.Scope,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
