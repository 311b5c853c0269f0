package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrItemNotFound = errors.New("cart item not found")

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Upsert(ctx context.Context, item *Item) error
	Remove(ctx context.Context, userID, variantID uuid.UUID) error
	Merge(ctx context.Context, userID uuid.UUID, items []Item) error
	ClearForUser(ctx context.Context, q Execer, userID uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	query := `
		SELECT user_id, variant_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for user %s: %w", userID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		err := rows.Scan(&item.UserID, &item.VariantID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for user %s: %w", userID, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for user %s: %w", userID, err)
	}

	return items, nil
}

func (r *postgresRepository) Upsert(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO cart_items (user_id, variant_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
	`

	_, err := r.db.Exec(ctx, query, item.UserID, item.VariantID, item.Quantity)
	if err != nil {
		return fmt.Errorf("repository: failed to upsert cart item for user %s: %w", item.UserID, err)
	}

	return nil
}

func (r *postgresRepository) Remove(ctx context.Context, userID, variantID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND variant_id = $2`

	cmdTag, err := r.db.Exec(ctx, query, userID, variantID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item for user %s: %w", userID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

// Merge reconciles a client-side cart into the server cart in one
// transaction. Conflicting rows sum quantities.
func (r *postgresRepository) Merge(ctx context.Context, userID uuid.UUID, items []Item) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin merge transaction: %w", beginErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("user_id", userID).Msg("Failed to rollback cart merge transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit merge transaction: %w", commitErr)
			}
		}
	}()

	query := `
		INSERT INTO cart_items (user_id, variant_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
	`

	for _, item := range items {
		_, err = tx.Exec(ctx, query, userID, item.VariantID, item.Quantity)
		if err != nil {
			return fmt.Errorf("repository: failed to merge cart item %s for user %s: %w", item.VariantID, userID, err)
		}
	}

	return nil
}

func (r *postgresRepository) ClearForUser(ctx context.Context, q Execer, userID uuid.UUID) error {
	if q == nil {
		q = r.db
	}

	query := `DELETE FROM cart_items WHERE user_id = $1`

	_, err := q.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %s: %w", userID, err)
	}

	return nil
}
