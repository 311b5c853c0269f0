package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrVariantNotFound   = errors.New("product variant not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Execer is satisfied by *pgxpool.Pool and pgx.Tx, so Decrement can run
// inside the settlement transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Gate owns all stock mutation. The availability check is advisory
// (time-of-check); the conditional decrement at settlement is authoritative.
type Gate interface {
	CheckAvailability(ctx context.Context, variantID uuid.UUID, quantity int) (bool, error)
	Decrement(ctx context.Context, q Execer, variantID uuid.UUID, quantity int) error
}

type postgresGate struct {
	db *pgxpool.Pool
}

func NewGate(db *pgxpool.Pool) Gate {
	return &postgresGate{db: db}
}

func (g *postgresGate) CheckAvailability(ctx context.Context, variantID uuid.UUID, quantity int) (bool, error) {
	query := `SELECT stock FROM product_variants WHERE id = $1`

	var stock int
	err := g.db.QueryRow(ctx, query, variantID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrVariantNotFound
		}
		return false, fmt.Errorf("inventory: failed to select stock for variant %s: %w", variantID, err)
	}

	return stock >= quantity, nil
}

func (g *postgresGate) Decrement(ctx context.Context, q Execer, variantID uuid.UUID, quantity int) error {
	if q == nil {
		q = g.db
	}

	// Conditional update: the WHERE clause is the non-negative stock
	// invariant. Zero rows means the variant is gone or the decrement would
	// underflow; either way stock is left unchanged.
	query := `
		UPDATE product_variants
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
	`

	cmdTag, err := q.Exec(ctx, query, variantID, quantity)
	if err != nil {
		return fmt.Errorf("inventory: failed to decrement stock for variant %s: %w", variantID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		log.Warn().
			Stringer("variant_id", variantID).
			Int("quantity", quantity).
			Msg("inventory: conditional stock decrement matched no rows")
		return fmt.Errorf("inventory: variant %s: %w", variantID, ErrInsufficientStock)
	}

	return nil
}
