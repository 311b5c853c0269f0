package discount

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDiscountNotFound = errors.New("discount not found")

// Execer is the slice of the pgx API the usage counter needs; both
// *pgxpool.Pool and pgx.Tx satisfy it, so IncrementUsage can run inside the
// settlement transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Discount, error)
	IncrementUsage(ctx context.Context, q Execer, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByCode(ctx context.Context, code string) (*Discount, error) {
	query := `
		SELECT id, code, type, value, min_amount, max_uses, used_count, start_date, end_date, active, created_at
		FROM discounts
		WHERE code = $1 AND active = TRUE
	`

	var d Discount
	err := r.db.QueryRow(ctx, query, code).Scan(
		&d.ID,
		&d.Code,
		&d.Type,
		&d.Value,
		&d.MinAmount,
		&d.MaxUses,
		&d.UsedCount,
		&d.StartDate,
		&d.EndDate,
		&d.Active,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDiscountNotFound
		}
		return nil, fmt.Errorf("repository: failed to select discount by code %s: %w", code, err)
	}

	return &d, nil
}

func (r *postgresRepository) IncrementUsage(ctx context.Context, q Execer, id uuid.UUID) error {
	if q == nil {
		q = r.db
	}

	query := `UPDATE discounts SET used_count = used_count + 1 WHERE id = $1`

	cmdTag, err := q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("repository: failed to increment discount usage %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrDiscountNotFound
	}

	return nil
}
