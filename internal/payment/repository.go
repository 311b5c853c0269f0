package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/discount"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
)

var ErrOrderNotFound = errors.New("order not found")

// SettlementStore applies terminal payment outcomes to an order. Both
// operations are idempotent: a repeated delivery reports applied=false and
// changes nothing.
type SettlementStore interface {
	ApplySuccess(ctx context.Context, orderID uuid.UUID) (applied bool, err error)
	ApplyFailure(ctx context.Context, orderID uuid.UUID) (applied bool, err error)
}

type settlementStore struct {
	db        *pgxpool.Pool
	gate      inventory.Gate
	carts     cart.Repository
	discounts discount.Repository
}

func NewSettlementStore(db *pgxpool.Pool, gate inventory.Gate, carts cart.Repository, discounts discount.Repository) SettlementStore {
	return &settlementStore{
		db:        db,
		gate:      gate,
		carts:     carts,
		discounts: discounts,
	}
}

// ApplySuccess runs the whole success branch in one transaction: the
// compare-and-swap on payment_status, the per-item stock decrements, the
// cart clear and the discount usage increment. The CAS is the serialization
// point: a concurrent redelivery blocks on the row lock, re-evaluates the
// WHERE clause and matches zero rows, so the side effects apply exactly once.
func (s *settlementStore) ApplySuccess(ctx context.Context, orderID uuid.UUID) (applied bool, err error) {
	tx, beginErr := s.db.Begin(ctx)
	if beginErr != nil {
		return false, fmt.Errorf("repository: failed to begin settlement transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("Failed to rollback settlement transaction after panic")
			}
			panic(p)
		} else if err != nil || !applied {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("Failed to rollback settlement transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				applied = false
				err = fmt.Errorf("repository: failed to commit settlement transaction: %w", commitErr)
			}
		}
	}()

	casQuery := `
		UPDATE orders
		SET payment_status = 'SUCCEEDED', status = 'PROCESSING', updated_at = now()
		WHERE id = $1 AND payment_status = 'PENDING'
		RETURNING user_id, discount_id
	`

	var userID uuid.UUID
	var discountID *uuid.UUID
	err = tx.QueryRow(ctx, casQuery, orderID).Scan(&userID, &discountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already terminal or missing; disambiguate outside the write path.
			err = nil
			return false, s.checkExisting(ctx, orderID)
		}
		return false, fmt.Errorf("repository: settlement status update failed for order %s: %w", orderID, err)
	}

	itemsQuery := `SELECT variant_id, quantity FROM order_items WHERE order_id = $1`
	rows, qErr := tx.Query(ctx, itemsQuery, orderID)
	if qErr != nil {
		err = fmt.Errorf("repository: failed to query order items for order %s: %w", orderID, qErr)
		return false, err
	}

	type itemRow struct {
		variantID uuid.UUID
		quantity  int
	}
	var items []itemRow
	for rows.Next() {
		var it itemRow
		if scanErr := rows.Scan(&it.variantID, &it.quantity); scanErr != nil {
			rows.Close()
			err = fmt.Errorf("repository: failed to scan order item for order %s: %w", orderID, scanErr)
			return false, err
		}
		items = append(items, it)
	}
	rows.Close()
	if rowsErr := rows.Err(); rowsErr != nil {
		err = fmt.Errorf("repository: error iterating order items for order %s: %w", orderID, rowsErr)
		return false, err
	}

	for _, it := range items {
		if decErr := s.gate.Decrement(ctx, tx, it.variantID, it.quantity); decErr != nil {
			// Inventory race: the advisory check at creation passed but stock
			// sold out before settlement. Roll back and surface loudly.
			log.Error().Err(decErr).
				Stringer("order_id", orderID).
				Stringer("variant_id", it.variantID).
				Int("quantity", it.quantity).
				Msg("repository: settlement stock decrement failed")
			err = decErr
			return false, err
		}
	}

	if clearErr := s.carts.ClearForUser(ctx, tx, userID); clearErr != nil {
		err = fmt.Errorf("repository: failed to clear cart during settlement of order %s: %w", orderID, clearErr)
		return false, err
	}

	if discountID != nil {
		if incErr := s.discounts.IncrementUsage(ctx, tx, *discountID); incErr != nil {
			err = fmt.Errorf("repository: failed to increment discount usage during settlement of order %s: %w", orderID, incErr)
			return false, err
		}
	}

	return true, nil
}

// ApplyFailure marks the order failed and cancelled. Conditioned on PENDING
// so redeliveries and late failure events after a success are no-ops.
func (s *settlementStore) ApplyFailure(ctx context.Context, orderID uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET payment_status = 'FAILED', status = 'CANCELLED', updated_at = now()
		WHERE id = $1 AND payment_status = 'PENDING'
	`

	cmdTag, err := s.db.Exec(ctx, query, orderID)
	if err != nil {
		return false, fmt.Errorf("repository: failure status update failed for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return false, s.checkExisting(ctx, orderID)
	}

	return true, nil
}

// checkExisting distinguishes "already settled" (nil: idempotent no-op) from
// "no such order" (ErrOrderNotFound) after a zero-row conditional update.
func (s *settlementStore) checkExisting(ctx context.Context, orderID uuid.UUID) error {
	var status string
	err := s.db.QueryRow(ctx, `SELECT payment_status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("repository: failed to check order %s: %w", orderID, err)
	}

	log.Info().Stringer("order_id", orderID).Str("payment_status", status).Msg("repository: settlement event for already-terminal order, no-op")
	return nil
}
