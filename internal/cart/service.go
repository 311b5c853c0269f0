package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
)

var ErrProductUnavailable = errors.New("product not available")

type Service interface {
	ListItems(ctx context.Context, userID uuid.UUID) ([]Item, error)
	AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, variantID uuid.UUID) error
	MergeCart(ctx context.Context, userID uuid.UUID, items []Item) error
}

type service struct {
	repo Repository
	gate inventory.Gate
}

func NewService(repo Repository, gate inventory.Gate) Service {
	return &service{
		repo: repo,
		gate: gate,
	}
}

func (s *service) ListItems(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list cart items: %w", err)
	}
	return items, nil
}

func (s *service) AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("service: quantity must be positive, got %d", quantity)
	}

	// Advisory stock check, same as at order creation. The authoritative
	// check happens at payment settlement.
	available, err := s.gate.CheckAvailability(ctx, variantID, quantity)
	if err != nil {
		if errors.Is(err, inventory.ErrVariantNotFound) {
			return ErrProductUnavailable
		}
		return fmt.Errorf("service: failed to check availability: %w", err)
	}
	if !available {
		return ErrProductUnavailable
	}

	item := &Item{
		UserID:    userID,
		VariantID: variantID,
		Quantity:  quantity,
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("service: failed to add cart item: %w", err)
	}

	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID, variantID uuid.UUID) error {
	err := s.repo.Remove(ctx, userID, variantID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("service: failed to remove cart item: %w", err)
	}
	return nil
}

// MergeCart reconciles the client-side cart into the server cart after
// login. The client cart is authoritative until this point; on conflict
// quantities are summed.
func (s *service) MergeCart(ctx context.Context, userID uuid.UUID, items []Item) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("service: merge item %s: quantity must be positive, got %d", item.VariantID, item.Quantity)
		}
	}

	if err := s.repo.Merge(ctx, userID, items); err != nil {
		return fmt.Errorf("service: failed to merge cart: %w", err)
	}

	log.Info().Stringer("user_id", userID).Int("items", len(items)).Msg("service: client cart merged")
	return nil
}
