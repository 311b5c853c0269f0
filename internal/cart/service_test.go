package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
)

type mockRepository struct {
	listFunc   func(ctx context.Context, userID uuid.UUID) ([]cart.Item, error)
	upsertFunc func(ctx context.Context, item *cart.Item) error
	removeFunc func(ctx context.Context, userID, variantID uuid.UUID) error
	mergeFunc  func(ctx context.Context, userID uuid.UUID, items []cart.Item) error
}

func (m *mockRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]cart.Item, error) {
	return m.listFunc(ctx, userID)
}

func (m *mockRepository) Upsert(ctx context.Context, item *cart.Item) error {
	return m.upsertFunc(ctx, item)
}

func (m *mockRepository) Remove(ctx context.Context, userID, variantID uuid.UUID) error {
	return m.removeFunc(ctx, userID, variantID)
}

func (m *mockRepository) Merge(ctx context.Context, userID uuid.UUID, items []cart.Item) error {
	return m.mergeFunc(ctx, userID, items)
}

func (m *mockRepository) ClearForUser(ctx context.Context, q cart.Execer, userID uuid.UUID) error {
	return nil
}

type mockGate struct {
	available bool
	err       error
}

func (m *mockGate) CheckAvailability(ctx context.Context, variantID uuid.UUID, quantity int) (bool, error) {
	return m.available, m.err
}

func (m *mockGate) Decrement(ctx context.Context, q inventory.Execer, variantID uuid.UUID, quantity int) error {
	return nil
}

func TestService_AddItem(t *testing.T) {
	userID, _ := uuid.NewV4()
	variantID, _ := uuid.NewV4()

	tests := []struct {
		name      string
		quantity  int
		gate      *mockGate
		wantErrIs error
		wantErr   bool
	}{
		{
			name:     "success",
			quantity: 2,
			gate:     &mockGate{available: true},
		},
		{
			name:      "out_of_stock",
			quantity:  2,
			gate:      &mockGate{available: false},
			wantErrIs: cart.ErrProductUnavailable,
			wantErr:   true,
		},
		{
			name:      "unknown_variant",
			quantity:  2,
			gate:      &mockGate{err: inventory.ErrVariantNotFound},
			wantErrIs: cart.ErrProductUnavailable,
			wantErr:   true,
		},
		{
			name:     "zero_quantity",
			quantity: 0,
			gate:     &mockGate{available: true},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var upserted *cart.Item
			repo := &mockRepository{
				upsertFunc: func(ctx context.Context, item *cart.Item) error {
					upserted = item
					return nil
				},
			}
			svc := cart.NewService(repo, tt.gate)

			err := svc.AddItem(context.Background(), userID, variantID, tt.quantity)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantErrIs != nil {
					assert.True(t, errors.Is(err, tt.wantErrIs))
				}
				assert.Nil(t, upserted, "no write on rejection")
				return
			}
			require.NoError(t, err)
			require.NotNil(t, upserted)
			assert.Equal(t, userID, upserted.UserID)
			assert.Equal(t, variantID, upserted.VariantID)
			assert.Equal(t, tt.quantity, upserted.Quantity)
		})
	}
}

func TestService_MergeCart(t *testing.T) {
	userID, _ := uuid.NewV4()
	variantID, _ := uuid.NewV4()

	t.Run("delegates_to_repository", func(t *testing.T) {
		var merged []cart.Item
		repo := &mockRepository{
			mergeFunc: func(ctx context.Context, uid uuid.UUID, items []cart.Item) error {
				merged = items
				return nil
			},
		}
		svc := cart.NewService(repo, &mockGate{available: true})

		items := []cart.Item{{UserID: userID, VariantID: variantID, Quantity: 3}}
		require.NoError(t, svc.MergeCart(context.Background(), userID, items))
		assert.Equal(t, items, merged)
	})

	t.Run("rejects_non_positive_quantities", func(t *testing.T) {
		repo := &mockRepository{
			mergeFunc: func(ctx context.Context, uid uuid.UUID, items []cart.Item) error {
				t.Fatal("merge must not be called")
				return nil
			},
		}
		svc := cart.NewService(repo, &mockGate{available: true})

		err := svc.MergeCart(context.Background(), userID, []cart.Item{{VariantID: variantID, Quantity: -1}})
		assert.Error(t, err)
	})
}
