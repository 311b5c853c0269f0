package order_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/discount"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

type mockRepository struct {
	createFunc           func(ctx context.Context, o *order.Order) error
	getByIDFunc          func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	getByUserFunc        func(ctx context.Context, userID uuid.UUID) ([]order.Order, error)
	setPaymentIntentFunc func(ctx context.Context, orderID uuid.UUID, intentID string) error
	cancelFunc           func(ctx context.Context, orderID uuid.UUID) error
}

func (m *mockRepository) CreateOrder(ctx context.Context, o *order.Order) error {
	return m.createFunc(ctx, o)
}

func (m *mockRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	return m.getByUserFunc(ctx, userID)
}

func (m *mockRepository) SetPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) error {
	return m.setPaymentIntentFunc(ctx, orderID, intentID)
}

func (m *mockRepository) CancelPendingOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.cancelFunc(ctx, orderID)
}

type mockVariantSource struct {
	variants []catalog.Variant
	err      error
}

func (m *mockVariantSource) GetVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Variant, error) {
	return m.variants, m.err
}

type mockDiscountSource struct {
	discount *discount.Discount
	err      error
}

func (m *mockDiscountSource) GetByCode(ctx context.Context, code string) (*discount.Discount, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.discount, nil
}

type mockGateway struct {
	createFunc func(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*payment.Intent, error)
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	return m.createFunc(ctx, amountMinorUnits, currency, metadata)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newVariant(t *testing.T, price string, stock int) catalog.Variant {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return catalog.Variant{ID: id, Price: dec(price), Stock: stock}
}

func okRepository() *mockRepository {
	return &mockRepository{
		createFunc: func(ctx context.Context, o *order.Order) error {
			// Mirror the real repository contract: CreateOrder assigns an ID.
			if o.ID == uuid.Nil {
				id, err := uuid.NewV4()
				if err != nil {
					return err
				}
				o.ID = id
			}
			return nil
		},
		setPaymentIntentFunc: func(ctx context.Context, orderID uuid.UUID, intentID string) error { return nil },
		cancelFunc:           func(ctx context.Context, orderID uuid.UUID) error { return nil },
	}
}

func okGateway() *mockGateway {
	return &mockGateway{
		createFunc: func(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*payment.Intent, error) {
			return &payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
		},
	}
}

func TestService_CreateOrder_PricingWithDiscount(t *testing.T) {
	// 2x $40 variant with WELCOME10 (10% off, min $50):
	// subtotal 80, discount 8, shipping 10, tax 8, total 90.
	variant := newVariant(t, "40.00", 5)
	userID, _ := uuid.NewV4()
	discountID, _ := uuid.NewV4()
	minAmount := dec("50.00")
	maxUses := 100

	var capturedAmount int64
	var capturedMetadata map[string]string
	gateway := &mockGateway{
		createFunc: func(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*payment.Intent, error) {
			capturedAmount = amountMinorUnits
			capturedMetadata = metadata
			return &payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
		},
	}

	svc := order.NewService(
		okRepository(),
		&mockVariantSource{variants: []catalog.Variant{variant}},
		&mockDiscountSource{discount: &discount.Discount{
			ID:        discountID,
			Code:      "WELCOME10",
			Type:      discount.TypePercentage,
			Value:     dec("10"),
			MinAmount: &minAmount,
			MaxUses:   &maxUses,
			UsedCount: 3,
			Active:    true,
		}},
		gateway,
		"usd",
	)

	result, err := svc.CreateOrder(context.Background(), userID, order.CreateOrderInput{
		Items:        []order.ItemInput{{VariantID: variant.ID, Quantity: 2}},
		DiscountCode: "WELCOME10",
	})
	require.NoError(t, err)

	o := result.Order
	assert.True(t, o.Subtotal.Equal(dec("80.00")), "subtotal %s", o.Subtotal)
	assert.True(t, o.Discount.Equal(dec("8.00")), "discount %s", o.Discount)
	assert.True(t, o.Shipping.Equal(dec("10")), "shipping %s", o.Shipping)
	assert.True(t, o.Tax.Equal(dec("8.00")), "tax %s", o.Tax)
	assert.True(t, o.Total.Equal(dec("90.00")), "total %s", o.Total)
	require.NotNil(t, o.DiscountID)
	assert.Equal(t, discountID, *o.DiscountID)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Regexp(t, `^ORD-[0-9A-Z]{26}$`, o.OrderNumber)
	assert.Equal(t, "pi_123_secret", result.ClientSecret)
	require.NotNil(t, o.PaymentIntentID)
	assert.Equal(t, "pi_123", *o.PaymentIntentID)

	assert.Equal(t, int64(9000), capturedAmount)
	assert.Equal(t, o.ID.String(), capturedMetadata["orderId"])
	assert.Equal(t, o.OrderNumber, capturedMetadata["orderNumber"])
}

func TestService_CreateOrder_FreeShippingNoDiscount(t *testing.T) {
	variant := newVariant(t, "60.00", 10)
	userID, _ := uuid.NewV4()

	svc := order.NewService(
		okRepository(),
		&mockVariantSource{variants: []catalog.Variant{variant}},
		&mockDiscountSource{err: discount.ErrDiscountNotFound},
		okGateway(),
		"usd",
	)

	result, err := svc.CreateOrder(context.Background(), userID, order.CreateOrderInput{
		Items: []order.ItemInput{{VariantID: variant.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	o := result.Order
	assert.True(t, o.Subtotal.Equal(dec("120.00")))
	assert.True(t, o.Shipping.Equal(decimal.Zero))
	assert.True(t, o.Tax.Equal(dec("12.00")))
	assert.True(t, o.Total.Equal(dec("132.00")))
	assert.Nil(t, o.DiscountID)
}

func TestService_CreateOrder_IneligibleDiscountIsIgnored(t *testing.T) {
	variant := newVariant(t, "40.00", 5)
	userID, _ := uuid.NewV4()
	maxUses := 100

	svc := order.NewService(
		okRepository(),
		&mockVariantSource{variants: []catalog.Variant{variant}},
		&mockDiscountSource{discount: &discount.Discount{
			Code:      "EXHAUSTED",
			Type:      discount.TypePercentage,
			Value:     dec("10"),
			MaxUses:   &maxUses,
			UsedCount: 100,
			Active:    true,
		}},
		okGateway(),
		"usd",
	)

	result, err := svc.CreateOrder(context.Background(), userID, order.CreateOrderInput{
		Items:        []order.ItemInput{{VariantID: variant.ID, Quantity: 1}},
		DiscountCode: "EXHAUSTED",
	})
	require.NoError(t, err)

	assert.True(t, result.Order.Discount.Equal(decimal.Zero))
	assert.Nil(t, result.Order.DiscountID)
}

func TestService_CreateOrder_Failures(t *testing.T) {
	variant := newVariant(t, "40.00", 1)
	userID, _ := uuid.NewV4()

	tests := []struct {
		name      string
		input     order.CreateOrderInput
		variants  *mockVariantSource
		wantErrIs error
	}{
		{
			name:      "empty_order",
			input:     order.CreateOrderInput{},
			variants:  &mockVariantSource{},
			wantErrIs: order.ErrEmptyOrder,
		},
		{
			name: "unknown_variant",
			input: order.CreateOrderInput{
				Items: []order.ItemInput{{VariantID: mustUUID(t), Quantity: 1}},
			},
			variants:  &mockVariantSource{},
			wantErrIs: order.ErrProductUnavailable,
		},
		{
			name: "insufficient_advisory_stock",
			input: order.CreateOrderInput{
				Items: []order.ItemInput{{VariantID: variant.ID, Quantity: 2}},
			},
			variants:  &mockVariantSource{variants: []catalog.Variant{variant}},
			wantErrIs: order.ErrProductUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := order.NewService(okRepository(), tt.variants, &mockDiscountSource{err: discount.ErrDiscountNotFound}, okGateway(), "usd")
			_, err := svc.CreateOrder(context.Background(), userID, tt.input)
			assert.True(t, errors.Is(err, tt.wantErrIs), "expected %v, got %v", tt.wantErrIs, err)
		})
	}
}

func TestService_CreateOrder_GatewayFailureCancelsOrder(t *testing.T) {
	variant := newVariant(t, "40.00", 5)
	userID, _ := uuid.NewV4()

	var cancelledID uuid.UUID
	repo := okRepository()
	repo.cancelFunc = func(ctx context.Context, orderID uuid.UUID) error {
		cancelledID = orderID
		return nil
	}

	gateway := &mockGateway{
		createFunc: func(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*payment.Intent, error) {
			return nil, errors.New("connection refused")
		},
	}

	svc := order.NewService(repo, &mockVariantSource{variants: []catalog.Variant{variant}}, &mockDiscountSource{err: discount.ErrDiscountNotFound}, gateway, "usd")

	_, err := svc.CreateOrder(context.Background(), userID, order.CreateOrderInput{
		Items: []order.ItemInput{{VariantID: variant.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, order.ErrGatewayUnavailable))
	assert.NotEqual(t, uuid.Nil, cancelledID, "compensating cancellation must run")
}

func TestService_CreateOrder_RetriesOrderNumberCollision(t *testing.T) {
	variant := newVariant(t, "40.00", 5)
	userID, _ := uuid.NewV4()

	var attempts []string
	repo := okRepository()
	repo.createFunc = func(ctx context.Context, o *order.Order) error {
		attempts = append(attempts, o.OrderNumber)
		if len(attempts) == 1 {
			return order.ErrDuplicateOrderNumber
		}
		return nil
	}

	svc := order.NewService(repo, &mockVariantSource{variants: []catalog.Variant{variant}}, &mockDiscountSource{err: discount.ErrDiscountNotFound}, okGateway(), "usd")

	result, err := svc.CreateOrder(context.Background(), userID, order.CreateOrderInput{
		Items: []order.ItemInput{{VariantID: variant.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.NotEqual(t, attempts[0], attempts[1], "retry must use a fresh order number")
	assert.Equal(t, attempts[1], result.Order.OrderNumber)
}

func TestService_GetOrderByID_HidesForeignOrders(t *testing.T) {
	ownerID, _ := uuid.NewV4()
	otherID, _ := uuid.NewV4()
	orderID, _ := uuid.NewV4()

	repo := okRepository()
	repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
		return &order.Order{ID: orderID, UserID: ownerID}, nil
	}

	svc := order.NewService(repo, &mockVariantSource{}, &mockDiscountSource{}, okGateway(), "usd")

	_, err := svc.GetOrderByID(context.Background(), otherID, orderID)
	assert.True(t, errors.Is(err, order.ErrOrderNotFound))

	o, err := svc.GetOrderByID(context.Background(), ownerID, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, o.ID)
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}
