package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/discount"
	"github.com/vasiliy-maslov/storefront/internal/payment"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
)

var (
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrProductUnavailable = errors.New("product not available")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// VariantSource provides authoritative variant prices and stock at order
// time. Satisfied by catalog.Service.
type VariantSource interface {
	GetVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Variant, error)
}

// DiscountSource looks up active discount codes. Satisfied by discount.Repository.
type DiscountSource interface {
	GetByCode(ctx context.Context, code string) (*discount.Discount, error)
}

type ItemInput struct {
	VariantID uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	Items             []ItemInput
	ShippingAddressID *uuid.UUID
	DiscountCode      string
}

// CreateOrderResult carries the created order together with the gateway
// client secret the storefront needs to confirm the payment.
type CreateOrderResult struct {
	Order        *Order
	ClientSecret string
}

type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*CreateOrderResult, error)
	GetOrderByID(ctx context.Context, userID, orderID uuid.UUID) (*Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
}

type service struct {
	repo      Repository
	variants  VariantSource
	discounts DiscountSource
	gateway   payment.Gateway
	currency  string
	now       func() time.Time
}

func NewService(repo Repository, variants VariantSource, discounts DiscountSource, gateway payment.Gateway, currency string) Service {
	return &service{
		repo:      repo,
		variants:  variants,
		discounts: discounts,
		gateway:   gateway,
		currency:  currency,
		now:       time.Now,
	}
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*CreateOrderResult, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	lines, items, err := s.resolveItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	discountAmount, discountID := s.resolveDiscount(ctx, input.DiscountCode, subtotal)

	quote, err := pricing.ComputeQuote(lines, discountAmount)
	if err != nil {
		return nil, fmt.Errorf("service: failed to compute quote: %w", err)
	}

	o := &Order{
		UserID:            userID,
		Items:             items,
		Subtotal:          quote.Subtotal,
		Shipping:          quote.Shipping,
		Tax:               quote.Tax,
		Discount:          quote.Discount,
		Total:             quote.Total,
		DiscountID:        discountID,
		ShippingAddressID: input.ShippingAddressID,
		PaymentStatus:     PaymentPending,
		Status:            StatusPending,
	}

	if err := s.persistWithFreshNumber(ctx, o); err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, pricing.MinorUnits(quote.Total), s.currency, map[string]string{
		"orderId":     o.ID.String(),
		"orderNumber": o.OrderNumber,
	})
	if err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: payment intent creation failed, cancelling order")
		if cancelErr := s.repo.CancelPendingOrder(ctx, o.ID); cancelErr != nil {
			log.Error().Err(cancelErr).Stringer("order_id", o.ID).Msg("service: compensating cancellation failed")
		}
		return nil, fmt.Errorf("service: %w: %v", ErrGatewayUnavailable, err)
	}

	if err := s.repo.SetPaymentIntent(ctx, o.ID, intent.ID); err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Str("intent_id", intent.ID).
			Msg("service: failed to persist payment intent reference, cancelling order")
		if cancelErr := s.repo.CancelPendingOrder(ctx, o.ID); cancelErr != nil {
			log.Error().Err(cancelErr).Stringer("order_id", o.ID).Msg("service: compensating cancellation failed")
		}
		return nil, fmt.Errorf("service: failed to persist payment intent: %w", err)
	}
	o.PaymentIntentID = &intent.ID

	log.Info().
		Stringer("order_id", o.ID).
		Str("order_number", o.OrderNumber).
		Stringer("user_id", userID).
		Str("total", o.Total.String()).
		Msg("service: order created")

	return &CreateOrderResult{Order: o, ClientSecret: intent.ClientSecret}, nil
}

// resolveItems fetches the requested variants and snapshots their prices.
// The stock comparison here is advisory; settlement performs the
// authoritative conditional decrement.
func (s *service) resolveItems(ctx context.Context, inputs []ItemInput) ([]pricing.Line, []LineItem, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity <= 0 {
			return nil, nil, fmt.Errorf("service: variant %s: quantity must be positive, got %d", in.VariantID, in.Quantity)
		}
		ids = append(ids, in.VariantID)
	}

	variants, err := s.variants.GetVariantsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("service: failed to resolve variants: %w", err)
	}

	byID := make(map[uuid.UUID]catalog.Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	lines := make([]pricing.Line, 0, len(inputs))
	items := make([]LineItem, 0, len(inputs))
	for _, in := range inputs {
		v, ok := byID[in.VariantID]
		if !ok || v.Stock < in.Quantity {
			return nil, nil, fmt.Errorf("service: variant %s: %w", in.VariantID, ErrProductUnavailable)
		}
		lines = append(lines, pricing.Line{
			VariantID: v.ID,
			Quantity:  in.Quantity,
			UnitPrice: v.Price,
		})
		items = append(items, LineItem{
			VariantID: v.ID,
			Quantity:  in.Quantity,
			UnitPrice: v.Price,
		})
	}

	return lines, items, nil
}

// resolveDiscount maps a code to a discount amount. Missing or ineligible
// codes yield a zero discount and never fail the order.
func (s *service) resolveDiscount(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, *uuid.UUID) {
	if code == "" {
		return decimal.Zero, nil
	}

	d, err := s.discounts.GetByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, discount.ErrDiscountNotFound) {
			log.Warn().Err(err).Str("code", code).Msg("service: discount lookup failed, proceeding without discount")
		}
		return decimal.Zero, nil
	}

	if !discount.Eligible(d, subtotal, s.now()) {
		log.Info().Str("code", code).Msg("service: discount code not eligible")
		return decimal.Zero, nil
	}

	amount := discount.Amount(d, subtotal)
	id := d.ID
	return amount, &id
}

// persistWithFreshNumber creates the order, regenerating the order number on
// a uniqueness collision. ULIDs make collisions vanishingly rare, so one
// retry is enough.
func (s *service) persistWithFreshNumber(ctx context.Context, o *Order) error {
	for attempt := 0; attempt < 2; attempt++ {
		o.OrderNumber = newOrderNumber()
		err := s.repo.CreateOrder(ctx, o)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDuplicateOrderNumber) && attempt == 0 {
			log.Warn().Str("order_number", o.OrderNumber).Msg("service: order number collision, retrying")
			continue
		}
		return fmt.Errorf("service: failed to create order: %w", err)
	}
	return fmt.Errorf("service: failed to create order: %w", ErrDuplicateOrderNumber)
}

func (s *service) GetOrderByID(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	// Orders are user-owned; hide other users' orders as not found.
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}

	return o, nil
}

func (s *service) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

// newOrderNumber builds a human-readable, collision-resistant order number:
// a ULID carries a millisecond timestamp plus 80 random bits.
func newOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}
