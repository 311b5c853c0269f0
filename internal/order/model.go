package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

func (ps PaymentStatus) String() string {
	return string(ps)
}

// LineItem is immutable once attached to an order. UnitPrice is the variant
// price snapshot taken at order time.
type LineItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	VariantID uuid.UUID       `json:"variant_id" db:"variant_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type Order struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	UserID            uuid.UUID       `json:"user_id" db:"user_id"`
	OrderNumber       string          `json:"order_number" db:"order_number"`
	Items             []LineItem      `json:"items" db:"-"`
	Subtotal          decimal.Decimal `json:"subtotal" db:"subtotal"`
	Shipping          decimal.Decimal `json:"shipping" db:"shipping"`
	Tax               decimal.Decimal `json:"tax" db:"tax"`
	Discount          decimal.Decimal `json:"discount" db:"discount"`
	Total             decimal.Decimal `json:"total" db:"total"`
	DiscountID        *uuid.UUID      `json:"discount_id,omitempty" db:"discount_id"`
	ShippingAddressID *uuid.UUID      `json:"shipping_address_id,omitempty" db:"shipping_address_id"`
	PaymentIntentID   *string         `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	PaymentStatus     PaymentStatus   `json:"payment_status" db:"payment_status"`
	Status            Status          `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}
