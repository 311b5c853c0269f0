package discount

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	TypePercentage DiscountType = "PERCENTAGE"
	TypeFixed      DiscountType = "FIXED"
)

type Discount struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	Code      string           `json:"code" db:"code"`
	Type      DiscountType     `json:"type" db:"type"`
	Value     decimal.Decimal  `json:"value" db:"value"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty" db:"min_amount"`
	MaxUses   *int             `json:"max_uses,omitempty" db:"max_uses"`
	UsedCount int              `json:"used_count" db:"used_count"`
	StartDate *time.Time       `json:"start_date,omitempty" db:"start_date"`
	EndDate   *time.Time       `json:"end_date,omitempty" db:"end_date"`
	Active    bool             `json:"active" db:"active"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
