package cart

import (
	"time"

	"github.com/gofrs/uuid"
)

// Item is one (user, variant) cart row. Uniqueness is enforced by the
// composite primary key; quantity conflicts are resolved by summing.
type Item struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	VariantID uuid.UUID `json:"variant_id" db:"variant_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
