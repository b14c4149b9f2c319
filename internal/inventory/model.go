package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uuid.UUID       `json:"id"`
	BrandID       *uuid.UUID      `json:"brand_id,omitempty"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
}

// Log is one immutable stock movement.
type Log struct {
	ID               uuid.UUID  `json:"id"`
	ProductID        uuid.UUID  `json:"product_id"`
	PreviousQuantity int        `json:"previous_quantity"`
	NewQuantity      int        `json:"new_quantity"`
	QuantityChange   int        `json:"quantity_change"`
	Reason           string     `json:"reason"`
	ActorID          *uuid.UUID `json:"actor_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Adjustment struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Delta     int       `json:"delta" validate:"required,ne=0"`
	Reason    string    `json:"reason" validate:"required,max=500"`
}
