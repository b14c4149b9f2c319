package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxDebit  TxType = "debit"
	TxCredit TxType = "credit"
)

type Balance struct {
	UserID     uuid.UUID       `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	UsedCredit decimal.Decimal `json:"used_credit"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Reference ties a wallet movement to the entity that caused it.
type Reference struct {
	Type        string
	ID          uuid.UUID
	Description string
}

type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TxType          `json:"type"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   *uuid.UUID      `json:"reference_id,omitempty"`
	Description   string          `json:"description"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CreatedAt     time.Time       `json:"created_at"`
}
