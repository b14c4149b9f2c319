package order

import (
	"fmt"

	"distromart-be/internal/apperr"
	"distromart-be/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound         = apperr.NotFound("order_not_found", "order not found")
	ErrEmptyOrder            = apperr.Validation("empty_order", "order must contain at least one item")
	ErrInvalidQuantity       = apperr.Validation("invalid_quantity", "item quantity must be greater than zero")
	ErrInvalidInitialPayment = apperr.Validation("invalid_initial_payment", "initial payment must be between zero and the order total")
	ErrWalletNeedsFullAmount = apperr.Validation("credit_balance_full_payment", "credit balance orders are paid in full")
	ErrNotAClient            = apperr.Validation("not_a_client", "orders can only be placed for client accounts")
	ErrNotOwner              = apperr.Forbidden("only the client who owns the order may cancel it")
	ErrNotAssigned           = apperr.Forbidden("order is not assigned to you")
	ErrInvalidAssignee       = apperr.Validation("invalid_assignee", "orders can only be assigned to a sub admin")
	ErrOrderNumberExhausted  = apperr.New(apperr.KindConflict, "order_number_exhausted", "could not allocate a unique order number")
)

// TotalMismatchError rejects a draft whose declared total disagrees with the
// sum of its lines.
type TotalMismatchError struct {
	Declared decimal.Decimal
	Computed decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("order total %s does not match item total %s",
		e.Declared.StringFixed(ledger.MinorUnits),
		e.Computed.StringFixed(ledger.MinorUnits),
	)
}

func (e *TotalMismatchError) Kind() apperr.Kind { return apperr.KindValidation }
func (e *TotalMismatchError) Code() string      { return "total_mismatch" }

type UnknownProductError struct {
	ProductID uuid.UUID
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product %s does not exist", e.ProductID)
}

func (e *UnknownProductError) Kind() apperr.Kind { return apperr.KindValidation }
func (e *UnknownProductError) Code() string      { return "unknown_product" }

type InactiveProductError struct {
	ProductID uuid.UUID
	Name      string
}

func (e *InactiveProductError) Error() string {
	return fmt.Sprintf("product %s is no longer available", e.Name)
}

func (e *InactiveProductError) Kind() apperr.Kind { return apperr.KindValidation }
func (e *InactiveProductError) Code() string      { return "product_inactive" }

// PriceChangedError rejects a line whose quoted unit price is not the current
// catalog price.
type PriceChangedError struct {
	ProductID uuid.UUID
	Quoted    decimal.Decimal
	Current   decimal.Decimal
}

func (e *PriceChangedError) Error() string {
	return fmt.Sprintf("price of product %s changed from %s to %s",
		e.ProductID,
		e.Quoted.StringFixed(ledger.MinorUnits),
		e.Current.StringFixed(ledger.MinorUnits),
	)
}

func (e *PriceChangedError) Kind() apperr.Kind { return apperr.KindValidation }
func (e *PriceChangedError) Code() string      { return "price_changed" }

type NotCancellableError struct {
	Status Status
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("order cannot be cancelled in status %s", e.Status)
}

func (e *NotCancellableError) Kind() apperr.Kind { return apperr.KindValidation }
func (e *NotCancellableError) Code() string      { return "order_not_cancellable" }

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order status cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Kind() apperr.Kind { return apperr.KindValidation }
func (e *TransitionError) Code() string      { return "invalid_status_transition" }
