package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrEmptyItems        = errors.New("items required")
	ErrOwnerConflict     = errors.New("order must belong to either a user or a guest")
	ErrGuestContact      = errors.New("guest orders need a name, email and phone")
	ErrShippingAddress   = errors.New("shipping address required")
	ErrDuplicateNumber   = errors.New("order number already taken")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrConcurrentUpdate  = errors.New("order was modified concurrently")
	ErrNoPaymentToken    = errors.New("order has no payment session")
	// ErrNothingToCharge rejects orders whose discount covers everything;
	// the gateway cannot take a zero payment.
	ErrNothingToCharge = errors.New("order total must be greater than zero, the coupon covers the whole order")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError names the line that cannot be fulfilled.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s, remaining: %d", e.Name, e.Remaining)
}

// TransitionError reports a rejected state change.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
