// Package payment defines the port to the hosted-checkout payment gateway.
package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/muratkomurcu/october4mama/internal/domain/pricing"
)

// ErrUnavailable wraps transport failures, gateway 5xx responses and an
// open circuit breaker. Customers see "payment system unavailable".
var ErrUnavailable = errors.New("payment system unavailable")

// RejectedError is a well-formed failure response from the gateway.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment rejected: %s", e.Message)
	}
	return fmt.Sprintf("payment rejected (%s): %s", e.Code, e.Message)
}

// Buyer is the customer as the gateway needs it.
type Buyer struct {
	ID          string
	Name        string
	Surname     string
	Email       string
	Phone       string
	IP          string
	ContactName string
	Address     string
	City        string
	ZipCode     string
}

// CheckoutRequest starts a hosted checkout for one order.
type CheckoutRequest struct {
	ConversationID string
	BasketID       string
	Price          decimal.Decimal
	CallbackURL    string
	Installments   []int
	Buyer          Buyer
	Items          []pricing.BasketItem
}

// CheckoutSession is what the storefront needs to render the payment form.
type CheckoutSession struct {
	Token          string
	FormContent    string
	PaymentPageURL string
}

// Status is the gateway's verdict on a checkout.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Result is the outcome of a checkout as reported by the gateway.
type Result struct {
	Token          string
	Status         Status
	PaymentID      string
	ConversationID string
	BasketID       string
	PaidPrice      decimal.Decimal
	ErrorMessage   string
}

// Succeeded reports whether money was captured.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Gateway is the payment provider.
type Gateway interface {
	Initialize(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	Retrieve(ctx context.Context, token string) (*Result, error)
}
