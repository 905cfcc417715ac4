// Package notify defines the best-effort side channel the order lifecycle
// reports to. Delivery failures never reach the caller.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the type of an order event.
type Kind string

const (
	KindOrderPaid     Kind = "order.paid"
	KindStatusChanged Kind = "order.status_changed"
)

// Line is an order line as rendered in a message.
type Line struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Recipient is the customer contact an event is about.
type Recipient struct {
	FullName string
	Email    string
	Phone    string
	Guest    bool
}

// Event is a snapshot of an order at the moment something happened to it.
type Event struct {
	Kind            Kind
	OrderID         string
	OrderNumber     string
	OrderStatus     string
	PaymentStatus   string
	PreviousStatus  string
	TrackingNumber  string
	ShippingAddress string
	CouponCode      string
	DiscountAmount  decimal.Decimal
	ShippingCost    decimal.Decimal
	Total           decimal.Decimal
	Lines           []Line
	Recipient       Recipient
	OccurredAt      time.Time
}

// Dispatcher fans an event out to the configured channels. Implementations
// must return immediately and only log failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, e Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Dispatch(context.Context, Event) {}
