package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks money, independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentPaid || p == PaymentCancelled
}

// CanTransitionTo reports whether the payment state machine allows p → next.
// Only pending orders move, and only forward.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return p == PaymentPending && (next == PaymentPaid || next == PaymentCancelled)
}

// Status is the fulfilment status of an order.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var statusTransitions = map[Status][]Status{
	StatusPreparing: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPreparing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the fulfilment state machine allows s → next.
// Delivered and cancelled are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const PaymentCreditCard PaymentMethod = "credit_card"

// Guest is the contact snapshot of an order placed without an account.
type Guest struct {
	FullName string
	Email    string
	Phone    string
}

// Item is a line of the order, priced from the catalog at creation and never
// re-priced afterwards.
type Item struct {
	ProductID string
	Name      string
	Image     string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// PaymentRef holds the gateway correlation identifiers.
type PaymentRef struct {
	Token          string
	ConversationID string
	PaymentID      string
	TransactionID  string
}

// Order is owned by exactly one of a registered user (UserID) or a guest.
type Order struct {
	ID              string
	Number          string
	UserID          string
	Guest           *Guest
	Items           []Item
	ShippingAddress string
	ProductTotal    decimal.Decimal
	ShippingCost    decimal.Decimal
	DiscountAmount  decimal.Decimal
	Total           decimal.Decimal
	CouponCode      string
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	Status          Status
	Payment         PaymentRef
	TrackingNumber  string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool {
	return o.Guest != nil
}

// CheckOwner enforces that exactly one owner kind is set.
func (o *Order) CheckOwner() error {
	if (o.UserID == "") == (o.Guest == nil) {
		return ErrOwnerConflict
	}
	return nil
}

// StockWasTaken reports whether settlement decremented catalog stock for
// this order, which is what a cancellation has to give back.
func (o *Order) StockWasTaken() bool {
	return o.PaymentStatus == PaymentPaid
}

// Filter selects orders for listing.
type Filter struct {
	// UserID restricts the listing to one member. Empty means everyone.
	UserID string
	// Pending selects the abandoned-checkout view. When false, pending
	// orders are excluded.
	Pending bool
}

// StatusChange is a conditional fulfilment update: it applies only while the
// stored status still equals From.
type StatusChange struct {
	From           Status
	To             Status
	TrackingNumber *string
	// Restock returns every line's quantity to the catalog in the same
	// atomic unit as the status write.
	Restock bool
}

// Settlement is the result of a pending → paid attempt.
type Settlement struct {
	// Settled is false when the order was no longer pending; nothing was
	// written in that case.
	Settled bool
	Order   *Order
	// CouponCounted is false when the coupon was already at its limit when
	// the payment arrived.
	CouponCounted bool
	// Oversold lists products whose stock went below zero.
	Oversold []string
}

// Repository is the order store. Settle, CancelPayment and UpdateStatus are
// compare-and-swap operations; concurrent callers cannot both win.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	GetByPaymentToken(ctx context.Context, token string) (*Order, error)
	AttachPaymentToken(ctx context.Context, id, token string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]Order, error)
	// HasPurchased reports whether userID has a paid order containing
	// productID.
	HasPurchased(ctx context.Context, userID, productID string) (bool, error)

	// Settle marks a pending order paid, decrements stock for every line and
	// counts the coupon use, all in one atomic unit.
	Settle(ctx context.Context, id string, ref PaymentRef) (*Settlement, error)
	// CancelPayment marks a pending order's payment cancelled. It reports
	// false when the order was not pending.
	CancelPayment(ctx context.Context, id string) (bool, error)
	// UpdateStatus applies a StatusChange. It reports false when the stored
	// status no longer matched ch.From.
	UpdateStatus(ctx context.Context, id string, ch StatusChange) (bool, error)
	// DeletePendingBefore removes orders still pending that were created
	// before cutoff.
	DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
