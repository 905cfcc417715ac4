package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/notify"
)

// Get returns an order to its owner or an admin. Guest orders are only
// reachable by admins here; guests use Track.
func (s *Service) Get(ctx context.Context, id string, caller *auth.Identity) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if err := authorize(o, caller); err != nil {
		return nil, err
	}
	return o, nil
}

// PaymentStatus returns the order with the given number so the storefront can
// poll its payment state.
func (s *Service) PaymentStatus(ctx context.Context, number string, caller *auth.Identity) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if err := authorize(o, caller); err != nil {
		return nil, err
	}
	return o, nil
}

func authorize(o *Order, caller *auth.Identity) error {
	if caller == nil {
		return auth.ErrUnauthenticated
	}
	if caller.IsAdmin() || caller.Owns(o.UserID) {
		return nil
	}
	return auth.ErrForbidden
}

// ListMine returns a member's orders, newest first, without abandoned
// checkouts.
func (s *Service) ListMine(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.List(ctx, Filter{UserID: userID})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListAll returns every order that got past payment, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx, Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListPending returns open checkouts after purging the stale ones.
func (s *Service) ListPending(ctx context.Context) ([]Order, error) {
	if _, err := s.SweepStalePending(ctx); err != nil {
		zctx.From(ctx).Warn("Sweep before pending listing failed", zap.Error(err))
	}
	orders, err := s.orders.List(ctx, Filter{Pending: true})
	if err != nil {
		return nil, errors.Wrap(err, "list pending orders")
	}
	return orders, nil
}

// Track finds an order by number for anyone who knows its contact email.
// A mismatch is indistinguishable from a missing order.
func (s *Service) Track(ctx context.Context, number, email string) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	rcpt := s.recipient(ctx, o)
	if rcpt.Email == "" || !strings.EqualFold(rcpt.Email, strings.TrimSpace(email)) {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) recipient(ctx context.Context, o *Order) notify.Recipient {
	if o.Guest != nil {
		return notify.Recipient{
			FullName: o.Guest.FullName,
			Email:    o.Guest.Email,
			Phone:    o.Guest.Phone,
			Guest:    true,
		}
	}
	if s.users == nil {
		return notify.Recipient{}
	}
	u, err := s.users.GetByID(ctx, o.UserID)
	if err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			zctx.From(ctx).Warn("Failed to resolve order owner", zap.String("user_id", o.UserID), zap.Error(err))
		}
		return notify.Recipient{}
	}
	return notify.Recipient{FullName: u.FullName, Email: u.Email, Phone: u.Phone}
}

func (s *Service) event(ctx context.Context, kind notify.Kind, o *Order, previous string) notify.Event {
	lines := make([]notify.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = notify.Line{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice, Subtotal: it.Subtotal}
	}
	return notify.Event{
		Kind:            kind,
		OrderID:         o.ID,
		OrderNumber:     o.Number,
		OrderStatus:     string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		PreviousStatus:  previous,
		TrackingNumber:  o.TrackingNumber,
		ShippingAddress: o.ShippingAddress,
		CouponCode:      o.CouponCode,
		DiscountAmount:  o.DiscountAmount,
		ShippingCost:    o.ShippingCost,
		Total:           o.Total,
		Lines:           lines,
		Recipient:       s.recipient(ctx, o),
		OccurredAt:      s.now(),
	}
}
