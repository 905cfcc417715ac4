package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/notify"
)

// Confirmation is the outcome of reconciling an order with the gateway.
type Confirmation struct {
	Order *Order
	// Paid is true when the order is paid after the call, whether this call
	// settled it or an earlier one did.
	Paid bool
	// AlreadySettled is true when another confirmation got there first.
	AlreadySettled bool
	// FailureReason is the gateway's message for a failed checkout.
	FailureReason string
}

// ConfirmPayment asks the gateway for the outcome of the checkout identified
// by token and settles or cancels the order accordingly. Concurrent calls for
// one token share a single gateway round-trip, and the store's compare-and-set
// keeps repeated calls from decrementing stock twice.
func (s *Service) ConfirmPayment(ctx context.Context, token string) (*Confirmation, error) {
	if token == "" {
		return nil, ErrNoPaymentToken
	}
	v, err, shared := s.confirmations.Do(token, func() (any, error) {
		// Joined callers must not inherit the first caller's cancellation.
		return s.confirm(context.WithoutCancel(ctx), token)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zctx.From(ctx).Debug("Joined in-flight payment confirmation", zap.String("token", token))
	}
	return v.(*Confirmation), nil
}

func (s *Service) confirm(ctx context.Context, token string) (*Confirmation, error) {
	lg := zctx.From(ctx).With(zap.String("token", token))

	o, err := s.orders.GetByPaymentToken(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "find order by token")
	}
	lg = lg.With(zap.String("order_id", o.ID), zap.String("order_number", o.Number))

	if o.PaymentStatus == PaymentPaid {
		return &Confirmation{Order: o, Paid: true, AlreadySettled: true}, nil
	}

	res, err := s.gateway.Retrieve(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "retrieve payment")
	}

	if !res.Succeeded() {
		if _, err := s.orders.CancelPayment(ctx, o.ID); err != nil {
			return nil, errors.Wrap(err, "cancel payment")
		}
		s.metrics.PaymentFailed(ctx)
		lg.Info("Payment failed", zap.String("reason", res.ErrorMessage))

		current, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, errors.Wrap(err, "reload order")
		}
		return &Confirmation{
			Order:         current,
			Paid:          current.PaymentStatus == PaymentPaid,
			FailureReason: res.ErrorMessage,
		}, nil
	}

	st, err := s.orders.Settle(ctx, o.ID, PaymentRef{
		Token:          token,
		ConversationID: res.ConversationID,
		PaymentID:      res.PaymentID,
		TransactionID:  res.PaymentID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "settle order")
	}
	if !st.Settled {
		if st.Order.PaymentStatus != PaymentPaid {
			lg.Warn("Gateway captured payment for an order that is no longer payable",
				zap.String("payment_status", string(st.Order.PaymentStatus)),
				zap.String("payment_id", res.PaymentID),
			)
		}
		return &Confirmation{
			Order:          st.Order,
			Paid:           st.Order.PaymentStatus == PaymentPaid,
			AlreadySettled: true,
		}, nil
	}

	s.afterSettle(ctx, st)
	return &Confirmation{Order: st.Order, Paid: true}, nil
}

// afterSettle reports a fresh settlement. Nothing here can fail the payment.
func (s *Service) afterSettle(ctx context.Context, st *Settlement) {
	lg := zctx.From(ctx).With(zap.String("order_id", st.Order.ID), zap.String("order_number", st.Order.Number))
	if len(st.Oversold) > 0 {
		lg.Warn("Stock went negative on settlement", zap.Strings("products", st.Oversold))
	}
	if st.Order.CouponCode != "" && !st.CouponCounted {
		lg.Warn("Coupon was at its usage limit when payment settled", zap.String("coupon", st.Order.CouponCode))
	}
	s.metrics.PaymentSettled(ctx, st.Order.Total)
	lg.Info("Payment settled", zap.Stringer("total", st.Order.Total))

	s.notifier.Dispatch(ctx, s.event(ctx, notify.KindOrderPaid, st.Order, ""))
}

// VerifyPayment re-runs confirmation for an order by id. It is the manual
// recovery path for lost gateway callbacks.
func (s *Service) VerifyPayment(ctx context.Context, orderID string) (*Confirmation, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if o.Payment.Token == "" {
		return nil, ErrNoPaymentToken
	}
	return s.ConfirmPayment(ctx, o.Payment.Token)
}
