package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/notify"
)

// StatusUpdate is an administrative change to an order. Nil fields are left
// unchanged.
type StatusUpdate struct {
	Status         *Status
	PaymentStatus  *PaymentStatus
	TrackingNumber *string
}

// UpdateOrderStatus applies an admin update. Cancelling a paid order returns
// its stock exactly once; a concurrent update that changed the order first
// yields ErrConcurrentUpdate.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, upd StatusUpdate) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	if upd.Status != nil && !upd.Status.Valid() {
		return nil, &TransitionError{From: string(o.Status), To: string(*upd.Status)}
	}
	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		return nil, &TransitionError{From: string(o.PaymentStatus), To: string(*upd.PaymentStatus)}
	}

	if upd.PaymentStatus != nil && *upd.PaymentStatus != o.PaymentStatus {
		if o, err = s.changePayment(ctx, o, *upd.PaymentStatus); err != nil {
			return nil, err
		}
	}

	if upd.Status != nil && *upd.Status != o.Status {
		return s.changeStatus(ctx, o, *upd.Status, upd.TrackingNumber)
	}
	if upd.TrackingNumber != nil && *upd.TrackingNumber != o.TrackingNumber {
		ok, err := s.orders.UpdateStatus(ctx, o.ID, StatusChange{From: o.Status, To: o.Status, TrackingNumber: upd.TrackingNumber})
		if err != nil {
			return nil, errors.Wrap(err, "update tracking number")
		}
		if !ok {
			return nil, ErrConcurrentUpdate
		}
		return s.reload(ctx, o.ID)
	}
	return o, nil
}

func (s *Service) changePayment(ctx context.Context, o *Order, to PaymentStatus) (*Order, error) {
	if !o.PaymentStatus.CanTransitionTo(to) {
		return nil, &TransitionError{From: string(o.PaymentStatus), To: string(to)}
	}

	switch to {
	case PaymentPaid:
		st, err := s.orders.Settle(ctx, o.ID, o.Payment)
		if err != nil {
			return nil, errors.Wrap(err, "settle order")
		}
		if !st.Settled {
			return nil, ErrConcurrentUpdate
		}
		zctx.From(ctx).Info("Order marked paid manually", zap.String("order_id", o.ID))
		s.afterSettle(ctx, st)
		return st.Order, nil
	default:
		ok, err := s.orders.CancelPayment(ctx, o.ID)
		if err != nil {
			return nil, errors.Wrap(err, "cancel payment")
		}
		if !ok {
			return nil, ErrConcurrentUpdate
		}
		return s.reload(ctx, o.ID)
	}
}

func (s *Service) changeStatus(ctx context.Context, o *Order, to Status, tracking *string) (*Order, error) {
	if !o.Status.CanTransitionTo(to) {
		return nil, &TransitionError{From: string(o.Status), To: string(to)}
	}

	// A cancelled order whose payment is still open must not be settled by
	// a late callback.
	if to == StatusCancelled && o.PaymentStatus == PaymentPending {
		if _, err := s.orders.CancelPayment(ctx, o.ID); err != nil {
			return nil, errors.Wrap(err, "cancel payment")
		}
		current, err := s.reload(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if current.PaymentStatus == PaymentPaid {
			// Settled in between; the order now holds stock.
			o = current
		}
	}

	ch := StatusChange{
		From:           o.Status,
		To:             to,
		TrackingNumber: tracking,
		Restock:        to == StatusCancelled && o.StockWasTaken(),
	}
	ok, err := s.orders.UpdateStatus(ctx, o.ID, ch)
	if err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	if !ok {
		return nil, ErrConcurrentUpdate
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))
	if ch.Restock {
		units := 0
		for _, it := range o.Items {
			units += it.Quantity
		}
		s.metrics.OrderRestocked(ctx, units)
		lg.Info("Order cancelled, stock returned", zap.Int("units", units))
	}
	lg.Info("Order status changed", zap.String("from", string(ch.From)), zap.String("to", string(to)))

	updated, err := s.reload(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Dispatch(ctx, s.event(ctx, notify.KindStatusChanged, updated, string(ch.From)))
	return updated, nil
}

func (s *Service) reload(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}
	return o, nil
}

// SweepStalePending deletes orders that are still awaiting payment after
// the configured age.
func (s *Service) SweepStalePending(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.StaleAfter)
	n, err := s.orders.DeletePendingBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "delete stale orders")
	}
	if n > 0 {
		s.metrics.PendingSwept(ctx, n)
		zctx.From(ctx).Info("Swept stale pending orders",
			zap.Int64("deleted", n),
			zap.Time("cutoff", cutoff),
		)
	}
	return n, nil
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepStalePending(ctx); err != nil {
				zctx.From(ctx).Error("Stale order sweep failed", zap.Error(err))
			}
		}
	}
}
