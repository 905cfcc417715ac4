// Package notify delivers order events to customers and operators.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/notify"
)

// DefaultTimeout bounds a single channel delivery.
const DefaultTimeout = 15 * time.Second

// Channel is one delivery route for events.
type Channel interface {
	Name() string
	Send(ctx context.Context, e notify.Event) error
}

// FailureRecorder counts failed deliveries.
type FailureRecorder interface {
	NotificationFailed(ctx context.Context, channel string)
}

var _ notify.Dispatcher = (*Async)(nil)

// Async sends every event to all channels in the background. The caller's
// cancellation does not abort deliveries, the per-channel timeout does.
type Async struct {
	channels []Channel
	timeout  time.Duration
	failures FailureRecorder

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// Option configures Async.
type Option func(*Async)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Async) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithFailureRecorder reports failed deliveries to r.
func WithFailureRecorder(r FailureRecorder) Option {
	return func(a *Async) { a.failures = r }
}

// NewAsync returns a dispatcher over channels.
func NewAsync(channels []Channel, opts ...Option) *Async {
	a := &Async{
		channels: channels,
		timeout:  DefaultTimeout,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Dispatch implements notify.Dispatcher.
func (a *Async) Dispatch(ctx context.Context, e notify.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		zctx.From(ctx).Warn("Notification dropped after shutdown",
			zap.String("kind", string(e.Kind)),
			zap.String("order_number", e.OrderNumber),
		)
		return
	}

	ctx = context.WithoutCancel(ctx)
	for _, ch := range a.channels {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.send(ctx, ch, e)
		}()
	}
}

func (a *Async) send(ctx context.Context, ch Channel, e notify.Event) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	lg := zctx.From(ctx).With(
		zap.String("channel", ch.Name()),
		zap.String("kind", string(e.Kind)),
		zap.String("order_number", e.OrderNumber),
	)
	if err := ch.Send(ctx, e); err != nil {
		lg.Warn("Notification failed", zap.Error(err))
		if a.failures != nil {
			a.failures.NotificationFailed(ctx, ch.Name())
		}
		return
	}
	lg.Debug("Notification sent")
}

// Close stops accepting events and waits for in-flight deliveries.
func (a *Async) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.wg.Wait()
}
