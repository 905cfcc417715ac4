// Package metrics records order lifecycle counters through OpenTelemetry.
package metrics

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/muratkomurcu/october4mama/internal/domain/order"
	"github.com/muratkomurcu/october4mama/internal/notify"
)

const meterName = "github.com/muratkomurcu/october4mama"

var (
	_ order.Recorder         = (*Metrics)(nil)
	_ notify.FailureRecorder = (*Metrics)(nil)
)

// Metrics holds the lifecycle instruments.
type Metrics struct {
	ordersCreated       metric.Int64Counter
	paymentsSettled     metric.Int64Counter
	revenue             metric.Float64Counter
	paymentsFailed      metric.Int64Counter
	restockedUnits      metric.Int64Counter
	staleOrdersSwept    metric.Int64Counter
	notificationsFailed metric.Int64Counter
}

// New creates the instruments on mp.
func New(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	var (
		m   Metrics
		err error
	)
	if m.ordersCreated, err = meter.Int64Counter("oct4.orders.created",
		metric.WithDescription("Pending orders created at checkout")); err != nil {
		return nil, errors.Wrap(err, "orders created")
	}
	if m.paymentsSettled, err = meter.Int64Counter("oct4.payments.settled",
		metric.WithDescription("Orders moved to paid")); err != nil {
		return nil, errors.Wrap(err, "payments settled")
	}
	if m.revenue, err = meter.Float64Counter("oct4.payments.revenue",
		metric.WithDescription("Settled order totals"), metric.WithUnit("TRY")); err != nil {
		return nil, errors.Wrap(err, "revenue")
	}
	if m.paymentsFailed, err = meter.Int64Counter("oct4.payments.failed",
		metric.WithDescription("Checkouts reported as failed by the gateway")); err != nil {
		return nil, errors.Wrap(err, "payments failed")
	}
	if m.restockedUnits, err = meter.Int64Counter("oct4.stock.restocked",
		metric.WithDescription("Units returned to stock by cancellations"), metric.WithUnit("{unit}")); err != nil {
		return nil, errors.Wrap(err, "restocked units")
	}
	if m.staleOrdersSwept, err = meter.Int64Counter("oct4.orders.swept",
		metric.WithDescription("Stale pending orders deleted")); err != nil {
		return nil, errors.Wrap(err, "orders swept")
	}
	if m.notificationsFailed, err = meter.Int64Counter("oct4.notifications.failed",
		metric.WithDescription("Failed notification deliveries")); err != nil {
		return nil, errors.Wrap(err, "notifications failed")
	}
	return &m, nil
}

func (m *Metrics) OrderCreated(ctx context.Context, guest bool) {
	m.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.Bool("guest", guest)))
}

func (m *Metrics) PaymentSettled(ctx context.Context, total decimal.Decimal) {
	m.paymentsSettled.Add(ctx, 1)
	m.revenue.Add(ctx, total.InexactFloat64())
}

func (m *Metrics) PaymentFailed(ctx context.Context) {
	m.paymentsFailed.Add(ctx, 1)
}

func (m *Metrics) OrderRestocked(ctx context.Context, units int) {
	m.restockedUnits.Add(ctx, int64(units))
}

func (m *Metrics) PendingSwept(ctx context.Context, n int64) {
	if n > 0 {
		m.staleOrdersSwept.Add(ctx, n)
	}
}

func (m *Metrics) NotificationFailed(ctx context.Context, channel string) {
	m.notificationsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}
