package metrics

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]float64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]float64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			}
		}
	}
	return out
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := New(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	ctx := context.Background()
	m.OrderCreated(ctx, false)
	m.OrderCreated(ctx, true)
	m.PaymentSettled(ctx, decimal.RequireFromString("450.50"))
	m.PaymentFailed(ctx)
	m.OrderRestocked(ctx, 5)
	m.PendingSwept(ctx, 0)
	m.PendingSwept(ctx, 3)
	m.NotificationFailed(ctx, "email")

	got := collect(t, reader)
	assert.Equal(t, 2.0, got["oct4.orders.created"])
	assert.Equal(t, 1.0, got["oct4.payments.settled"])
	assert.InDelta(t, 450.5, got["oct4.payments.revenue"], 0.001)
	assert.Equal(t, 1.0, got["oct4.payments.failed"])
	assert.Equal(t, 5.0, got["oct4.stock.restocked"])
	assert.Equal(t, 3.0, got["oct4.orders.swept"])
	assert.Equal(t, 1.0, got["oct4.notifications.failed"])
}
