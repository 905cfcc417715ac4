package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/muratkomurcu/october4mama/internal/domain/notify"
)

// DefaultExchange is the topic exchange order events are published to.
const DefaultExchange = "orders.events"

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQP publishes events to a durable topic exchange, keyed by event kind.
type AMQP struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       publisher
	exchange string
}

// DialAMQP connects to url and declares exchange.
func DialAMQP(url, exchange string) (*AMQP, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}
	return &AMQP{conn: conn, ch: ch, exchange: exchange}, nil
}

func (*AMQP) Name() string { return "amqp" }

func (a *AMQP) Send(ctx context.Context, e notify.Event) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.OrderID + ":" + string(e.Kind) + ":" + e.OrderStatus,
		Timestamp:    e.OccurredAt,
		Type:         string(e.Kind),
		Body:         encodeEvent(e),
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ch.PublishWithContext(ctx, a.exchange, string(e.Kind), false, false, msg); err != nil {
		return errors.Wrap(err, "publish")
	}
	return nil
}

// Close closes the broker connection.
func (a *AMQP) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

func encodeEvent(ev notify.Event) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(ev.Kind)) })
		e.Field("orderId", func(e *jx.Encoder) { e.Str(ev.OrderID) })
		e.Field("orderNumber", func(e *jx.Encoder) { e.Str(ev.OrderNumber) })
		e.Field("orderStatus", func(e *jx.Encoder) { e.Str(ev.OrderStatus) })
		e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(ev.PaymentStatus) })
		if ev.PreviousStatus != "" {
			e.Field("previousStatus", func(e *jx.Encoder) { e.Str(ev.PreviousStatus) })
		}
		if ev.TrackingNumber != "" {
			e.Field("trackingNumber", func(e *jx.Encoder) { e.Str(ev.TrackingNumber) })
		}
		if ev.CouponCode != "" {
			e.Field("couponCode", func(e *jx.Encoder) { e.Str(ev.CouponCode) })
		}
		e.Field("discountAmount", func(e *jx.Encoder) { e.Str(ev.DiscountAmount.StringFixed(2)) })
		e.Field("shippingCost", func(e *jx.Encoder) { e.Str(ev.ShippingCost.StringFixed(2)) })
		e.Field("totalAmount", func(e *jx.Encoder) { e.Str(ev.Total.StringFixed(2)) })
		e.Field("guest", func(e *jx.Encoder) { e.Bool(ev.Recipient.Guest) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range ev.Lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("unitPrice", func(e *jx.Encoder) { e.Str(l.UnitPrice.StringFixed(2)) })
						e.Field("subtotal", func(e *jx.Encoder) { e.Str(l.Subtotal.StringFixed(2)) })
					})
				}
			})
		})
		e.Field("occurredAt", func(e *jx.Encoder) { e.Str(ev.OccurredAt.UTC().Format(time.RFC3339)) })
	})
	return e.Bytes()
}
