package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/muratkomurcu/october4mama/internal/domain/notify"
)

func paidEvent() notify.Event {
	return notify.Event{
		Kind:            notify.KindOrderPaid,
		OrderID:         "order-1",
		OrderNumber:     "OCT4-20260101-0001",
		OrderStatus:     "preparing",
		PaymentStatus:   "paid",
		ShippingAddress: "Moda Cd. 1, Kadıköy, İstanbul 34710",
		CouponCode:      "MAMA10",
		DiscountAmount:  decimal.RequireFromString("50"),
		ShippingCost:    decimal.Zero,
		Total:           decimal.RequireFromString("450"),
		Lines: []notify.Line{{
			Name:      "Kuzu Etli",
			Quantity:  5,
			UnitPrice: decimal.RequireFromString("100"),
			Subtotal:  decimal.RequireFromString("500"),
		}},
		Recipient: notify.Recipient{
			FullName: "Ayşe Yılmaz",
			Email:    "ayse@example.com",
			Phone:    "+905321234567",
		},
		OccurredAt: time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC),
	}
}

type fakeChannel struct {
	name string
	err  error

	mu     sync.Mutex
	events []notify.Event
	ctxErr error
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, e notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	c.ctxErr = ctx.Err()
	return c.err
}

type countingFailures struct {
	mu       sync.Mutex
	channels []string
}

func (f *countingFailures) NotificationFailed(_ context.Context, channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
}

func TestAsync_FansOut(t *testing.T) {
	ok := &fakeChannel{name: "ok"}
	broken := &fakeChannel{name: "broken", err: errors.New("smtp down")}
	failures := &countingFailures{}
	a := NewAsync([]Channel{ok, broken}, WithFailureRecorder(failures), WithTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	a.Dispatch(ctx, paidEvent())
	cancel()
	a.Close()

	require.Len(t, ok.events, 1)
	require.Len(t, broken.events, 1)
	assert.NoError(t, ok.ctxErr, "caller cancellation does not reach channels")
	assert.Equal(t, []string{"broken"}, failures.channels)

	a.Dispatch(context.Background(), paidEvent())
	assert.Len(t, ok.events, 1, "closed dispatcher drops events")
}

type fakeSender struct {
	msgs []*mail.Msg
	err  error
}

func (s *fakeSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	s.msgs = append(s.msgs, msgs...)
	return s.err
}

func TestEmail_Send(t *testing.T) {
	sender := &fakeSender{}
	m := &Email{client: sender, from: "info@october4mama.tr", support: "info@october4mama.tr"}

	require.NoError(t, m.Send(context.Background(), paidEvent()))
	require.Len(t, sender.msgs, 1)

	rcpt, err := sender.msgs[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ayse@example.com"}, rcpt)
	assert.Equal(t, []string{"Siparişinizi Aldık! #OCT4-20260101-0001"}, sender.msgs[0].GetGenHeader(mail.HeaderSubject))

	t.Run("NoAddress", func(t *testing.T) {
		e := paidEvent()
		e.Recipient.Email = ""
		require.NoError(t, m.Send(context.Background(), e))
		assert.Len(t, sender.msgs, 1)
	})
	t.Run("TransportError", func(t *testing.T) {
		failing := &Email{client: &fakeSender{err: errors.New("refused")}, from: "info@october4mama.tr"}
		require.Error(t, failing.Send(context.Background(), paidEvent()))
	})
}

func TestRenderEmail(t *testing.T) {
	e := paidEvent()
	body, err := renderEmail("order_paid.html", emailView{
		Event: e, Name: customerName(e.Recipient), Date: formatTime(e.OccurredAt), Support: "destek",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Ayşe Yılmaz")
	assert.Contains(t, body, "#OCT4-20260101-0001")
	assert.Contains(t, body, "500.00 TL")
	assert.Contains(t, body, "-50.00 TL")
	assert.Contains(t, body, "Ücretsiz")
	assert.Contains(t, body, "450.00 TL")
	assert.Contains(t, body, "01.01.2026 12:30")

	e.Kind = notify.KindStatusChanged
	e.OrderStatus = "shipped"
	e.TrackingNumber = "YK123"
	body, err = renderEmail("status_changed.html", emailView{
		Event: e, Name: customerName(notify.Recipient{}), Status: statusLabel(e.OrderStatus),
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Sipariş kargoya verildi")
	assert.Contains(t, body, "YK123")
	assert.Contains(t, body, "Değerli Müşterimiz")
}

func TestWhatsApp_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"phone":  r.URL.Query().Get("phone"),
			"apikey": r.URL.Query().Get("apikey"),
			"text":   r.URL.Query().Get("text"),
		}
		if got["apikey"] != "key" {
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	t.Cleanup(srv.Close)

	w := NewWhatsApp(WhatsAppConfig{BaseURL: srv.URL, Phone: "+905550000000", APIKey: "key"})
	require.NoError(t, w.Send(context.Background(), paidEvent()))
	assert.Equal(t, "+905550000000", got["phone"])
	assert.Contains(t, got["text"], "YENİ SİPARİŞ ÖDEME ALINDI")
	assert.Contains(t, got["text"], "Kuzu Etli x5 = 500.00 TL")
	assert.Contains(t, got["text"], "Toplam: 450.00 TL")

	bad := NewWhatsApp(WhatsAppConfig{BaseURL: srv.URL, Phone: "+905550000000", APIKey: "wrong"})
	require.Error(t, bad.Send(context.Background(), paidEvent()))
}

func TestWhatsAppText_StatusChanged(t *testing.T) {
	e := paidEvent()
	e.Kind = notify.KindStatusChanged
	e.OrderStatus = "cancelled"

	text := whatsAppText(e)
	assert.Contains(t, text, "SİPARİŞ DURUMU DEĞİŞTİ")
	assert.Contains(t, text, "Sipariş iptal edildi")
	assert.NotContains(t, text, "Kuzu Etli")
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return p.err
}

func TestAMQP_Send(t *testing.T) {
	pub := &fakePublisher{}
	a := &AMQP{ch: pub, exchange: DefaultExchange}

	require.NoError(t, a.Send(context.Background(), paidEvent()))
	assert.Equal(t, "orders.events", pub.exchange)
	assert.Equal(t, "order.paid", pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, "application/json", pub.msg.ContentType)

	var body map[string]any
	require.NoError(t, json.Unmarshal(pub.msg.Body, &body))
	assert.Equal(t, "OCT4-20260101-0001", body["orderNumber"])
	assert.Equal(t, "450.00", body["totalAmount"])
	assert.Equal(t, "MAMA10", body["couponCode"])
	assert.Equal(t, false, body["guest"])
	assert.Equal(t, "2026-01-01T09:30:00Z", body["occurredAt"])
	require.Len(t, body["items"], 1)

	pub.err = errors.New("channel closed")
	require.Error(t, a.Send(context.Background(), paidEvent()))
}
