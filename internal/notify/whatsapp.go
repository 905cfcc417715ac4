package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/muratkomurcu/october4mama/internal/domain/notify"
)

// CallMeBotURL is the WhatsApp relay endpoint.
const CallMeBotURL = "https://api.callmebot.com/whatsapp.php"

// WhatsAppConfig configures the operator WhatsApp channel.
type WhatsAppConfig struct {
	BaseURL string
	Phone   string
	APIKey  string
	Timeout time.Duration
}

// WhatsApp messages the shop operator through CallMeBot.
type WhatsApp struct {
	cfg  WhatsAppConfig
	http *http.Client
}

func NewWhatsApp(cfg WhatsAppConfig) *WhatsApp {
	if cfg.BaseURL == "" {
		cfg.BaseURL = CallMeBotURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WhatsApp{
		cfg: cfg,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
	}
}

func (*WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) Send(ctx context.Context, e notify.Event) error {
	q := url.Values{}
	q.Set("phone", w.cfg.Phone)
	q.Set("text", whatsAppText(e))
	q.Set("apikey", w.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.BaseURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "call relay")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("relay status %d", resp.StatusCode)
	}
	return nil
}

func whatsAppText(e notify.Event) string {
	var b strings.Builder
	switch e.Kind {
	case notify.KindOrderPaid:
		b.WriteString("🛒 *YENİ SİPARİŞ ÖDEME ALINDI!*\n\n")
		fmt.Fprintf(&b, "📦 Sipariş No: %s\n", e.OrderNumber)
		fmt.Fprintf(&b, "👤 Müşteri: %s\n", orDefault(e.Recipient.FullName, "Misafir"))
		fmt.Fprintf(&b, "📧 E-posta: %s\n", e.Recipient.Email)
		fmt.Fprintf(&b, "📱 Telefon: %s\n", e.Recipient.Phone)
		fmt.Fprintf(&b, "📍 Adres: %s\n\n", orDefault(e.ShippingAddress, "Belirtilmemiş"))
		b.WriteString("📝 Ürünler:\n")
		for _, l := range e.Lines {
			fmt.Fprintf(&b, "  - %s x%d = %s TL\n", l.Name, l.Quantity, l.Subtotal.StringFixed(2))
		}
		if e.CouponCode != "" {
			fmt.Fprintf(&b, "\n🏷 Kupon: %s (-%s TL)", e.CouponCode, e.DiscountAmount.StringFixed(2))
		}
		fmt.Fprintf(&b, "\n💰 Toplam: %s TL\n", e.Total.StringFixed(2))
	default:
		b.WriteString("📋 *SİPARİŞ DURUMU DEĞİŞTİ*\n\n")
		fmt.Fprintf(&b, "📦 Sipariş No: %s\n", e.OrderNumber)
		b.WriteString(statusLabel(e.OrderStatus) + "\n")
		if e.TrackingNumber != "" {
			fmt.Fprintf(&b, "🚚 Takip No: %s\n", e.TrackingNumber)
		}
	}
	fmt.Fprintf(&b, "⏰ Tarih: %s", formatTime(e.OccurredAt))
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
