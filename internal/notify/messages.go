package notify

import (
	"time"

	"github.com/muratkomurcu/october4mama/internal/domain/notify"
)

var istanbul = loadLocation("Europe/Istanbul")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("TRT", 3*60*60)
	}
	return loc
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.In(istanbul).Format("02.01.2006 15:04")
}

// statusLabel renders an order status for customers and operators.
func statusLabel(status string) string {
	switch status {
	case "preparing":
		return "Sipariş hazırlanıyor"
	case "shipped":
		return "Sipariş kargoya verildi"
	case "delivered":
		return "Sipariş teslim edildi"
	case "cancelled":
		return "Sipariş iptal edildi"
	default:
		return "Yeni durum: " + status
	}
}

func customerName(r notify.Recipient) string {
	if r.FullName == "" {
		return "Değerli Müşterimiz"
	}
	return r.FullName
}
