// Package pricing turns catalog-priced lines and an optional coupon into the
// amounts an order is charged.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
)

// Defaults used by the storefront since launch.
var (
	DefaultFreeShippingThreshold = decimal.NewFromInt(500)
	DefaultShippingFee           = decimal.RequireFromString("29.99")
)

// ErrEmptyCart is returned when there is nothing to price.
var ErrEmptyCart = errors.New("no items to price")

// Line is one product line priced at the catalog unit price.
type Line struct {
	ProductID string
	Name      string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal is UnitPrice × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Quote is the full price breakdown of a set of lines. All amounts are
// rounded to two decimals.
type Quote struct {
	ProductTotal   decimal.Decimal
	EligibleTotal  decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingCost   decimal.Decimal
	Total          decimal.Decimal
}

// Engine prices lines. The zero value is not usable; use New.
type Engine struct {
	freeShippingThreshold decimal.Decimal
	shippingFee           decimal.Decimal
}

// Option configures an Engine.
type Option func(*Engine)

// WithFreeShippingThreshold sets the product total from which shipping is free.
func WithFreeShippingThreshold(v decimal.Decimal) Option {
	return func(e *Engine) { e.freeShippingThreshold = v }
}

// WithShippingFee sets the flat fee charged below the threshold.
func WithShippingFee(v decimal.Decimal) Option {
	return func(e *Engine) { e.shippingFee = v }
}

// New creates an Engine with the default threshold and fee.
func New(opts ...Option) *Engine {
	e := &Engine{
		freeShippingThreshold: DefaultFreeShippingThreshold,
		shippingFee:           DefaultShippingFee,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Shipping returns the shipping cost for a product total.
func (e *Engine) Shipping(productTotal decimal.Decimal) decimal.Decimal {
	if productTotal.GreaterThanOrEqual(e.freeShippingThreshold) {
		return decimal.Zero
	}
	return e.shippingFee.Round(2)
}

// Price computes the quote for lines with an optional, already validated
// coupon. Shipping is decided on the product total before discount.
func (e *Engine) Price(lines []Line, rule *coupon.Rule) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, ErrEmptyCart
	}

	productTotal := decimal.Zero
	for _, l := range lines {
		productTotal = productTotal.Add(l.Subtotal())
	}
	productTotal = productTotal.Round(2)

	q := Quote{
		ProductTotal:   productTotal,
		EligibleTotal:  decimal.Zero,
		DiscountAmount: decimal.Zero,
		ShippingCost:   e.Shipping(productTotal),
	}

	if rule != nil {
		d, err := coupon.Apply(rule, CouponItems(lines))
		if err != nil {
			return Quote{}, err
		}
		q.EligibleTotal = d.EligibleTotal.Round(2)
		q.DiscountAmount = d.Amount
	}

	q.Total = productTotal.Sub(q.DiscountAmount).Add(q.ShippingCost).Round(2)
	return q, nil
}

// CouponItems adapts priced lines for coupon evaluation.
func CouponItems(lines []Line) []coupon.Item {
	items := make([]coupon.Item, len(lines))
	for i, l := range lines {
		items[i] = coupon.Item{ProductID: l.ProductID, Price: l.UnitPrice, Quantity: l.Quantity}
	}
	return items
}
