// Package spin implements the daily prize wheel that hands out single-use
// coupons to signed-in customers.
package spin

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
)

// Segment is a slice of the wheel as drawn on the storefront, clockwise from
// the top.
type Segment struct {
	Label string
	Type  coupon.DiscountType
	Value decimal.Decimal
}

// Prize is a weighted outcome. Segments are the wheel positions that show it.
type Prize struct {
	Type     coupon.DiscountType
	Value    decimal.Decimal
	Weight   int
	Segments []int
}

func pct(v int64) Segment {
	return Segment{Label: "%" + decimal.NewFromInt(v).String() + " İndirim", Type: coupon.DiscountPercentage, Value: decimal.NewFromInt(v)}
}

func tl(v int64) Segment {
	return Segment{Label: decimal.NewFromInt(v).String() + " TL İndirim", Type: coupon.DiscountFixed, Value: decimal.NewFromInt(v)}
}

// Segments is the wheel layout.
var Segments = []Segment{
	pct(5), pct(7), pct(10), pct(5), tl(50), pct(7),
	pct(5), pct(10), pct(7), pct(5), tl(100), tl(200),
}

// Prizes keeps the large discounts rare.
var Prizes = []Prize{
	{Type: coupon.DiscountPercentage, Value: decimal.NewFromInt(5), Weight: 42, Segments: []int{0, 3, 6, 9}},
	{Type: coupon.DiscountPercentage, Value: decimal.NewFromInt(7), Weight: 30, Segments: []int{1, 5, 8}},
	{Type: coupon.DiscountPercentage, Value: decimal.NewFromInt(10), Weight: 15, Segments: []int{2, 7}},
	{Type: coupon.DiscountFixed, Value: decimal.NewFromInt(50), Weight: 8, Segments: []int{4}},
	{Type: coupon.DiscountFixed, Value: decimal.NewFromInt(100), Weight: 4, Segments: []int{10}},
	{Type: coupon.DiscountFixed, Value: decimal.NewFromInt(200), Weight: 1, Segments: []int{11}},
}

// Wheel draws prizes. intn must behave like rand.IntN.
type Wheel struct {
	prizes []Prize
	total  int
	intn   func(n int) int
}

// NewWheel returns a wheel over Prizes backed by math/rand/v2.
func NewWheel() *Wheel {
	return newWheel(Prizes, rand.IntN)
}

func newWheel(prizes []Prize, intn func(int) int) *Wheel {
	total := 0
	for _, p := range prizes {
		total += p.Weight
	}
	return &Wheel{prizes: prizes, total: total, intn: intn}
}

// Draw picks a prize by weight and one of the segments that shows it.
func (w *Wheel) Draw() (Prize, int) {
	r := w.intn(w.total)
	for _, p := range w.prizes {
		if r < p.Weight {
			return p, p.Segments[w.intn(len(p.Segments))]
		}
		r -= p.Weight
	}
	// Unreachable with positive weights.
	p := w.prizes[0]
	return p, p.Segments[0]
}
