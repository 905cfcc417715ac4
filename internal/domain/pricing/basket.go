package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNothingToCharge is returned when a quote totals zero; the gateway cannot
// take a zero payment.
var ErrNothingToCharge = errors.New("order total must be greater than zero")

// ItemType tells the gateway whether a basket item ships.
type ItemType string

const (
	ItemPhysical ItemType = "PHYSICAL"
	ItemVirtual  ItemType = "VIRTUAL"
)

// ShippingItemID identifies the synthetic shipping line in a basket.
const ShippingItemID = "SHIPPING"

// BasketItem is one line as the payment gateway sees it.
type BasketItem struct {
	ID       string
	Name     string
	Category string
	Type     ItemType
	Price    decimal.Decimal
}

// Basket decomposes a quote into gateway line items whose prices sum to
// q.Total exactly. The discount is spread over the product lines in
// proportion to their subtotals and each share is rounded to cents. A
// positive rounding residue goes to the first line; a negative one is taken
// a cent at a time from the largest line. Lines that end up at zero are
// dropped.
func Basket(q Quote, lines []Line) ([]BasketItem, error) {
	if !q.Total.IsPositive() {
		return nil, ErrNothingToCharge
	}

	net := q.ProductTotal.Sub(q.DiscountAmount)
	items := make([]BasketItem, 0, len(lines)+1)

	if net.IsPositive() && q.ProductTotal.IsPositive() {
		allocated := decimal.Zero
		for _, l := range lines {
			share := l.Subtotal().Mul(net).Div(q.ProductTotal).Round(2)
			allocated = allocated.Add(share)
			items = append(items, BasketItem{
				ID:       l.ProductID,
				Name:     l.Name,
				Category: categoryOrDefault(l.Category),
				Type:     ItemPhysical,
				Price:    share,
			})
		}
		correct(items, net.Sub(allocated))
		items = dropZero(items)
	}

	if q.ShippingCost.IsPositive() {
		items = append(items, BasketItem{
			ID:       ShippingItemID,
			Name:     "Kargo Ücreti",
			Category: "Kargo",
			Type:     ItemVirtual,
			Price:    q.ShippingCost,
		})
	}

	return items, nil
}

var cent = decimal.New(1, -2)

// correct folds residue into items without letting any price go negative.
// The items sum to a positive amount, so a negative residue can always be
// absorbed.
func correct(items []BasketItem, residue decimal.Decimal) {
	if residue.IsPositive() {
		items[0].Price = items[0].Price.Add(residue)
		return
	}
	for residue.IsNegative() {
		largest := 0
		for i := range items {
			if items[i].Price.GreaterThan(items[largest].Price) {
				largest = i
			}
		}
		step := decimal.Min(cent, residue.Neg())
		items[largest].Price = items[largest].Price.Sub(step)
		residue = residue.Add(step)
	}
}

func dropZero(items []BasketItem) []BasketItem {
	out := items[:0]
	for _, it := range items {
		if it.Price.IsPositive() {
			out = append(out, it)
		}
	}
	return out
}

func categoryOrDefault(c string) string {
	if c == "" {
		return "Pet Mama"
	}
	return c
}

// Sum adds up basket item prices.
func Sum(items []BasketItem) decimal.Decimal {
	s := decimal.Zero
	for _, it := range items {
		s = s.Add(it.Price)
	}
	return s
}
