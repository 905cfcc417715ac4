package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
)

func TestBasket_SumsToTotal(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		rule  *coupon.Rule
	}{
		{
			name:  "no discount",
			lines: []Line{{ProductID: "a", UnitPrice: d("100"), Quantity: 2}},
		},
		{
			name: "three-way split with residue",
			lines: []Line{
				{ProductID: "a", UnitPrice: d("10"), Quantity: 1},
				{ProductID: "b", UnitPrice: d("10"), Quantity: 1},
				{ProductID: "c", UnitPrice: d("10"), Quantity: 1},
			},
			rule: &coupon.Rule{Code: "F10", DiscountType: coupon.DiscountFixed, Value: d("10"), AppliesTo: coupon.ScopeAll},
		},
		{
			name: "odd prices and percentage",
			lines: []Line{
				{ProductID: "a", UnitPrice: d("19.99"), Quantity: 3},
				{ProductID: "b", UnitPrice: d("7.45"), Quantity: 1},
				{ProductID: "c", UnitPrice: d("0.99"), Quantity: 7},
			},
			rule: &coupon.Rule{Code: "P13", DiscountType: coupon.DiscountPercentage, Value: d("13"), AppliesTo: coupon.ScopeAll},
		},
		{
			name: "above free shipping",
			lines: []Line{
				{ProductID: "a", UnitPrice: d("333.33"), Quantity: 1},
				{ProductID: "b", UnitPrice: d("333.33"), Quantity: 1},
			},
			rule: &coupon.Rule{Code: "F50", DiscountType: coupon.DiscountFixed, Value: d("50"), AppliesTo: coupon.ScopeAll},
		},
		{
			name: "residue larger than any line",
			lines: []Line{
				{ProductID: "a", UnitPrice: d("50"), Quantity: 1},
				{ProductID: "b", UnitPrice: d("50"), Quantity: 1},
				{ProductID: "c", UnitPrice: d("50"), Quantity: 1},
				{ProductID: "d", UnitPrice: d("50"), Quantity: 1},
			},
			rule: &coupon.Rule{Code: "F199", DiscountType: coupon.DiscountFixed, Value: d("199.98"), AppliesTo: coupon.ScopeAll},
		},
		{
			name: "one cent left over many lines",
			lines: []Line{
				{ProductID: "a", UnitPrice: d("0.99"), Quantity: 1},
				{ProductID: "b", UnitPrice: d("1.01"), Quantity: 1},
				{ProductID: "c", UnitPrice: d("1.00"), Quantity: 1},
			},
			rule: &coupon.Rule{Code: "F299", DiscountType: coupon.DiscountFixed, Value: d("2.99"), AppliesTo: coupon.ScopeAll},
		},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := e.Price(tt.lines, tt.rule)
			require.NoError(t, err)

			items, err := Basket(q, tt.lines)
			require.NoError(t, err)

			assert.True(t, q.Total.Equal(Sum(items)), "basket %s != total %s", Sum(items), q.Total)
			for _, it := range items {
				assert.True(t, it.Price.IsPositive(), "item %s has price %s", it.ID, it.Price)
				assert.True(t, it.Price.Equal(it.Price.Round(2)), "item %s has more than two decimals", it.ID)
			}
		})
	}
}

func TestBasket_ResidueGoesToFirstLine(t *testing.T) {
	lines := []Line{
		{ProductID: "a", UnitPrice: d("10"), Quantity: 1},
		{ProductID: "b", UnitPrice: d("10"), Quantity: 1},
		{ProductID: "c", UnitPrice: d("10"), Quantity: 1},
	}
	q := Quote{ProductTotal: d("30"), DiscountAmount: d("10"), ShippingCost: d("29.99"), Total: d("49.99")}

	items, err := Basket(q, lines)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assertDecimal(t, "6.66", items[0].Price, "first")
	assertDecimal(t, "6.67", items[1].Price, "second")
	assertDecimal(t, "6.67", items[2].Price, "third")
	assert.Equal(t, ShippingItemID, items[3].ID)
	assert.Equal(t, ItemVirtual, items[3].Type)
}

func TestBasket_FullyDiscountedProductsKeepShipping(t *testing.T) {
	lines := []Line{{ProductID: "a", UnitPrice: d("40"), Quantity: 1}}
	q := Quote{ProductTotal: d("40"), DiscountAmount: d("40"), ShippingCost: d("29.99"), Total: d("29.99")}

	items, err := Basket(q, lines)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ShippingItemID, items[0].ID)
}

func TestBasket_ZeroTotal(t *testing.T) {
	_, err := Basket(Quote{ProductTotal: d("600"), DiscountAmount: d("600"), Total: d("0")}, []Line{{ProductID: "a", UnitPrice: d("600"), Quantity: 1}})
	require.ErrorIs(t, err, ErrNothingToCharge)
}

func TestBasket_NegativeResidueSpreadsOverLines(t *testing.T) {
	lines := []Line{
		{ProductID: "a", UnitPrice: d("50"), Quantity: 1},
		{ProductID: "b", UnitPrice: d("50"), Quantity: 1},
		{ProductID: "c", UnitPrice: d("50"), Quantity: 1},
		{ProductID: "d", UnitPrice: d("50"), Quantity: 1},
	}
	q := Quote{ProductTotal: d("200"), DiscountAmount: d("199.98"), ShippingCost: d("29.99"), Total: d("30.01")}

	items, err := Basket(q, lines)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "c", items[0].ID)
	assertDecimal(t, "0.01", items[0].Price, "c")
	assert.Equal(t, "d", items[1].ID)
	assertDecimal(t, "0.01", items[1].Price, "d")
	assert.Equal(t, ShippingItemID, items[2].ID)
	assertDecimal(t, "30.01", Sum(items), "sum")
}
