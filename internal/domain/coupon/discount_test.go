package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name         string
		rule         *Rule
		items        []Item
		wantAmount   decimal.Decimal
		wantEligible decimal.Decimal
		wantErr      error
	}{
		{
			name:         "percentage 10% of 200",
			rule:         &Rule{Code: "P10", DiscountType: DiscountPercentage, Value: d("10"), AppliesTo: ScopeAll},
			items:        []Item{{ProductID: "a", Price: d("100"), Quantity: 2}},
			wantAmount:   d("20"),
			wantEligible: d("200"),
		},
		{
			name:         "percentage rounds to cents",
			rule:         &Rule{Code: "P7", DiscountType: DiscountPercentage, Value: d("7"), AppliesTo: ScopeAll},
			items:        []Item{{ProductID: "a", Price: d("33.33"), Quantity: 1}},
			wantAmount:   d("2.33"),
			wantEligible: d("33.33"),
		},
		{
			name:         "fixed below eligible total",
			rule:         &Rule{Code: "F50", DiscountType: DiscountFixed, Value: d("50"), AppliesTo: ScopeAll},
			items:        []Item{{ProductID: "a", Price: d("120"), Quantity: 1}},
			wantAmount:   d("50"),
			wantEligible: d("120"),
		},
		{
			name:         "fixed clamps to eligible total",
			rule:         &Rule{Code: "F200", DiscountType: DiscountFixed, Value: d("200"), AppliesTo: ScopeAll},
			items:        []Item{{ProductID: "a", Price: d("79.90"), Quantity: 1}},
			wantAmount:   d("79.90"),
			wantEligible: d("79.90"),
		},
		{
			name: "fixed on specific scope clamps to matching lines",
			rule: &Rule{Code: "F100", DiscountType: DiscountFixed, Value: d("100"), AppliesTo: ScopeSpecific, ApplicableProducts: []string{"b"}},
			items: []Item{
				{ProductID: "a", Price: d("400"), Quantity: 1},
				{ProductID: "b", Price: d("30"), Quantity: 2},
			},
			wantAmount:   d("60"),
			wantEligible: d("60"),
		},
		{
			name:    "specific scope without matching line",
			rule:    &Rule{Code: "S", DiscountType: DiscountPercentage, Value: d("10"), AppliesTo: ScopeSpecific, ApplicableProducts: []string{"z"}},
			items:   []Item{{ProductID: "a", Price: d("10"), Quantity: 1}},
			wantErr: ErrIneligible,
		},
		{
			name:    "all scope with empty cart is ineligible",
			rule:    &Rule{Code: "E", DiscountType: DiscountFixed, Value: d("10"), AppliesTo: ScopeAll},
			wantErr: ErrIneligible,
		},
		{
			name:         "zero value coupon",
			rule:         &Rule{Code: "Z", DiscountType: DiscountFixed, Value: decimal.Zero, AppliesTo: ScopeAll},
			items:        []Item{{ProductID: "a", Price: d("10"), Quantity: 1}},
			wantAmount:   decimal.Zero,
			wantEligible: d("10"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.rule, tt.items)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantAmount.Equal(got.Amount), "amount: want %s, got %s", tt.wantAmount, got.Amount)
			assert.True(t, tt.wantEligible.Equal(got.EligibleTotal), "eligible: want %s, got %s", tt.wantEligible, got.EligibleTotal)
		})
	}
}

func TestApply_NeverExceedsEligibleTotal(t *testing.T) {
	items := []Item{
		{ProductID: "a", Price: d("19.99"), Quantity: 3},
		{ProductID: "b", Price: d("0.01"), Quantity: 1},
	}
	values := []string{"0", "1", "33.33", "59.98", "60", "99.99", "100", "1000"}

	for _, typ := range []DiscountType{DiscountFixed, DiscountPercentage} {
		for _, v := range values {
			rule := &Rule{Code: "X", DiscountType: typ, Value: d(v), AppliesTo: ScopeAll}
			got, err := Apply(rule, items)
			require.NoError(t, err)
			assert.True(t, got.Amount.LessThanOrEqual(got.EligibleTotal),
				"%s %s: discount %s exceeds eligible %s", typ, v, got.Amount, got.EligibleTotal)
			assert.False(t, got.Amount.IsNegative())
		}
	}
}
