package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply computes the discount a rule grants on items. Only lines the rule
// covers count towards the eligible total, and the discount never exceeds
// that total. A scoped rule that covers none of the items is rejected rather
// than silently granting zero.
func Apply(rule *Rule, items []Item) (Discount, error) {
	eligible, matched := eligibleTotal(rule, items)
	if !matched {
		return Discount{}, reject(rule.Code, ReasonIneligible)
	}

	var amount decimal.Decimal
	switch rule.DiscountType {
	case DiscountPercentage:
		amount = eligible.Mul(rule.Value).Div(hundred)
	case DiscountFixed:
		amount = rule.Value
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}

	amount = decimal.Min(floorAtZero(amount), eligible).Round(2)
	return Discount{Amount: amount, EligibleTotal: eligible}, nil
}

func eligibleTotal(rule *Rule, items []Item) (decimal.Decimal, bool) {
	sum := decimal.Zero
	matched := false
	for _, item := range items {
		if !rule.Covers(item.ProductID) {
			continue
		}
		matched = true
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum, matched
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
