package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Result is a successful validation.
type Result struct {
	Rule          *Rule
	Discount      Discount
	RemainingUses int
}

// Validator checks a code against live coupon state. It never mutates the
// usage counter; that only happens when a payment settles.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a Validator backed by repo.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate runs the checks in order and stops at the first failure:
// existence, active flag, remaining uses, expiry, then line eligibility.
// Rejections are returned as *RejectedError.
func (v *Validator) Validate(ctx context.Context, code string, items []Item) (*Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, reject(code, ReasonNotFound)
	}

	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, reject(code, ReasonNotFound)
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	d, err := Evaluate(rule, items, v.now())
	if err != nil {
		return nil, err
	}

	return &Result{
		Rule:          rule,
		Discount:      d,
		RemainingUses: rule.RemainingUses(),
	}, nil
}

// Evaluate runs every check after lookup against an already-loaded rule.
func Evaluate(rule *Rule, items []Item, now time.Time) (Discount, error) {
	if !rule.Active {
		return Discount{}, reject(rule.Code, ReasonInactive)
	}
	if rule.UsedCount >= rule.MaxUses {
		return Discount{}, reject(rule.Code, ReasonExhausted)
	}
	if rule.ExpiresAt != nil && now.After(*rule.ExpiresAt) {
		return Discount{}, reject(rule.Code, ReasonExpired)
	}
	return Apply(rule, items)
}
