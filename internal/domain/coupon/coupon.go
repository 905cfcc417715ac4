package coupon

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the eligible total.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, capped at the eligible total.
	DiscountFixed DiscountType = "fixed"
)

// Scope selects which cart lines a coupon may discount.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeSpecific Scope = "specific"
)

// DefaultMaxUses applies when a coupon is created without a usage limit.
const DefaultMaxUses = 50

var (
	ErrNotFound      = errors.New("coupon not found")
	ErrInactive      = errors.New("coupon is not active")
	ErrExhausted     = errors.New("coupon usage limit exhausted")
	ErrExpired       = errors.New("coupon expired")
	ErrIneligible    = errors.New("coupon does not apply to any product in the cart")
	ErrDuplicateCode = errors.New("coupon code already exists")
	ErrInvalidRule   = errors.New("invalid coupon")
)

// Reason is the machine-readable cause of a coupon rejection.
type Reason string

const (
	ReasonNotFound   Reason = "not_found"
	ReasonInactive   Reason = "inactive"
	ReasonExhausted  Reason = "exhausted"
	ReasonExpired    Reason = "expired"
	ReasonIneligible Reason = "ineligible"
)

var reasonErrors = map[Reason]error{
	ReasonNotFound:   ErrNotFound,
	ReasonInactive:   ErrInactive,
	ReasonExhausted:  ErrExhausted,
	ReasonExpired:    ErrExpired,
	ReasonIneligible: ErrIneligible,
}

// RejectedError reports why a code cannot be redeemed. It unwraps to the
// matching sentinel, so errors.Is(err, ErrExpired) works on it.
type RejectedError struct {
	Code   string
	Reason Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("coupon %q rejected: %s", e.Code, reasonErrors[e.Reason])
}

func (e *RejectedError) Unwrap() error {
	return reasonErrors[e.Reason]
}

func reject(code string, reason Reason) error {
	return &RejectedError{Code: code, Reason: reason}
}

// Rule is a discount-code definition together with its usage counter.
type Rule struct {
	ID                 string
	Code               string
	DiscountType       DiscountType
	Value              decimal.Decimal
	MaxUses            int
	UsedCount          int
	Active             bool
	ExpiresAt          *time.Time
	AppliesTo          Scope
	ApplicableProducts []string
	CreatedAt          time.Time
}

// RemainingUses never goes below zero, even when concurrent settlements
// pushed UsedCount past MaxUses.
func (r *Rule) RemainingUses() int {
	return max(r.MaxUses-r.UsedCount, 0)
}

// Covers reports whether the coupon may discount productID.
func (r *Rule) Covers(productID string) bool {
	if r.AppliesTo != ScopeSpecific {
		return true
	}
	return slices.Contains(r.ApplicableProducts, productID)
}

// Normalize applies defaults and canonical forms before a rule is stored.
func (r *Rule) Normalize() {
	r.Code = NormalizeCode(r.Code)
	if r.MaxUses == 0 {
		r.MaxUses = DefaultMaxUses
	}
	if r.AppliesTo == "" {
		r.AppliesTo = ScopeAll
	}
	if r.AppliesTo == ScopeAll {
		r.ApplicableProducts = nil
	}
}

// Check validates the rule's own fields.
func (r *Rule) Check() error {
	switch {
	case r.Code == "":
		return errors.Wrap(ErrInvalidRule, "code is required")
	case r.DiscountType != DiscountFixed && r.DiscountType != DiscountPercentage:
		return errors.Wrapf(ErrInvalidRule, "unknown discount type %q", r.DiscountType)
	case r.Value.IsNegative():
		return errors.Wrap(ErrInvalidRule, "discount value must not be negative")
	case r.DiscountType == DiscountPercentage && r.Value.GreaterThan(hundred):
		return errors.Wrap(ErrInvalidRule, "percentage must not exceed 100")
	case r.MaxUses < 1:
		return errors.Wrap(ErrInvalidRule, "max uses must be at least 1")
	case r.AppliesTo != ScopeAll && r.AppliesTo != ScopeSpecific:
		return errors.Wrapf(ErrInvalidRule, "unknown scope %q", r.AppliesTo)
	case r.AppliesTo == ScopeSpecific && len(r.ApplicableProducts) == 0:
		return errors.Wrap(ErrInvalidRule, "specific coupon needs at least one product")
	}
	return nil
}

// NormalizeCode returns the canonical upper-case form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Item is a priced cart line as seen by discount evaluation.
type Item struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Discount is the outcome of applying a rule to a set of items.
type Discount struct {
	Amount        decimal.Decimal
	EligibleTotal decimal.Decimal
}

// Repository is the coupon store. Usage counters are advanced by the order
// store when a payment settles, not through this interface.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	GetByID(ctx context.Context, id string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Create(ctx context.Context, r *Rule) error
	Update(ctx context.Context, r *Rule) error
	Delete(ctx context.Context, id string) error
}
