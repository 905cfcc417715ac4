package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	rule      *Rule
	err       error
	findCalls int
	created   *Rule
	updated   *Rule
	createErr error
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	m.findCalls++
	if m.err != nil {
		return nil, m.err
	}
	if m.rule == nil || m.rule.Code != code {
		return nil, ErrNotFound
	}
	return m.rule, nil
}

func (m *mockCouponRepo) GetByID(_ context.Context, id string) (*Rule, error) {
	if m.rule == nil || m.rule.ID != id {
		return nil, ErrNotFound
	}
	return m.rule, nil
}

func (m *mockCouponRepo) List(_ context.Context) ([]Rule, error) {
	if m.rule == nil {
		return nil, nil
	}
	return []Rule{*m.rule}, nil
}

func (m *mockCouponRepo) Create(_ context.Context, r *Rule) error {
	m.created = r
	return m.createErr
}

func (m *mockCouponRepo) Update(_ context.Context, r *Rule) error {
	m.updated = r
	return nil
}

func (m *mockCouponRepo) Delete(_ context.Context, _ string) error {
	return nil
}

func TestValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	yesterday := fixedNow.Add(-24 * time.Hour)
	tomorrow := fixedNow.Add(24 * time.Hour)

	cart := []Item{
		{ProductID: "mama-1", Price: d("100"), Quantity: 2},
		{ProductID: "mama-2", Price: d("50"), Quantity: 1},
	}

	tests := []struct {
		name          string
		rule          *Rule
		code          string
		wantAmount    decimal.Decimal
		wantRemaining int
		wantReason    Reason
	}{
		{
			name:          "percentage on all products",
			rule:          &Rule{Code: "KEDI10", DiscountType: DiscountPercentage, Value: d("10"), MaxUses: 50, UsedCount: 3, Active: true, AppliesTo: ScopeAll},
			code:          "KEDI10",
			wantAmount:    d("25"),
			wantRemaining: 47,
		},
		{
			name:          "lower-case input is normalised",
			rule:          &Rule{Code: "KEDI10", DiscountType: DiscountFixed, Value: d("15"), MaxUses: 50, Active: true, AppliesTo: ScopeAll},
			code:          "  kedi10 ",
			wantAmount:    d("15"),
			wantRemaining: 50,
		},
		{
			name:       "unknown code",
			code:       "NOPE",
			wantReason: ReasonNotFound,
		},
		{
			name:       "empty code",
			code:       "   ",
			wantReason: ReasonNotFound,
		},
		{
			name:       "inactive wins over exhausted",
			rule:       &Rule{Code: "OFF", DiscountType: DiscountFixed, Value: d("5"), MaxUses: 1, UsedCount: 1, Active: false, AppliesTo: ScopeAll},
			code:       "OFF",
			wantReason: ReasonInactive,
		},
		{
			name:       "exhausted wins over expired",
			rule:       &Rule{Code: "USED", DiscountType: DiscountFixed, Value: d("5"), MaxUses: 1, UsedCount: 1, Active: true, ExpiresAt: &yesterday, AppliesTo: ScopeAll},
			code:       "USED",
			wantReason: ReasonExhausted,
		},
		{
			name:       "expired",
			rule:       &Rule{Code: "OLD", DiscountType: DiscountFixed, Value: d("5"), MaxUses: 10, Active: true, ExpiresAt: &yesterday, AppliesTo: ScopeAll},
			code:       "OLD",
			wantReason: ReasonExpired,
		},
		{
			name:          "expiry in the future is fine",
			rule:          &Rule{Code: "SOON", DiscountType: DiscountFixed, Value: d("5"), MaxUses: 10, Active: true, ExpiresAt: &tomorrow, AppliesTo: ScopeAll},
			code:          "SOON",
			wantAmount:    d("5"),
			wantRemaining: 10,
		},
		{
			name:       "specific coupon with no matching line",
			rule:       &Rule{Code: "KOPEK", DiscountType: DiscountPercentage, Value: d("20"), MaxUses: 10, Active: true, AppliesTo: ScopeSpecific, ApplicableProducts: []string{"mama-9"}},
			code:       "KOPEK",
			wantReason: ReasonIneligible,
		},
		{
			name:          "specific coupon discounts matching lines only",
			rule:          &Rule{Code: "KOPEK", DiscountType: DiscountPercentage, Value: d("20"), MaxUses: 10, Active: true, AppliesTo: ScopeSpecific, ApplicableProducts: []string{"mama-2"}},
			code:          "KOPEK",
			wantAmount:    d("10"),
			wantRemaining: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(&mockCouponRepo{rule: tt.rule})
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), tt.code, cart)

			if tt.wantReason != "" {
				var rejected *RejectedError
				require.ErrorAs(t, err, &rejected)
				assert.Equal(t, tt.wantReason, rejected.Reason)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.wantAmount.Equal(got.Discount.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Discount.Amount)
			assert.Equal(t, tt.wantRemaining, got.RemainingUses)
		})
	}
}

func TestValidator_RejectionUnwrapsToSentinel(t *testing.T) {
	v := NewValidator(&mockCouponRepo{})

	_, err := v.Validate(context.Background(), "MISSING", nil)

	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidator_RepositoryFailure(t *testing.T) {
	v := NewValidator(&mockCouponRepo{err: errors.New("connection reset")})

	_, err := v.Validate(context.Background(), "ANY", nil)

	require.Error(t, err)
	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected))
	assert.Contains(t, err.Error(), "lookup coupon")
}

func TestService_Create(t *testing.T) {
	repo := &mockCouponRepo{}
	svc := NewService(repo)

	r := &Rule{Code: " yaz25 ", DiscountType: DiscountPercentage, Value: d("25"), UsedCount: 7, Active: true}
	require.NoError(t, svc.Create(context.Background(), r))

	require.NotNil(t, repo.created)
	assert.Equal(t, "YAZ25", repo.created.Code)
	assert.Equal(t, DefaultMaxUses, repo.created.MaxUses)
	assert.Equal(t, ScopeAll, repo.created.AppliesTo)
	assert.Zero(t, repo.created.UsedCount)
	assert.NotEmpty(t, repo.created.ID)
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{name: "missing code", rule: Rule{DiscountType: DiscountFixed, Value: d("1")}},
		{name: "unknown type", rule: Rule{Code: "X", DiscountType: "bogo", Value: d("1")}},
		{name: "negative value", rule: Rule{Code: "X", DiscountType: DiscountFixed, Value: d("-1")}},
		{name: "percentage above 100", rule: Rule{Code: "X", DiscountType: DiscountPercentage, Value: d("150")}},
		{name: "specific without products", rule: Rule{Code: "X", DiscountType: DiscountFixed, Value: d("1"), AppliesTo: ScopeSpecific}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCouponRepo{}
			err := NewService(repo).Create(context.Background(), &tt.rule)
			require.ErrorIs(t, err, ErrInvalidRule)
			assert.Nil(t, repo.created)
		})
	}
}

func TestService_CreateDuplicate(t *testing.T) {
	repo := &mockCouponRepo{createErr: ErrDuplicateCode}

	err := NewService(repo).Create(context.Background(), &Rule{Code: "DUP", DiscountType: DiscountFixed, Value: d("5")})

	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestService_UpdateKeepsUsage(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockCouponRepo{rule: &Rule{ID: "c1", Code: "A", UsedCount: 12, CreatedAt: created}}

	upd := &Rule{ID: "c1", Code: "b", DiscountType: DiscountFixed, Value: d("10"), MaxUses: 100, UsedCount: 0}
	require.NoError(t, NewService(repo).Update(context.Background(), upd))

	require.NotNil(t, repo.updated)
	assert.Equal(t, "B", repo.updated.Code)
	assert.Equal(t, 12, repo.updated.UsedCount)
	assert.Equal(t, created, repo.updated.CreatedAt)
}
