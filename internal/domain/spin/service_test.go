package spin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
)

type mockSpinRepo struct {
	last    *Record
	saveErr error
	saved   []*Record
}

func (m *mockSpinRepo) Last(_ context.Context, _ string) (*Record, error) {
	if m.last == nil {
		return nil, ErrNotFound
	}
	return m.last, nil
}

func (m *mockSpinRepo) Save(_ context.Context, r *Record) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, r)
	m.last = r
	return nil
}

type mockCouponStore struct {
	created   []*coupon.Rule
	deleted   []string
	failTimes int
}

func (m *mockCouponStore) Create(_ context.Context, r *coupon.Rule) error {
	if m.failTimes > 0 {
		m.failTimes--
		return coupon.ErrDuplicateCode
	}
	m.created = append(m.created, r)
	return nil
}

func (m *mockCouponStore) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(spins *mockSpinRepo, coupons *mockCouponStore, at time.Time) *Service {
	s := NewService(spins, coupons, time.UTC)
	s.now = func() time.Time { return at }
	return s
}

func TestWheel_Draw(t *testing.T) {
	tests := []struct {
		name        string
		rolls       []int
		wantValue   string
		wantSegment int
	}{
		{name: "first bucket", rolls: []int{0, 2}, wantValue: "5", wantSegment: 6},
		{name: "last of five percent", rolls: []int{41, 0}, wantValue: "5", wantSegment: 0},
		{name: "seven percent", rolls: []int{42, 1}, wantValue: "7", wantSegment: 5},
		{name: "fifty lira", rolls: []int{87, 0}, wantValue: "50", wantSegment: 4},
		{name: "jackpot", rolls: []int{99, 0}, wantValue: "200", wantSegment: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rolls := tt.rolls
			w := newWheel(Prizes, func(int) int {
				r := rolls[0]
				rolls = rolls[1:]
				return r
			})
			p, seg := w.Draw()
			assert.Equal(t, tt.wantValue, p.Value.String())
			assert.Equal(t, tt.wantSegment, seg)
			assert.True(t, Segments[seg].Value.Equal(p.Value), "segment shows the drawn prize")
		})
	}
}

func TestWheel_WeightsTotalHundred(t *testing.T) {
	w := NewWheel()
	assert.Equal(t, 100, w.total)
	for _, p := range Prizes {
		for _, seg := range p.Segments {
			assert.Equal(t, p.Type, Segments[seg].Type)
			assert.True(t, Segments[seg].Value.Equal(p.Value))
		}
	}
}

func TestService_StatusNeverSpun(t *testing.T) {
	s := newTestService(&mockSpinRepo{}, &mockCouponStore{}, noon)

	st, err := s.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, st.CanSpin)
	assert.Nil(t, st.LastSpinAt)
}

func TestService_SpinMintsSingleUseCoupon(t *testing.T) {
	spins := &mockSpinRepo{}
	coupons := &mockCouponStore{}
	s := newTestService(spins, coupons, noon)

	out, err := s.Spin(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, coupons.created, 1)
	rule := coupons.created[0]
	assert.Equal(t, out.CouponCode, rule.Code)
	assert.True(t, strings.HasPrefix(rule.Code, "CARK"))
	assert.Len(t, rule.Code, 12)
	assert.Equal(t, 1, rule.MaxUses)
	assert.True(t, rule.Active)
	require.NotNil(t, rule.ExpiresAt)
	assert.Equal(t, noon.Add(30*24*time.Hour), *rule.ExpiresAt)
	assert.Equal(t, Segments[out.SegmentIndex].Label, out.Prize)

	require.Len(t, spins.saved, 1)
	assert.Equal(t, "u1", spins.saved[0].UserID)

	st, err := s.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, st.CanSpin)
	assert.Equal(t, out.CouponCode, st.CouponCode)
	assert.Equal(t, out.Prize, st.Prize)
}

func TestService_OneSpinPerDay(t *testing.T) {
	spins := &mockSpinRepo{last: &Record{UserID: "u1", SpunAt: noon.Add(-11 * time.Hour)}}
	s := newTestService(spins, &mockCouponStore{}, noon)

	_, err := s.Spin(context.Background(), "u1")
	require.ErrorIs(t, err, ErrAlreadySpun)

	s.now = func() time.Time { return noon.Add(12 * time.Hour) }
	st, err := s.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, st.CanSpin)
	assert.Empty(t, st.CouponCode)
}

func TestService_SpinRetriesDuplicateCodes(t *testing.T) {
	coupons := &mockCouponStore{failTimes: 4}
	s := newTestService(&mockSpinRepo{}, coupons, noon)

	_, err := s.Spin(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, coupons.created, 1)

	coupons = &mockCouponStore{failTimes: 5}
	s = newTestService(&mockSpinRepo{}, coupons, noon)
	_, err = s.Spin(context.Background(), "u1")
	require.ErrorIs(t, err, coupon.ErrDuplicateCode)
}

func TestService_LostRaceReturnsCoupon(t *testing.T) {
	coupons := &mockCouponStore{}
	spins := &mockSpinRepo{saveErr: errors.Wrap(ErrAlreadySpun, "insert")}
	s := newTestService(spins, coupons, noon)

	_, err := s.Spin(context.Background(), "u1")
	require.ErrorIs(t, err, ErrAlreadySpun)
	require.Len(t, coupons.created, 1)
	assert.Equal(t, []string{coupons.created[0].ID}, coupons.deleted)
}
