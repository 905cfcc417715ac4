package spin

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
)

const (
	codePrefix       = "CARK"
	maxCodeAttempts  = 5
	couponValidFor   = 30 * 24 * time.Hour
	base36           = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomCodeLength = 4
)

var (
	// ErrNotFound is returned by Repository.Last for users who never spun.
	ErrNotFound = errors.New("no spin recorded")
	// ErrAlreadySpun is returned when the user has spun today.
	ErrAlreadySpun = errors.New("wheel already spun today, try again tomorrow")
)

// Record is the latest spin of a user.
type Record struct {
	UserID     string
	Day        time.Time
	Prize      string
	CouponCode string
	SpunAt     time.Time
}

// Repository stores spins. Save must reject a second record for the same
// user and day with ErrAlreadySpun.
type Repository interface {
	Last(ctx context.Context, userID string) (*Record, error)
	Save(ctx context.Context, r *Record) error
}

// CouponStore is the part of the coupon repository the wheel writes to.
type CouponStore interface {
	Create(ctx context.Context, r *coupon.Rule) error
	Delete(ctx context.Context, id string) error
}

// Status tells the storefront whether the wheel can be spun.
type Status struct {
	CanSpin    bool
	LastSpinAt *time.Time
	CouponCode string
	Prize      string
}

// Outcome is the result of a spin.
type Outcome struct {
	SegmentIndex int
	Prize        string
	CouponCode   string
	DiscountType coupon.DiscountType
	Value        string
	ExpiresAt    time.Time
}

// Service runs the wheel. Days are calendar days in loc.
type Service struct {
	spins   Repository
	coupons CouponStore
	wheel   *Wheel
	loc     *time.Location
	now     func() time.Time
	intn    func(int) int
}

// NewService returns a wheel service. A nil loc means UTC.
func NewService(spins Repository, coupons CouponStore, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		spins:   spins,
		coupons: coupons,
		wheel:   NewWheel(),
		loc:     loc,
		now:     time.Now,
		intn:    rand.IntN,
	}
}

func (s *Service) day(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// Status reports whether userID may spin today. Today's prize is included
// when they already did.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	last, err := s.spins.Last(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &Status{CanSpin: true}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get last spin")
	}

	st := &Status{LastSpinAt: &last.SpunAt}
	if !s.day(last.SpunAt).Equal(s.day(s.now())) {
		st.CanSpin = true
		return st, nil
	}
	st.CouponCode = last.CouponCode
	st.Prize = last.Prize
	return st, nil
}

// Spin draws a prize, mints its single-use coupon and records the spin.
func (s *Service) Spin(ctx context.Context, userID string) (*Outcome, error) {
	now := s.now()
	last, err := s.spins.Last(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, errors.Wrap(err, "get last spin")
	case s.day(last.SpunAt).Equal(s.day(now)):
		return nil, ErrAlreadySpun
	}

	prize, segment := s.wheel.Draw()
	rule, err := s.mint(ctx, prize, now)
	if err != nil {
		return nil, err
	}

	label := Segments[segment].Label
	rec := &Record{
		UserID:     userID,
		Day:        s.day(now),
		Prize:      label,
		CouponCode: rule.Code,
		SpunAt:     now,
	}
	if err := s.spins.Save(ctx, rec); err != nil {
		// Lost a race with a parallel spin; take the coupon back.
		if delErr := s.coupons.Delete(ctx, rule.ID); delErr != nil {
			zctx.From(ctx).Warn("Failed to delete coupon of rejected spin",
				zap.String("coupon", rule.Code),
				zap.Error(delErr),
			)
		}
		if errors.Is(err, ErrAlreadySpun) {
			return nil, err
		}
		return nil, errors.Wrap(err, "save spin")
	}

	zctx.From(ctx).Info("Wheel spun",
		zap.String("user_id", userID),
		zap.String("prize", label),
		zap.String("coupon", rule.Code),
	)
	return &Outcome{
		SegmentIndex: segment,
		Prize:        label,
		CouponCode:   rule.Code,
		DiscountType: prize.Type,
		Value:        prize.Value.String(),
		ExpiresAt:    *rule.ExpiresAt,
	}, nil
}

func (s *Service) mint(ctx context.Context, prize Prize, now time.Time) (*coupon.Rule, error) {
	expires := now.Add(couponValidFor)
	for attempt := 1; ; attempt++ {
		rule := &coupon.Rule{
			ID:           uuid.NewString(),
			Code:         s.code(now),
			DiscountType: prize.Type,
			Value:        prize.Value,
			MaxUses:      1,
			Active:       true,
			ExpiresAt:    &expires,
			AppliesTo:    coupon.ScopeAll,
			CreatedAt:    now,
		}
		err := s.coupons.Create(ctx, rule)
		if err == nil {
			return rule, nil
		}
		if !errors.Is(err, coupon.ErrDuplicateCode) || attempt == maxCodeAttempts {
			return nil, errors.Wrap(err, "create prize coupon")
		}
	}
}

// code returns CARK, the last four base-36 digits of the millisecond clock
// and four random base-36 characters.
func (s *Service) code(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	if len(ts) > 4 {
		ts = ts[len(ts)-4:]
	}
	var b strings.Builder
	b.WriteString(codePrefix)
	b.WriteString(ts)
	for range randomCodeLength {
		b.WriteByte(base36[s.intn(len(base36))])
	}
	return b.String()
}
