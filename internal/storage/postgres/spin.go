package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muratkomurcu/october4mama/internal/domain/spin"
)

const (
	lastSpinSQL = `SELECT user_id, spin_day, prize_label, coupon_code, spun_at FROM wheel_spins
		WHERE user_id = $1 ORDER BY spun_at DESC LIMIT 1`

	saveSpinSQL = `INSERT INTO wheel_spins (user_id, spin_day, prize_label, coupon_code, spun_at)
		VALUES ($1, $2, $3, $4, $5)`
)

var _ spin.Repository = (*SpinRepository)(nil)

// SpinRepository keeps one row per user and calendar day.
type SpinRepository struct {
	pool *pgxpool.Pool
}

// NewSpinRepository returns a SpinRepository that uses the given pool.
func NewSpinRepository(pool *pgxpool.Pool) *SpinRepository {
	return &SpinRepository{pool: pool}
}

func (r *SpinRepository) Last(ctx context.Context, userID string) (*spin.Record, error) {
	var rec spin.Record
	err := r.pool.QueryRow(ctx, lastSpinSQL, userID).
		Scan(&rec.UserID, &rec.Day, &rec.Prize, &rec.CouponCode, &rec.SpunAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, spin.ErrNotFound
		}
		return nil, fmt.Errorf("getting last spin of %q: %w", userID, err)
	}
	return &rec, nil
}

func (r *SpinRepository) Save(ctx context.Context, rec *spin.Record) error {
	_, err := r.pool.Exec(ctx, saveSpinSQL, rec.UserID, rec.Day, rec.Prize, rec.CouponCode, rec.SpunAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return spin.ErrAlreadySpun
		}
		return fmt.Errorf("saving spin of %q: %w", rec.UserID, err)
	}
	return nil
}
