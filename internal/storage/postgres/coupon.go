package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
)

const (
	couponColumns = `id, code, discount_type, discount_value, max_uses, used_count, is_active,
		expires_at, applies_to, applicable_products, created_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	createCouponSQL = `INSERT INTO coupons (id, code, discount_type, discount_value, max_uses, used_count,
		is_active, expires_at, applies_to, applicable_products, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updateCouponSQL = `UPDATE coupons SET code = $2, discount_type = $3, discount_value = $4, max_uses = $5,
		is_active = $6, expires_at = $7, applies_to = $8, applicable_products = $9
		WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	couponCodeConstraint = "coupons_code_key"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL. The
// usage counter is only ever advanced by OrderRepository.Settle.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its canonical upper-case code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	return r.one(ctx, getCouponByCodeSQL, code)
}

func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Rule, error) {
	return r.one(ctx, getCouponByIDSQL, id)
}

func (r *CouponRepository) one(ctx context.Context, query, arg string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", arg, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", arg, err)
	}
	return &rule, nil
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCouponRule)
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Rule) error {
	_, err := r.pool.Exec(ctx, createCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.Value, c.MaxUses, c.UsedCount,
		c.Active, c.ExpiresAt, string(c.AppliesTo), productList(c.ApplicableProducts), c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, couponCodeConstraint) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

func (r *CouponRepository) Update(ctx context.Context, c *coupon.Rule) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.Value, c.MaxUses,
		c.Active, c.ExpiresAt, string(c.AppliesTo), productList(c.ApplicableProducts),
	)
	if err != nil {
		if isUniqueViolation(err, couponCodeConstraint) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// productList keeps NOT NULL array columns from receiving NULL.
func productList(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		c            coupon.Rule
		discountType string
		appliesTo    string
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.Value, &c.MaxUses, &c.UsedCount, &c.Active,
		&c.ExpiresAt, &appliesTo, &c.ApplicableProducts, &c.CreatedAt,
	)
	if err != nil {
		return coupon.Rule{}, fmt.Errorf("scanning coupon row: %w", err)
	}
	c.DiscountType = coupon.DiscountType(discountType)
	c.AppliesTo = coupon.Scope(appliesTo)
	if len(c.ApplicableProducts) == 0 {
		c.ApplicableProducts = nil
	}
	return c, nil
}
