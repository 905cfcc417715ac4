package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muratkomurcu/october4mama/internal/domain/review"
)

const (
	listReviewsSQL = `SELECT id, product_id, user_id, user_name, rating, comment, created_at FROM reviews
		WHERE product_id = $1 ORDER BY created_at DESC`

	createReviewSQL = `INSERT INTO reviews (id, product_id, user_id, user_name, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	deleteReviewSQL = `DELETE FROM reviews WHERE id = $1`

	reviewProductUserConstraint = "reviews_product_user_key"
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository keeps at most one review per product and user.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]review.Review, error) {
	rows, err := r.pool.Query(ctx, listReviewsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews of %q: %w", productID, err)
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (review.Review, error) {
		var rv review.Review
		err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment, &rv.CreatedAt)
		return rv, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning reviews of %q: %w", productID, err)
	}
	return reviews, nil
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := r.pool.Exec(ctx, createReviewSQL,
		rv.ID, rv.ProductID, rv.UserID, rv.UserName, rv.Rating, rv.Comment, rv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, reviewProductUserConstraint) {
			return review.ErrAlreadyReviewed
		}
		return fmt.Errorf("creating review of %q: %w", rv.ProductID, err)
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteReviewSQL, id)
	if err != nil {
		return fmt.Errorf("deleting review %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}
