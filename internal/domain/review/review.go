// Package review lets buyers rate the products they paid for.
package review

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
)

const (
	MinRating     = 1
	MaxRating     = 5
	minCommentLen = 10
	maxCommentLen = 500
)

var (
	// ErrNotFound is returned when deleting a review that does not exist.
	ErrNotFound = errors.New("review not found")
	// ErrInvalid wraps rating and comment violations.
	ErrInvalid = errors.New("invalid review")
	// ErrNotPurchased rejects reviews from callers without a paid order
	// containing the product.
	ErrNotPurchased = errors.New("you must purchase this product before reviewing it")
	// ErrAlreadyReviewed is returned for a second review of the same product.
	ErrAlreadyReviewed = errors.New("you have already reviewed this product")
)

// Review is one buyer's rating of a product.
type Review struct {
	ID        string
	ProductID string
	UserID    string
	UserName  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Listing is the public view of a product's reviews.
type Listing struct {
	Reviews []Review
	// Average is the mean rating rounded to one decimal, nil without reviews.
	Average *decimal.Decimal
}

// Repository stores reviews. Create must reject a second review by the same
// user for the same product with ErrAlreadyReviewed.
type Repository interface {
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
	Create(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id string) error
}

// Purchases answers whether a user paid for a product. order.Repository
// satisfies it.
type Purchases interface {
	HasPurchased(ctx context.Context, userID, productID string) (bool, error)
}

// Service implements the review operations.
type Service struct {
	reviews   Repository
	purchases Purchases
	users     auth.UserRepository
	now       func() time.Time
}

// NewService returns a review service.
func NewService(reviews Repository, purchases Purchases, users auth.UserRepository) *Service {
	return &Service{
		reviews:   reviews,
		purchases: purchases,
		users:     users,
		now:       time.Now,
	}
}

// List returns the reviews of a product, newest first, with their average.
func (s *Service) List(ctx context.Context, productID string) (*Listing, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	return &Listing{Reviews: reviews, Average: average(reviews)}, nil
}

func average(reviews []Review) *decimal.Decimal {
	if len(reviews) == 0 {
		return nil
	}
	var sum int64
	for _, r := range reviews {
		sum += int64(r.Rating)
	}
	avg := decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(reviews)))).Round(1)
	return &avg
}

// Create records the caller's review of productID.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, productID string, rating int, comment string) (*Review, error) {
	if caller == nil {
		return nil, auth.ErrUnauthenticated
	}
	comment = strings.TrimSpace(comment)
	switch n := utf8.RuneCountInString(comment); {
	case rating < MinRating || rating > MaxRating:
		return nil, errors.Wrapf(ErrInvalid, "rating must be between %d and %d", MinRating, MaxRating)
	case n < minCommentLen:
		return nil, errors.Wrapf(ErrInvalid, "comment must be at least %d characters", minCommentLen)
	case n > maxCommentLen:
		return nil, errors.Wrapf(ErrInvalid, "comment must be at most %d characters", maxCommentLen)
	}

	bought, err := s.purchases.HasPurchased(ctx, caller.UserID, productID)
	if err != nil {
		return nil, errors.Wrap(err, "check purchase")
	}
	if !bought {
		return nil, ErrNotPurchased
	}

	r := &Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    caller.UserID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	if u, err := s.users.GetByID(ctx, caller.UserID); err == nil {
		r.UserName = u.FullName
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return nil, errors.Wrap(err, "get reviewer")
	}

	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create review")
	}
	zctx.From(ctx).Info("Review added",
		zap.String("product_id", productID),
		zap.String("user_id", caller.UserID),
		zap.Int("rating", rating),
	)
	return r, nil
}

// Delete removes a review.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrap(err, "delete review")
	}
	return nil
}
