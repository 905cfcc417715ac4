package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Service implements the admin operations on coupon definitions.
type Service struct {
	repo Repository
}

// NewService creates a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every coupon, newest first.
func (s *Service) List(ctx context.Context) ([]Rule, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return rules, nil
}

// Create stores a new coupon. The code is upper-cased and must be unique;
// the usage counter always starts at zero.
func (s *Service) Create(ctx context.Context, r *Rule) error {
	r.Normalize()
	if err := r.Check(); err != nil {
		return err
	}
	r.ID = uuid.NewString()
	r.UsedCount = 0
	if err := s.repo.Create(ctx, r); err != nil {
		return errors.Wrapf(err, "create coupon %q", r.Code)
	}
	return nil
}

// Update replaces the editable fields of an existing coupon. The usage
// counter is carried over from the stored record.
func (s *Service) Update(ctx context.Context, r *Rule) error {
	current, err := s.repo.GetByID(ctx, r.ID)
	if err != nil {
		return errors.Wrapf(err, "get coupon %q", r.ID)
	}
	r.Normalize()
	if err := r.Check(); err != nil {
		return err
	}
	r.UsedCount = current.UsedCount
	r.CreatedAt = current.CreatedAt
	if err := s.repo.Update(ctx, r); err != nil {
		return errors.Wrapf(err, "update coupon %q", r.Code)
	}
	return nil
}

// Delete removes a coupon. Orders keep the code they were priced with.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete coupon %q", id)
	}
	return nil
}
