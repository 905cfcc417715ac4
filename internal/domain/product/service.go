package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrInvalid is returned for catalog edits that break a product invariant.
var ErrInvalid = errors.New("invalid product")

// Service implements the catalog operations exposed to shoppers and admins.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return p, nil
}

// GetMany returns the products among ids that exist.
func (s *Service) GetMany(ctx context.Context, ids []string) ([]Product, error) {
	products, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	return products, nil
}

// Create stores a new product. A nil stock means DefaultStock.
func (s *Service) Create(ctx context.Context, p *Product, stock *int) error {
	p.StockQuantity = DefaultStock
	if stock != nil {
		p.StockQuantity = *stock
	}
	p.InStock = p.StockQuantity > 0
	if err := p.check(); err != nil {
		return err
	}

	now := s.now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.repo.Create(ctx, p); err != nil {
		return errors.Wrapf(err, "create product %q", p.Name)
	}
	return nil
}

// Update replaces the editable fields of p. InStock follows the stock count
// unless the admin explicitly takes a stocked product off sale.
func (s *Service) Update(ctx context.Context, p *Product) error {
	current, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return errors.Wrapf(err, "get product %q", p.ID)
	}
	if p.StockQuantity <= 0 {
		p.InStock = false
	}
	if err := p.check(); err != nil {
		return err
	}
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return errors.Wrapf(err, "update product %q", p.ID)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete product %q", id)
	}
	return nil
}

func (p *Product) check() error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return errors.Wrap(ErrInvalid, "name is required")
	case !p.Category.Valid():
		return errors.Wrapf(ErrInvalid, "unknown category %q", p.Category)
	case !p.Price.IsPositive():
		return errors.Wrap(ErrInvalid, "price must be positive")
	case p.StockQuantity < 0:
		return errors.Wrap(ErrInvalid, "stock must not be negative")
	}
	p.Price = p.Price.Round(2)
	return nil
}
