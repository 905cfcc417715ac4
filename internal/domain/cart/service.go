package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/product"
)

// SyncItem is one client-side cart line submitted for synchronisation.
type SyncItem struct {
	ProductID string
	Quantity  int
}

// Service implements the cart operations.
type Service struct {
	carts    Repository
	products product.Repository
	cache    Cache
	now      func() time.Time
}

// NewService creates a cart Service. cache may be nil.
func NewService(carts Repository, products product.Repository, cache Cache) *Service {
	return &Service{
		carts:    carts,
		products: products,
		cache:    cache,
		now:      time.Now,
	}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	if s.cache != nil {
		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			zctx.From(ctx).Warn("Cart cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	c, err := s.carts.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		c = &Cart{UserID: userID, Items: []Item{}, UpdatedAt: s.now()}
		if err := s.carts.Save(ctx, c); err != nil {
			return nil, errors.Wrap(err, "create cart")
		}
	case err != nil:
		return nil, errors.Wrap(err, "get cart")
	}

	s.remember(ctx, c)
	return c, nil
}

// Add puts qty units of a product in the cart, merging with an existing line.
// The line price is refreshed from the catalog.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", productID)
	}
	if !p.InStock {
		return nil, ErrOutOfStock
	}

	return s.mutate(ctx, userID, func(c *Cart) error {
		now := s.now()
		if i := c.find(productID); i >= 0 {
			c.Items[i].Quantity += qty
			c.Items[i].Price = p.Price
			return nil
		}
		c.Items = append(c.Items, Item{ProductID: productID, Quantity: qty, Price: p.Price, AddedAt: now})
		return nil
	})
}

// UpdateQuantity sets the quantity of an existing line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, userID, func(c *Cart) error {
		i := c.find(productID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items[i].Quantity = qty
		return nil
	})
}

// Remove deletes the line for productID.
func (s *Service) Remove(ctx context.Context, userID, productID string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		i := c.find(productID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	})
}

// Clear empties the cart but keeps it.
func (s *Service) Clear(ctx context.Context, userID string) error {
	_, err := s.mutate(ctx, userID, func(c *Cart) error {
		c.Items = []Item{}
		return nil
	})
	return err
}

// Sync replaces the cart with the client's lines. Unknown products and
// non-positive quantities are dropped, duplicate products are merged, and
// prices are taken from the catalog.
func (s *Service) Sync(ctx context.Context, userID string, items []SyncItem) (*Cart, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	found, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	return s.mutate(ctx, userID, func(c *Cart) error {
		now := s.now()
		c.Items = []Item{}
		for _, it := range items {
			p, ok := byID[it.ProductID]
			if !ok || it.Quantity < 1 {
				continue
			}
			if i := c.find(p.ID); i >= 0 {
				c.Items[i].Quantity += it.Quantity
				continue
			}
			c.Items = append(c.Items, Item{ProductID: p.ID, Quantity: it.Quantity, Price: p.Price, AddedAt: now})
		}
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, userID string, fn func(*Cart) error) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		c = &Cart{UserID: userID, Items: []Item{}}
	case err != nil:
		return nil, errors.Wrap(err, "get cart")
	}

	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}

	s.forget(ctx, userID)
	return c, nil
}

func (s *Service) remember(ctx context.Context, c *Cart) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, c); err != nil {
		zctx.From(ctx).Warn("Cart cache write failed", zap.String("user_id", c.UserID), zap.Error(err))
	}
}

func (s *Service) forget(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		zctx.From(ctx).Warn("Cart cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}
