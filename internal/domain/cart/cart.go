// Package cart implements the per-user shopping cart. Line prices are
// snapshots taken when a line is added or synced; checkout always re-prices
// from the catalog.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by a Repository when the user has no cart yet.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a line for the product is not in the cart.
	ErrItemNotFound = errors.New("product is not in the cart")
	// ErrInvalidQuantity is returned for quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrOutOfStock is returned when adding a product that cannot be sold.
	ErrOutOfStock = errors.New("product is out of stock")
)

// Item is a cart line.
type Item struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"addedAt"`
}

// Cart is owned 1:1 by a user.
type Cart struct {
	UserID    string    `json:"userId"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Total sums the snapshotted line prices.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(2)
}

// ItemCount sums the line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) find(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Repository persists carts. Save replaces every line of the cart.
type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}

// Cache is a read-through cache in front of the Repository. A miss is
// reported as ErrCacheMiss.
type Cache interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Set(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID string) error
}

// ErrCacheMiss is returned by a Cache that holds no entry for the user.
var ErrCacheMiss = errors.New("cart cache miss")
