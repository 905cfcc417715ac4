package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category is the pet a product is made for.
type Category string

const (
	CategoryCat Category = "kedi"
	CategoryDog Category = "köpek"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryCat || c == CategoryDog
}

// DefaultStock is the stock a product receives when none is given on creation.
const DefaultStock = 100

// Product is a catalog item. Price is authoritative for every order created
// from it; cart snapshots are advisory only.
type Product struct {
	ID            string
	Name          string
	Description   string
	Category      Category
	AgeGroup      string
	Weight        string
	Image         string
	Price         decimal.Decimal
	StockQuantity int
	InStock       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Available reports whether qty units can be sold from the current stock.
func (p *Product) Available(qty int) bool {
	return p.InStock && qty <= p.StockQuantity
}

// Repository defines the catalog store.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
