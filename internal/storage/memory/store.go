// Package memory is a process-local implementation of every repository. It
// keeps the same atomicity guarantees as the Postgres store by serialising
// all writes behind one lock, and backs local development and tests.
package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/cart"
	"github.com/muratkomurcu/october4mama/internal/domain/contact"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/order"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
	"github.com/muratkomurcu/october4mama/internal/domain/review"
	"github.com/muratkomurcu/october4mama/internal/domain/spin"
)

// Store holds all entities. Use the accessor methods to get per-entity
// repositories.
type Store struct {
	mu       sync.RWMutex
	products map[string]product.Product
	coupons  map[string]coupon.Rule
	carts    map[string]cart.Cart
	orders   map[string]order.Order
	users    map[string]auth.User
	spins    map[string][]spin.Record
	reviews  map[string]review.Review
	messages map[string]contact.Message
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		products: make(map[string]product.Product),
		coupons:  make(map[string]coupon.Rule),
		carts:    make(map[string]cart.Cart),
		orders:   make(map[string]order.Order),
		users:    make(map[string]auth.User),
		spins:    make(map[string][]spin.Record),
		reviews:  make(map[string]review.Review),
		messages: make(map[string]contact.Message),
		now:      time.Now,
	}
}

func (s *Store) Products() *Products { return &Products{s: s} }
func (s *Store) Coupons() *Coupons   { return &Coupons{s: s} }
func (s *Store) Carts() *Carts       { return &Carts{s: s} }
func (s *Store) Orders() *Orders     { return &Orders{s: s} }
func (s *Store) Users() *Users       { return &Users{s: s} }
func (s *Store) Spins() *Spins       { return &Spins{s: s} }
func (s *Store) Reviews() *Reviews   { return &Reviews{s: s} }
func (s *Store) Messages() *Messages { return &Messages{s: s} }

var (
	_ product.Repository  = (*Products)(nil)
	_ coupon.Repository   = (*Coupons)(nil)
	_ cart.Repository     = (*Carts)(nil)
	_ order.Repository    = (*Orders)(nil)
	_ auth.UserRepository = (*Users)(nil)
	_ spin.Repository     = (*Spins)(nil)
	_ spin.CouponStore    = (*Coupons)(nil)
	_ review.Repository   = (*Reviews)(nil)
	_ review.Purchases    = (*Orders)(nil)
	_ contact.Repository  = (*Messages)(nil)
)

func cloneRule(r coupon.Rule) coupon.Rule {
	r.ApplicableProducts = slices.Clone(r.ApplicableProducts)
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		r.ExpiresAt = &t
	}
	return r
}

func cloneCart(c cart.Cart) cart.Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

func cloneOrder(o order.Order) *order.Order {
	o.Items = slices.Clone(o.Items)
	if o.Guest != nil {
		g := *o.Guest
		o.Guest = &g
	}
	return &o
}
