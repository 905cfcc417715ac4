package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/cart"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
	"github.com/muratkomurcu/october4mama/internal/domain/spin"
)

// Products is the in-memory catalog.
type Products struct{ s *Store }

func (r *Products) List(_ context.Context) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]product.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *Products) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (r *Products) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Products) Create(_ context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.products[p.ID] = *p
	return nil
}

func (r *Products) Update(_ context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; !ok {
		return product.ErrNotFound
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *Products) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

// Coupons is the in-memory coupon store.
type Coupons struct{ s *Store }

func (r *Coupons) FindByCode(_ context.Context, code string) (*coupon.Rule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.coupons {
		if c.Code == code {
			c = cloneRule(c)
			return &c, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (r *Coupons) GetByID(_ context.Context, id string) (*coupon.Rule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	c = cloneRule(c)
	return &c, nil
}

func (r *Coupons) List(_ context.Context) ([]coupon.Rule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]coupon.Rule, 0, len(r.s.coupons))
	for _, c := range r.s.coupons {
		out = append(out, cloneRule(c))
	}
	slices.SortFunc(out, func(a, b coupon.Rule) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.Code, b.Code))
	})
	return out, nil
}

func (r *Coupons) Create(_ context.Context, c *coupon.Rule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.codeTaken(c.Code, c.ID) {
		return coupon.ErrDuplicateCode
	}
	r.s.coupons[c.ID] = cloneRule(*c)
	return nil
}

func (r *Coupons) Update(_ context.Context, c *coupon.Rule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.coupons[c.ID]; !ok {
		return coupon.ErrNotFound
	}
	if r.codeTaken(c.Code, c.ID) {
		return coupon.ErrDuplicateCode
	}
	r.s.coupons[c.ID] = cloneRule(*c)
	return nil
}

func (r *Coupons) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.coupons[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(r.s.coupons, id)
	return nil
}

func (r *Coupons) codeTaken(code, exceptID string) bool {
	for id, c := range r.s.coupons {
		if c.Code == code && id != exceptID {
			return true
		}
	}
	return false
}

// Carts is the in-memory cart store.
type Carts struct{ s *Store }

func (r *Carts) Get(_ context.Context, userID string) (*cart.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	c = cloneCart(c)
	return &c, nil
}

func (r *Carts) Save(_ context.Context, c *cart.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.carts[c.UserID] = cloneCart(*c)
	return nil
}

// Users is the in-memory user directory.
type Users struct{ s *Store }

func (r *Users) GetByID(_ context.Context, id string) (*auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (r *Users) Upsert(_ context.Context, u *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.users[u.ID] = *u
	return nil
}

// Spins is the in-memory wheel history.
type Spins struct{ s *Store }

func (r *Spins) Last(_ context.Context, userID string) (*spin.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := r.s.spins[userID]
	if len(recs) == 0 {
		return nil, spin.ErrNotFound
	}
	last := recs[len(recs)-1]
	return &last, nil
}

func (r *Spins) Save(_ context.Context, rec *spin.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, prev := range r.s.spins[rec.UserID] {
		if prev.Day.Equal(rec.Day) {
			return spin.ErrAlreadySpun
		}
	}
	r.s.spins[rec.UserID] = append(r.s.spins[rec.UserID], *rec)
	return nil
}
