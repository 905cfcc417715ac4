package memory

import (
	"context"
	"slices"
	"time"

	"github.com/muratkomurcu/october4mama/internal/domain/order"
)

// Orders is the in-memory order store.
type Orders struct{ s *Store }

func (r *Orders) Create(_ context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := o.CheckOwner(); err != nil {
		return err
	}
	for _, existing := range r.s.orders {
		if existing.Number == o.Number {
			return order.ErrDuplicateNumber
		}
	}
	r.s.orders[o.ID] = *cloneOrder(*o)
	return nil
}

func (r *Orders) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *Orders) GetByNumber(_ context.Context, number string) (*order.Order, error) {
	return r.find(func(o *order.Order) bool { return o.Number == number })
}

func (r *Orders) GetByPaymentToken(_ context.Context, token string) (*order.Order, error) {
	if token == "" {
		return nil, order.ErrNotFound
	}
	return r.find(func(o *order.Order) bool { return o.Payment.Token == token })
}

func (r *Orders) find(match func(*order.Order) bool) (*order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, o := range r.s.orders {
		if match(&o) {
			return cloneOrder(o), nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *Orders) AttachPaymentToken(_ context.Context, id, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Payment.Token = token
	o.Payment.ConversationID = o.Number
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return nil
}

func (r *Orders) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[id]; !ok {
		return order.ErrNotFound
	}
	delete(r.s.orders, id)
	return nil
}

func (r *Orders) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]order.Order, 0)
	for _, o := range r.s.orders {
		if (o.PaymentStatus == order.PaymentPending) != f.Pending {
			continue
		}
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	slices.SortFunc(out, func(a, b order.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (r *Orders) HasPurchased(_ context.Context, userID, productID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, o := range r.s.orders {
		if o.UserID != userID || o.PaymentStatus != order.PaymentPaid {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *Orders) Settle(_ context.Context, id string, ref order.PaymentRef) (*order.Settlement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.PaymentStatus != order.PaymentPending {
		return &order.Settlement{Order: cloneOrder(o)}, nil
	}

	st := &order.Settlement{Settled: true}
	for _, it := range o.Items {
		p, ok := r.s.products[it.ProductID]
		if !ok {
			continue
		}
		p.StockQuantity -= it.Quantity
		p.InStock = p.StockQuantity > 0
		p.UpdatedAt = r.s.now()
		r.s.products[p.ID] = p
		if p.StockQuantity < 0 {
			st.Oversold = append(st.Oversold, p.ID)
		}
	}

	if o.CouponCode != "" {
		for cid, c := range r.s.coupons {
			if c.Code != o.CouponCode {
				continue
			}
			if c.UsedCount < c.MaxUses {
				c.UsedCount++
				r.s.coupons[cid] = c
				st.CouponCounted = true
			}
			break
		}
	}

	o.PaymentStatus = order.PaymentPaid
	o.Payment = mergeRef(o.Payment, ref)
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	st.Order = cloneOrder(o)
	return st, nil
}

func mergeRef(cur, next order.PaymentRef) order.PaymentRef {
	if next.Token != "" {
		cur.Token = next.Token
	}
	if next.ConversationID != "" {
		cur.ConversationID = next.ConversationID
	}
	if next.PaymentID != "" {
		cur.PaymentID = next.PaymentID
	}
	if next.TransactionID != "" {
		cur.TransactionID = next.TransactionID
	}
	return cur
}

func (r *Orders) CancelPayment(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.PaymentStatus != order.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = order.PaymentCancelled
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return true, nil
}

func (r *Orders) UpdateStatus(_ context.Context, id string, ch order.StatusChange) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.Status != ch.From {
		return false, nil
	}

	if ch.Restock {
		for _, it := range o.Items {
			p, ok := r.s.products[it.ProductID]
			if !ok {
				continue
			}
			p.StockQuantity += it.Quantity
			p.InStock = p.StockQuantity > 0
			p.UpdatedAt = r.s.now()
			r.s.products[p.ID] = p
		}
	}

	o.Status = ch.To
	if ch.TrackingNumber != nil {
		o.TrackingNumber = *ch.TrackingNumber
	}
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return true, nil
}

func (r *Orders) DeletePendingBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, o := range r.s.orders {
		if o.PaymentStatus == order.PaymentPending && o.CreatedAt.Before(cutoff) {
			delete(r.s.orders, id)
			n++
		}
	}
	return n, nil
}
