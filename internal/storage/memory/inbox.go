package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/muratkomurcu/october4mama/internal/domain/contact"
	"github.com/muratkomurcu/october4mama/internal/domain/review"
)

// Reviews is the in-memory product review table.
type Reviews struct{ s *Store }

func (r *Reviews) ListByProduct(_ context.Context, productID string) ([]review.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]review.Review, 0)
	for _, rv := range r.s.reviews {
		if rv.ProductID == productID {
			out = append(out, rv)
		}
	}
	slices.SortFunc(out, func(a, b review.Review) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *Reviews) Create(_ context.Context, rv *review.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, prev := range r.s.reviews {
		if prev.ProductID == rv.ProductID && prev.UserID == rv.UserID {
			return review.ErrAlreadyReviewed
		}
	}
	r.s.reviews[rv.ID] = *rv
	return nil
}

func (r *Reviews) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[id]; !ok {
		return review.ErrNotFound
	}
	delete(r.s.reviews, id)
	return nil
}

// Messages is the in-memory contact inbox.
type Messages struct{ s *Store }

func (r *Messages) Create(_ context.Context, m *contact.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.messages[m.ID] = *m
	return nil
}

func (r *Messages) List(_ context.Context) ([]contact.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]contact.Message, 0, len(r.s.messages))
	for _, m := range r.s.messages {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b contact.Message) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *Messages) MarkRead(_ context.Context, id string) (*contact.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, contact.ErrNotFound
	}
	m.Read = true
	r.s.messages[id] = m
	return &m, nil
}

func (r *Messages) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.messages[id]; !ok {
		return contact.ErrNotFound
	}
	delete(r.s.messages, id)
	return nil
}
