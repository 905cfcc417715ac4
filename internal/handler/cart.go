package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/cart"
)

func userID(r *http.Request) string {
	return auth.FromContext(r.Context()).UserID
}

// GET /api/cart
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toCart(c))
}

// POST /api/cart/items
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c, err := h.carts.Add(r.Context(), userID(r), req.ProductID, req.Quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toCart(c))
}

// PUT /api/cart/items/{productId}
func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.carts.UpdateQuantity(r.Context(), userID(r), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toCart(c))
}

// DELETE /api/cart/items/{productId}
func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Remove(r.Context(), userID(r), chi.URLParam(r, "productId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toCart(c))
}

// PUT /api/cart/sync
func (h *Handler) syncCart(w http.ResponseWriter, r *http.Request) {
	var req syncCartRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	items := make([]cart.SyncItem, 0, len(req.Items))
	for _, it := range req.Items {
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		items = append(items, cart.SyncItem{ProductID: it.ID, Quantity: qty})
	}
	c, err := h.carts.Sync(r.Context(), userID(r), items)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toCart(c))
}

// DELETE /api/cart
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), userID(r)); err != nil {
		fail(w, r, err)
		return
	}
	respondMessage(w, r, "cart cleared")
}
