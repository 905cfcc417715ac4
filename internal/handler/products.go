package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GET /api/products
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProduct(&products[i]))
	}
	respond(w, r, http.StatusOK, out)
}

// GET /api/products/{id}
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toProduct(p))
}

// POST /api/products
func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p := req.product()
	if err := h.products.Create(r.Context(), p, req.StockQuantity); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, toProduct(p))
}

// PUT /api/products/{id}
func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	current, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}

	p := req.product()
	p.ID = current.ID
	p.StockQuantity = current.StockQuantity
	if req.StockQuantity != nil {
		p.StockQuantity = *req.StockQuantity
	}
	p.InStock = p.StockQuantity > 0
	if req.InStock != nil {
		p.InStock = *req.InStock
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toProduct(p))
}

// DELETE /api/products/{id}
func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	respondMessage(w, r, "product deleted")
}
