package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/order"
)

// GET /api/orders
func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toOrders(orders))
}

// GET /api/orders/admin/all
func (h *Handler) allOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toOrders(orders))
}

// GET /api/orders/admin/pending
func (h *Handler) pendingOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListPending(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toOrders(orders))
}

// GET /api/orders/{id}
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"), auth.FromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toOrder(o))
}

// PUT /api/orders/{id}/status
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.OrderStatus == nil && req.PaymentStatus == nil && req.TrackingNumber == nil {
		fail(w, r, badRequest("nothing to update"))
		return
	}

	var upd order.StatusUpdate
	if req.OrderStatus != nil {
		s := order.Status(*req.OrderStatus)
		upd.Status = &s
	}
	if req.PaymentStatus != nil {
		p := order.PaymentStatus(*req.PaymentStatus)
		upd.PaymentStatus = &p
	}
	upd.TrackingNumber = req.TrackingNumber

	o, err := h.orders.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toOrder(o))
}

// POST /api/orders/track
func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.Track(r.Context(), req.OrderNumber, req.Email)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, trackResponse{
		OrderNumber:    o.Number,
		OrderStatus:    string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		TrackingNumber: o.TrackingNumber,
		Items:          toOrderItems(o.Items),
		TotalPrice:     money(o.Total),
		CreatedAt:      o.CreatedAt,
	})
}
