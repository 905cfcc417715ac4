package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
)

// POST /api/coupons/validate
//
// Lines are priced from the catalog; unknown products are ignored. A request
// without lines is treated as one unattributed line worth cartTotal.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	items, err := h.couponItems(r, req)
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.validator.Validate(r.Context(), req.Code, items)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, couponValidation{
		Valid:          true,
		Code:           res.Rule.Code,
		DiscountType:   string(res.Rule.DiscountType),
		DiscountValue:  money(res.Rule.Value),
		DiscountAmount: money(res.Discount.Amount),
		EligibleTotal:  money(res.Discount.EligibleTotal),
		RemainingUses:  res.RemainingUses,
	})
}

func (h *Handler) couponItems(r *http.Request, req validateCouponRequest) ([]coupon.Item, error) {
	if len(req.CartItems) == 0 {
		if req.CartTotal.IsNegative() {
			return nil, badRequest("cartTotal must not be negative")
		}
		return []coupon.Item{{Price: req.CartTotal, Quantity: 1}}, nil
	}

	ids := make([]string, 0, len(req.CartItems))
	for _, it := range req.CartItems {
		ids = append(ids, it.ID)
	}
	products, err := h.products.GetMany(r.Context(), ids)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}

	items := make([]coupon.Item, 0, len(req.CartItems))
	for _, it := range req.CartItems {
		price, ok := prices[it.ID]
		if !ok {
			continue
		}
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		items = append(items, coupon.Item{ProductID: it.ID, Price: price, Quantity: qty})
	}
	return items, nil
}

// GET /api/coupons
func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	rules, err := h.coupons.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]couponResponse, 0, len(rules))
	for i := range rules {
		out = append(out, toCoupon(&rules[i]))
	}
	respond(w, r, http.StatusOK, out)
}

// POST /api/coupons
func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	rule := req.rule()
	if err := h.coupons.Create(r.Context(), rule); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, toCoupon(rule))
}

// PUT /api/coupons/{id}
func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	rule := req.rule()
	rule.ID = chi.URLParam(r, "id")
	if err := h.coupons.Update(r.Context(), rule); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toCoupon(rule))
}

// DELETE /api/coupons/{id}
func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	respondMessage(w, r, "coupon deleted")
}
