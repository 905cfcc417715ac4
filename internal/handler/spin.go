package handler

import (
	"net/http"
)

// GET /api/spin-wheel/status
func (h *Handler) spinStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.spins.Status(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, spinStatusResponse{
		CanSpin:      st.CanSpin,
		LastSpinDate: st.LastSpinAt,
		CouponCode:   st.CouponCode,
		Prize:        st.Prize,
	})
}

// POST /api/spin-wheel/spin
func (h *Handler) spin(w http.ResponseWriter, r *http.Request) {
	out, err := h.spins.Spin(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, spinResponse{
		SegmentIndex:  out.SegmentIndex,
		Prize:         out.Prize,
		CouponCode:    out.CouponCode,
		DiscountType:  string(out.DiscountType),
		DiscountValue: out.Value,
		ExpiresAt:     out.ExpiresAt,
	})
}
