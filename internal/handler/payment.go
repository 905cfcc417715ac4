package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/order"
	"github.com/muratkomurcu/october4mama/pkg/httpmiddleware"
)

// POST /api/payment/initialize
func (h *Handler) initializePayment(w http.ResponseWriter, r *http.Request) {
	var req initializePaymentRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	lines := make([]order.LineRequest, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, order.LineRequest{ProductID: it.ID, Quantity: it.Quantity})
	}
	co, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		Identity: auth.FromContext(r.Context()),
		Customer: order.Contact{
			FullName: req.Customer.FullName,
			Email:    req.Customer.Email,
			Phone:    req.Customer.Phone,
		},
		Address: order.Address{
			Street:     req.ShippingAddress.Address,
			District:   req.ShippingAddress.District,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
		},
		Items:      lines,
		CouponCode: req.CouponCode,
		ClientIP:   httpmiddleware.ClientIP(r),
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, paymentSession{
		Token:               co.Session.Token,
		CheckoutFormContent: co.Session.FormContent,
		PaymentPageURL:      co.Session.PaymentPageURL,
		OrderID:             co.Order.ID,
		OrderNumber:         co.Order.Number,
		TotalPrice:          money(co.Order.Total),
	})
}

// POST /api/payment/callback
//
// The gateway posts the checkout token as a form field. The shopper's
// browser follows the redirect back to the storefront either way.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")
	lg := zctx.From(r.Context())

	c, err := h.orders.ConfirmPayment(r.Context(), token)
	if err != nil {
		lg.Warn("Payment callback failed", zap.Error(err))
		h.redirect(w, r, "failed", "")
		return
	}
	if !c.Paid {
		lg.Info("Payment not completed",
			zap.String("order_number", c.Order.Number),
			zap.String("reason", c.FailureReason),
		)
		h.redirect(w, r, "failed", c.Order.Number)
		return
	}
	h.redirect(w, r, "success", c.Order.Number)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, status, number string) {
	q := url.Values{"status": {status}}
	if number != "" {
		q.Set("orderNumber", number)
	}
	http.Redirect(w, r, h.clientURL+"/payment?"+q.Encode(), http.StatusFound)
}

// GET /api/payment/status/{orderNumber}
func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.PaymentStatus(r.Context(), chi.URLParam(r, "orderNumber"), auth.FromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, paymentStatusResponse{
		OrderNumber:   o.Number,
		PaymentStatus: string(o.PaymentStatus),
		OrderStatus:   string(o.Status),
		TotalPrice:    money(o.Total),
	})
}

// POST /api/payment/verify/{orderId}
func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	c, err := h.orders.VerifyPayment(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, verifyResponse{
		Paid:           c.Paid,
		AlreadySettled: c.AlreadySettled,
		FailureReason:  c.FailureReason,
		Order:          toOrder(c.Order),
	})
}
