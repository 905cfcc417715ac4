package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/cart"
	"github.com/muratkomurcu/october4mama/internal/domain/contact"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/order"
	"github.com/muratkomurcu/october4mama/internal/domain/payment"
	"github.com/muratkomurcu/october4mama/internal/domain/pricing"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
	"github.com/muratkomurcu/october4mama/internal/domain/review"
	"github.com/muratkomurcu/october4mama/internal/domain/spin"
)

// notFound lists sentinels answered with 404 and their own message.
var notFound = []error{
	product.ErrNotFound,
	order.ErrNotFound,
	coupon.ErrNotFound,
	cart.ErrItemNotFound,
	auth.ErrUserNotFound,
	review.ErrNotFound,
	contact.ErrNotFound,
}

var invalid = []error{
	order.ErrEmptyItems,
	order.ErrGuestContact,
	order.ErrShippingAddress,
	order.ErrOwnerConflict,
	cart.ErrInvalidQuantity,
	product.ErrInvalid,
	coupon.ErrInvalidRule,
	pricing.ErrEmptyCart,
	review.ErrInvalid,
	contact.ErrInvalid,
}

var conflict = []error{
	coupon.ErrDuplicateCode,
	order.ErrInvalidTransition,
	order.ErrConcurrentUpdate,
	order.ErrNoPaymentToken,
	cart.ErrOutOfStock,
	spin.ErrAlreadySpun,
	review.ErrAlreadyReviewed,
}

var unprocessable = []error{
	order.ErrNothingToCharge,
	pricing.ErrNothingToCharge,
}

type apiError struct {
	status  int
	message string
	reason  string
}

func classify(err error) apiError {
	var (
		bad      *badRequestError
		rejected *coupon.RejectedError
		stock    *order.InsufficientStockError
		missing  *order.ProductNotFoundError
		qty      *order.InvalidQuantityError
		gateway  *payment.RejectedError
	)
	switch {
	case errors.As(err, &bad):
		return apiError{status: http.StatusBadRequest, message: bad.msg}
	case errors.Is(err, auth.ErrUnauthenticated):
		return apiError{status: http.StatusUnauthorized, message: auth.ErrUnauthenticated.Error()}
	case errors.Is(err, auth.ErrForbidden):
		return apiError{status: http.StatusForbidden, message: auth.ErrForbidden.Error()}
	case errors.Is(err, review.ErrNotPurchased):
		return apiError{status: http.StatusForbidden, message: review.ErrNotPurchased.Error()}
	case errors.As(err, &rejected):
		status := http.StatusUnprocessableEntity
		if rejected.Reason == coupon.ReasonNotFound {
			status = http.StatusNotFound
		}
		return apiError{status: status, message: errors.Unwrap(rejected).Error(), reason: string(rejected.Reason)}
	case errors.As(err, &stock):
		return apiError{status: http.StatusConflict, message: stock.Error()}
	case errors.As(err, &missing):
		return apiError{status: http.StatusNotFound, message: missing.Error()}
	case errors.As(err, &qty):
		return apiError{status: http.StatusBadRequest, message: qty.Error()}
	case errors.As(err, &gateway):
		return apiError{status: http.StatusBadGateway, message: gateway.Message}
	case errors.Is(err, payment.ErrUnavailable):
		return apiError{status: http.StatusServiceUnavailable, message: payment.ErrUnavailable.Error()}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return apiError{status: http.StatusNotFound, message: target.Error()}
		}
	}
	for _, target := range invalid {
		if errors.Is(err, target) {
			return apiError{status: http.StatusBadRequest, message: err.Error()}
		}
	}
	for _, target := range conflict {
		if errors.Is(err, target) {
			return apiError{status: http.StatusConflict, message: err.Error()}
		}
	}
	for _, target := range unprocessable {
		if errors.Is(err, target) {
			return apiError{status: http.StatusUnprocessableEntity, message: target.Error()}
		}
	}
	return apiError{status: http.StatusInternalServerError, message: "internal server error"}
}

// fail maps err to a status and writes the error envelope. Unexpected
// errors are logged and answered without detail.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	lg := zctx.From(r.Context())
	if e.status >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("status", e.status), zap.Error(err))
	}
	writeJSON(w, r, e.status, envelope{Message: e.message, Reason: e.reason})
}
