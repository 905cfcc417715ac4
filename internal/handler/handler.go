// Package handler exposes the shop over a JSON REST API.
package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/muratkomurcu/october4mama/internal/domain/cart"
	"github.com/muratkomurcu/october4mama/internal/domain/contact"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/order"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
	"github.com/muratkomurcu/october4mama/internal/domain/review"
	"github.com/muratkomurcu/october4mama/internal/domain/spin"
	"github.com/muratkomurcu/october4mama/pkg/httpmiddleware"
)

// DefaultClientURL is the storefront the payment callback redirects to.
const DefaultClientURL = "http://localhost:3000"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ClientURL is the storefront origin used for post-payment redirects.
	ClientURL string
	// Throttle guards the public lookup endpoints (order tracking and
	// coupon validation). Nil disables it.
	Throttle httpmiddleware.Middleware
}

// Deps are the services behind the API.
type Deps struct {
	Products  *product.Service
	Carts     *cart.Service
	Coupons   *coupon.Service
	Validator *coupon.Validator
	Orders    *order.Service
	Spins     *spin.Service
	Reviews   *review.Service
	Contact   *contact.Service
	Security  *Security
}

// Handler serves the REST API.
type Handler struct {
	products  *product.Service
	carts     *cart.Service
	coupons   *coupon.Service
	validator *coupon.Validator
	orders    *order.Service
	spins     *spin.Service
	reviews   *review.Service
	contact   *contact.Service
	security  *Security

	clientURL string
	throttle  httpmiddleware.Middleware
	validate  *validator.Validate
}

// New constructs a Handler.
func New(cfg Config, deps Deps) *Handler {
	h := &Handler{
		products:  deps.Products,
		carts:     deps.Carts,
		coupons:   deps.Coupons,
		validator: deps.Validator,
		orders:    deps.Orders,
		spins:     deps.Spins,
		reviews:   deps.Reviews,
		contact:   deps.Contact,
		security:  deps.Security,
		clientURL: strings.TrimRight(cfg.ClientURL, "/"),
		throttle:  cfg.Throttle,
		validate:  newValidate(),
	}
	if h.clientURL == "" {
		h.clientURL = DefaultClientURL
	}
	if h.throttle == nil {
		h.throttle = func(next http.Handler) http.Handler { return next }
	}
	return h
}

// Routes mounts the API under /api.
func (h *Handler) Routes(r chi.Router) {
	authn := h.security.Authenticate
	admin := RequireAdmin

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/{id}", h.getProduct)
			r.Group(func(r chi.Router) {
				r.Use(authn, admin)
				r.Post("/", h.createProduct)
				r.Put("/{id}", h.updateProduct)
				r.Delete("/{id}", h.deleteProduct)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addCartItem)
			r.Put("/items/{productId}", h.updateCartItem)
			r.Delete("/items/{productId}", h.removeCartItem)
			r.Put("/sync", h.syncCart)
		})

		r.Route("/coupons", func(r chi.Router) {
			r.With(h.throttle).Post("/validate", h.validateCoupon)
			r.Group(func(r chi.Router) {
				r.Use(authn, admin)
				r.Get("/", h.listCoupons)
				r.Post("/", h.createCoupon)
				r.Put("/{id}", h.updateCoupon)
				r.Delete("/{id}", h.deleteCoupon)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(h.throttle).Post("/track", h.trackOrder)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Get("/", h.myOrders)
				r.With(admin).Get("/admin/all", h.allOrders)
				r.With(admin).Get("/admin/pending", h.pendingOrders)
				r.Get("/{id}", h.getOrder)
				r.With(admin).Put("/{id}/status", h.updateOrderStatus)
			})
		})

		r.Route("/payment", func(r chi.Router) {
			r.With(h.security.Optional).Post("/initialize", h.initializePayment)
			r.Post("/callback", h.paymentCallback)
			r.With(authn).Get("/status/{orderNumber}", h.paymentStatus)
			r.With(authn, admin).Post("/verify/{orderId}", h.verifyPayment)
		})

		r.Route("/spin-wheel", func(r chi.Router) {
			r.Use(authn)
			r.Get("/status", h.spinStatus)
			r.Post("/spin", h.spin)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/{id}", h.productReviews)
			r.With(authn).Post("/{id}", h.createReview)
			r.With(authn, admin).Delete("/{id}", h.deleteReview)
		})

		r.Route("/contact", func(r chi.Router) {
			r.With(h.throttle).Post("/", h.sendContactMessage)
			r.Group(func(r chi.Router) {
				r.Use(authn, admin)
				r.Get("/", h.contactMessages)
				r.Put("/{id}/read", h.markContactMessageRead)
				r.Delete("/{id}", h.deleteContactMessage)
			})
		})
	})
}

// Router returns a chi router serving the API.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}
