package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/notify"
	"github.com/muratkomurcu/october4mama/internal/domain/payment"
	"github.com/muratkomurcu/october4mama/internal/domain/pricing"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
)

// maxNumberAttempts bounds the retries on order-number collisions.
const maxNumberAttempts = 5

// CartClearer empties a member's cart once their order is handed to the
// payment gateway.
type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Recorder receives lifecycle measurements.
type Recorder interface {
	OrderCreated(ctx context.Context, guest bool)
	PaymentSettled(ctx context.Context, total decimal.Decimal)
	PaymentFailed(ctx context.Context)
	OrderRestocked(ctx context.Context, units int)
	PendingSwept(ctx context.Context, n int64)
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated(context.Context, bool)              {}
func (nopRecorder) PaymentSettled(context.Context, decimal.Decimal) {}
func (nopRecorder) PaymentFailed(context.Context)                   {}
func (nopRecorder) OrderRestocked(context.Context, int)             {}
func (nopRecorder) PendingSwept(context.Context, int64)             {}

// Deps are the collaborators of the lifecycle Service.
type Deps struct {
	Products product.Repository
	Coupons  coupon.Repository
	Orders   Repository
	Users    auth.UserRepository
	Gateway  payment.Gateway
	Notifier notify.Dispatcher
	Carts    CartClearer
	Pricing  *pricing.Engine
	Metrics  Recorder
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Config tunes the lifecycle Service.
type Config struct {
	// CallbackURL is where the gateway posts the checkout result.
	CallbackURL string
	// Installments offered on the payment form.
	Installments []int
	// StaleAfter is the age at which an unpaid order is purged.
	StaleAfter time.Duration
	// NumberPrefix is the order-number brand prefix.
	NumberPrefix string
}

// Service orchestrates an order from checkout to settlement, fulfilment and
// cleanup.
type Service struct {
	products product.Repository
	coupons  coupon.Repository
	orders   Repository
	users    auth.UserRepository
	gateway  payment.Gateway
	notifier notify.Dispatcher
	carts    CartClearer
	pricing  *pricing.Engine
	metrics  Recorder
	numbers  *NumberGenerator
	cfg      Config
	now      func() time.Time

	confirmations singleflight.Group
}

// NewService wires a lifecycle Service.
func NewService(deps Deps, cfg Config) *Service {
	s := &Service{
		products: deps.Products,
		coupons:  deps.Coupons,
		orders:   deps.Orders,
		users:    deps.Users,
		gateway:  deps.Gateway,
		notifier: deps.Notifier,
		carts:    deps.Carts,
		pricing:  deps.Pricing,
		metrics:  deps.Metrics,
		numbers:  NewNumberGenerator(cfg.NumberPrefix),
		cfg:      cfg,
		now:      time.Now,
	}
	if deps.Clock != nil {
		s.now = deps.Clock
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.pricing == nil {
		s.pricing = pricing.New()
	}
	if s.cfg.StaleAfter <= 0 {
		s.cfg.StaleAfter = 48 * time.Hour
	}
	if len(s.cfg.Installments) == 0 {
		s.cfg.Installments = []int{1, 2, 3, 6, 9}
	}
	return s
}

// LineRequest is a requested product and quantity. Client prices are never
// accepted.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// Contact is the customer as entered on the checkout form.
type Contact struct {
	FullName string
	Email    string
	Phone    string
}

// Address is the structured shipping address.
type Address struct {
	Street     string
	District   string
	City       string
	PostalCode string
}

// String flattens the address the way it is stored on the order.
func (a Address) String() string {
	return strings.TrimSpace(fmt.Sprintf("%s, %s, %s %s", a.Street, a.District, a.City, a.PostalCode))
}

// CreateRequest is the input of CreatePendingOrder. Identity nil means a
// guest checkout, which then requires Guest.
type CreateRequest struct {
	Identity        *auth.Identity
	Guest           *Guest
	ShippingAddress string
	Items           []LineRequest
	CouponCode      string
}

// CreatePendingOrder re-prices every line from the catalog, checks stock,
// re-validates the coupon against its live state and stores the order with
// payment pending. Neither stock nor coupon usage change here.
func (s *Service) CreatePendingOrder(ctx context.Context, req CreateRequest) (*Order, error) {
	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, ErrShippingAddress
	}

	o := &Order{
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		PaymentMethod:   PaymentCreditCard,
		PaymentStatus:   PaymentPending,
		Status:          StatusPreparing,
	}
	if req.Identity != nil {
		o.UserID = req.Identity.UserID
	} else {
		if req.Guest == nil || req.Guest.FullName == "" || req.Guest.Email == "" || req.Guest.Phone == "" {
			return nil, ErrGuestContact
		}
		g := *req.Guest
		o.Guest = &g
	}
	if err := o.CheckOwner(); err != nil {
		return nil, err
	}

	priced, err := s.priceLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	var rule *coupon.Rule
	if code := coupon.NormalizeCode(req.CouponCode); code != "" {
		rule, err = s.loadCoupon(ctx, code, priced)
		if err != nil {
			return nil, err
		}
	}

	quote, err := s.pricing.Price(priced.lines, rule)
	if err != nil {
		return nil, errors.Wrap(err, "price order")
	}
	if !quote.Total.IsPositive() {
		return nil, ErrNothingToCharge
	}

	o.Items = priced.items
	o.ProductTotal = quote.ProductTotal
	o.ShippingCost = quote.ShippingCost
	o.DiscountAmount = quote.DiscountAmount
	o.Total = quote.Total
	if rule != nil {
		o.CouponCode = rule.Code
	}

	if err := s.insert(ctx, o); err != nil {
		return nil, err
	}

	s.metrics.OrderCreated(ctx, o.IsGuest())
	zctx.From(ctx).Info("Pending order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.Stringer("total", o.Total),
		zap.Bool("guest", o.IsGuest()),
	)
	return o, nil
}

func mergeLines(items []LineRequest) ([]LineRequest, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	merged := make([]LineRequest, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged, nil
}

type pricedLines struct {
	lines []pricing.Line
	items []Item
}

func (s *Service) priceLines(ctx context.Context, reqs []LineRequest) (*pricedLines, error) {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	out := &pricedLines{
		lines: make([]pricing.Line, 0, len(reqs)),
		items: make([]Item, 0, len(reqs)),
	}
	for _, r := range reqs {
		p, ok := byID[r.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: r.ProductID}
		}
		if !p.Available(r.Quantity) {
			remaining := p.StockQuantity
			if !p.InStock || remaining < 0 {
				remaining = 0
			}
			return nil, &InsufficientStockError{ProductID: p.ID, Name: p.Name, Remaining: remaining}
		}
		line := pricing.Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  r.Quantity,
		}
		out.lines = append(out.lines, line)
		out.items = append(out.items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Quantity:  r.Quantity,
			UnitPrice: p.Price,
			Subtotal:  line.Subtotal().Round(2),
		})
	}
	return out, nil
}

func (s *Service) loadCoupon(ctx context.Context, code string, priced *pricedLines) (*coupon.Rule, error) {
	rule, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return nil, &coupon.RejectedError{Code: code, Reason: coupon.ReasonNotFound}
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	if _, err := coupon.Evaluate(rule, pricing.CouponItems(priced.lines), s.now()); err != nil {
		return nil, err
	}
	return rule, nil
}

// insert stores o under a fresh order number, retrying on collisions.
func (s *Service) insert(ctx context.Context, o *Order) error {
	now := s.now()
	o.ID = uuid.NewString()
	o.CreatedAt = now
	o.UpdatedAt = now

	for attempt := 1; ; attempt++ {
		o.Number = s.numbers.Next()
		err := s.orders.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateNumber) || attempt == maxNumberAttempts {
			return errors.Wrap(err, "create order")
		}
		zctx.From(ctx).Debug("Order number collision, retrying",
			zap.String("order_number", o.Number),
			zap.Int("attempt", attempt),
		)
	}
}

// Buyer carries the request details the gateway needs besides the order.
type Buyer struct {
	Contact  Contact
	Address  Address
	ClientIP string
}

// Checkout is a started hosted-payment session for an order.
type Checkout struct {
	Order   *Order
	Session *payment.CheckoutSession
}

// BeginPayment hands a pending order to the gateway. Whatever goes wrong,
// the order is deleted so no half-started checkout is left behind.
func (s *Service) BeginPayment(ctx context.Context, o *Order, buyer Buyer) (*Checkout, error) {
	session, err := s.startSession(ctx, o, buyer)
	if err != nil {
		if delErr := s.orders.Delete(ctx, o.ID); delErr != nil {
			zctx.From(ctx).Error("Failed to delete order after payment start failure",
				zap.String("order_id", o.ID),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	if o.UserID != "" && s.carts != nil {
		if err := s.carts.Clear(ctx, o.UserID); err != nil {
			zctx.From(ctx).Warn("Failed to clear cart after checkout",
				zap.String("user_id", o.UserID),
				zap.Error(err),
			)
		}
	}

	return &Checkout{Order: o, Session: session}, nil
}

func (s *Service) startSession(ctx context.Context, o *Order, buyer Buyer) (*payment.CheckoutSession, error) {
	lines := make([]pricing.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = pricing.Line{ProductID: it.ProductID, Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	basket, err := pricing.Basket(pricing.Quote{
		ProductTotal:   o.ProductTotal,
		DiscountAmount: o.DiscountAmount,
		ShippingCost:   o.ShippingCost,
		Total:          o.Total,
	}, lines)
	if err != nil {
		return nil, err
	}

	buyerID := o.UserID
	if buyerID == "" {
		buyerID = "guest-" + o.ID
	}
	name, surname := SplitName(buyer.Contact.FullName)

	session, err := s.gateway.Initialize(ctx, payment.CheckoutRequest{
		ConversationID: o.Number,
		BasketID:       o.ID,
		Price:          o.Total,
		CallbackURL:    s.cfg.CallbackURL,
		Installments:   s.cfg.Installments,
		Items:          basket,
		Buyer: payment.Buyer{
			ID:          buyerID,
			Name:        name,
			Surname:     surname,
			Email:       buyer.Contact.Email,
			Phone:       NormalizePhone(buyer.Contact.Phone),
			IP:          buyer.ClientIP,
			ContactName: buyer.Contact.FullName,
			Address:     o.ShippingAddress,
			City:        buyer.Address.City,
			ZipCode:     buyer.Address.PostalCode,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "initialize payment")
	}

	if err := s.orders.AttachPaymentToken(ctx, o.ID, session.Token); err != nil {
		return nil, errors.Wrap(err, "store payment token")
	}
	o.Payment.Token = session.Token
	o.Payment.ConversationID = o.Number
	return session, nil
}

// CheckoutRequest is a full checkout as submitted by the storefront.
type CheckoutRequest struct {
	Identity   *auth.Identity
	Customer   Contact
	Address    Address
	Items      []LineRequest
	CouponCode string
	ClientIP   string
}

// Checkout creates the pending order and starts its payment session.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	create := CreateRequest{
		Identity:        req.Identity,
		ShippingAddress: req.Address.String(),
		Items:           req.Items,
		CouponCode:      req.CouponCode,
	}
	if req.Identity == nil {
		create.Guest = &Guest{
			FullName: strings.TrimSpace(req.Customer.FullName),
			Email:    strings.TrimSpace(req.Customer.Email),
			Phone:    strings.TrimSpace(req.Customer.Phone),
		}
	}

	o, err := s.CreatePendingOrder(ctx, create)
	if err != nil {
		return nil, err
	}
	return s.BeginPayment(ctx, o, Buyer{Contact: req.Customer, Address: req.Address, ClientIP: req.ClientIP})
}

// SplitName splits a full name into first name and surname. A single word
// is used for both.
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// NormalizePhone strips whitespace and prefixes Turkish numbers with +90.
func NormalizePhone(phone string) string {
	phone = strings.Join(strings.Fields(phone), "")
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+90" + strings.TrimPrefix(phone, "0")
}
