package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/muratkomurcu/october4mama/internal/domain/cart"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/order"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
)

// money renders as a JSON number with two decimals.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

func (m *money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = money(d)
	return nil
}

type productResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	AgeGroup      string    `json:"ageGroup,omitempty"`
	Weight        string    `json:"weight,omitempty"`
	Image         string    `json:"image,omitempty"`
	Price         money     `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	InStock       bool      `json:"inStock"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toProduct(p *product.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      string(p.Category),
		AgeGroup:      p.AgeGroup,
		Weight:        p.Weight,
		Image:         p.Image,
		Price:         money(p.Price),
		StockQuantity: p.StockQuantity,
		InStock:       p.InStock,
		CreatedAt:     p.CreatedAt,
	}
}

type productRequest struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	Category      string          `json:"category" validate:"required,oneof=kedi köpek"`
	AgeGroup      string          `json:"ageGroup"`
	Weight        string          `json:"weight"`
	Image         string          `json:"image"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity *int            `json:"stockQuantity" validate:"omitempty,min=0"`
	InStock       *bool           `json:"inStock"`
}

func (req *productRequest) product() *product.Product {
	return &product.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    product.Category(req.Category),
		AgeGroup:    req.AgeGroup,
		Weight:      req.Weight,
		Image:       req.Image,
		Price:       req.Price,
	}
}

type cartLine struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     money     `json:"price"`
	Subtotal  money     `json:"subtotal"`
	AddedAt   time.Time `json:"addedAt"`
}

type cartResponse struct {
	Items     []cartLine `json:"items"`
	Total     money      `json:"total"`
	ItemCount int        `json:"itemCount"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toCart(c *cart.Cart) cartResponse {
	lines := make([]cartLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, cartLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     money(it.Price),
			Subtotal:  money(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))),
			AddedAt:   it.AddedAt,
		})
	}
	return cartResponse{
		Items:     lines,
		Total:     money(c.Total()),
		ItemCount: c.ItemCount(),
		UpdatedAt: c.UpdatedAt,
	}
}

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=99"`
}

type syncCartRequest struct {
	Items []lineRequest `json:"items" validate:"dive"`
}

// lineRequest is a product reference as the storefront sends it.
type lineRequest struct {
	ID       string `json:"id" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=0,max=99"`
}

type couponResponse struct {
	ID                 string     `json:"id"`
	Code               string     `json:"code"`
	DiscountType       string     `json:"discountType"`
	DiscountValue      money      `json:"discountValue"`
	MaxUses            int        `json:"maxUses"`
	UsedCount          int        `json:"usedCount"`
	RemainingUses      int        `json:"remainingUses"`
	IsActive           bool       `json:"isActive"`
	ExpiresAt          *time.Time `json:"expiresAt"`
	AppliesTo          string     `json:"appliesTo"`
	ApplicableProducts []string   `json:"applicableProducts"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func toCoupon(r *coupon.Rule) couponResponse {
	products := r.ApplicableProducts
	if products == nil {
		products = []string{}
	}
	return couponResponse{
		ID:                 r.ID,
		Code:               r.Code,
		DiscountType:       string(r.DiscountType),
		DiscountValue:      money(r.Value),
		MaxUses:            r.MaxUses,
		UsedCount:          r.UsedCount,
		RemainingUses:      r.RemainingUses(),
		IsActive:           r.Active,
		ExpiresAt:          r.ExpiresAt,
		AppliesTo:          string(r.AppliesTo),
		ApplicableProducts: products,
		CreatedAt:          r.CreatedAt,
	}
}

type couponRequest struct {
	Code               string          `json:"code" validate:"required"`
	DiscountType       string          `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue      decimal.Decimal `json:"discountValue"`
	MaxUses            int             `json:"maxUses" validate:"min=0"`
	IsActive           *bool           `json:"isActive"`
	ExpiresAt          *time.Time      `json:"expiresAt"`
	AppliesTo          string          `json:"appliesTo" validate:"omitempty,oneof=all specific"`
	ApplicableProducts []string        `json:"applicableProducts"`
}

func (req *couponRequest) rule() *coupon.Rule {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &coupon.Rule{
		Code:               req.Code,
		DiscountType:       coupon.DiscountType(req.DiscountType),
		Value:              req.DiscountValue,
		MaxUses:            req.MaxUses,
		Active:             active,
		ExpiresAt:          req.ExpiresAt,
		AppliesTo:          coupon.Scope(req.AppliesTo),
		ApplicableProducts: req.ApplicableProducts,
	}
}

type validateCouponRequest struct {
	Code      string          `json:"code" validate:"required"`
	CartTotal decimal.Decimal `json:"cartTotal"`
	CartItems []lineRequest   `json:"cartItems" validate:"dive"`
}

type couponValidation struct {
	Valid          bool   `json:"valid"`
	Code           string `json:"code"`
	DiscountType   string `json:"discountType"`
	DiscountValue  money  `json:"discountValue"`
	DiscountAmount money  `json:"discountAmount"`
	EligibleTotal  money  `json:"eligibleTotal"`
	RemainingUses  int    `json:"remainingUses"`
}

type guestResponse struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type orderItemResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     money  `json:"price"`
	Subtotal  money  `json:"subtotal"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	UserID          string              `json:"userId,omitempty"`
	IsGuest         bool                `json:"isGuest"`
	GuestInfo       *guestResponse      `json:"guestInfo,omitempty"`
	Items           []orderItemResponse `json:"items"`
	ShippingAddress string              `json:"shippingAddress"`
	ProductTotal    money               `json:"productTotal"`
	ShippingCost    money               `json:"shippingCost"`
	DiscountAmount  money               `json:"discountAmount"`
	TotalPrice      money               `json:"totalPrice"`
	CouponCode      string              `json:"couponCode,omitempty"`
	PaymentMethod   string              `json:"paymentMethod"`
	PaymentStatus   string              `json:"paymentStatus"`
	OrderStatus     string              `json:"orderStatus"`
	TrackingNumber  string              `json:"trackingNumber,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func toOrderItems(items []order.Item) []orderItemResponse {
	out := make([]orderItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Quantity:  it.Quantity,
			Price:     money(it.UnitPrice),
			Subtotal:  money(it.Subtotal),
		})
	}
	return out
}

func toOrder(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		OrderNumber:     o.Number,
		UserID:          o.UserID,
		IsGuest:         o.IsGuest(),
		Items:           toOrderItems(o.Items),
		ShippingAddress: o.ShippingAddress,
		ProductTotal:    money(o.ProductTotal),
		ShippingCost:    money(o.ShippingCost),
		DiscountAmount:  money(o.DiscountAmount),
		TotalPrice:      money(o.Total),
		CouponCode:      o.CouponCode,
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		OrderStatus:     string(o.Status),
		TrackingNumber:  o.TrackingNumber,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.Guest != nil {
		resp.GuestInfo = &guestResponse{FullName: o.Guest.FullName, Email: o.Guest.Email, Phone: o.Guest.Phone}
	}
	return resp
}

func toOrders(orders []order.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrder(&orders[i]))
	}
	return out
}

// trackResponse is the public view of an order; no contact details.
type trackResponse struct {
	OrderNumber    string              `json:"orderNumber"`
	OrderStatus    string              `json:"orderStatus"`
	PaymentStatus  string              `json:"paymentStatus"`
	TrackingNumber string              `json:"trackingNumber,omitempty"`
	Items          []orderItemResponse `json:"items"`
	TotalPrice     money               `json:"totalPrice"`
	CreatedAt      time.Time           `json:"createdAt"`
}

type trackRequest struct {
	OrderNumber string `json:"orderNumber" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
}

type statusRequest struct {
	OrderStatus    *string `json:"orderStatus" validate:"omitempty,oneof=preparing shipped delivered cancelled"`
	PaymentStatus  *string `json:"paymentStatus" validate:"omitempty,oneof=pending paid cancelled"`
	TrackingNumber *string `json:"trackingNumber"`
}

type contactRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
}

type addressRequest struct {
	Address    string `json:"address" validate:"required"`
	District   string `json:"district"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode"`
}

type initializePaymentRequest struct {
	Customer        *contactRequest `json:"customer" validate:"required"`
	ShippingAddress *addressRequest `json:"shippingAddress" validate:"required"`
	Items           []lineRequest   `json:"items" validate:"required,min=1,dive"`
	CouponCode      string          `json:"couponCode"`
}

type paymentSession struct {
	Token               string `json:"token"`
	CheckoutFormContent string `json:"checkoutFormContent"`
	PaymentPageURL      string `json:"paymentPageUrl"`
	OrderID             string `json:"orderId"`
	OrderNumber         string `json:"orderNumber"`
	TotalPrice          money  `json:"totalPrice"`
}

type paymentStatusResponse struct {
	OrderNumber   string `json:"orderNumber"`
	PaymentStatus string `json:"paymentStatus"`
	OrderStatus   string `json:"orderStatus"`
	TotalPrice    money  `json:"totalPrice"`
}

type verifyResponse struct {
	Paid           bool          `json:"paid"`
	AlreadySettled bool          `json:"alreadySettled"`
	FailureReason  string        `json:"failureReason,omitempty"`
	Order          orderResponse `json:"order"`
}

type spinStatusResponse struct {
	CanSpin      bool       `json:"canSpin"`
	LastSpinDate *time.Time `json:"lastSpinDate"`
	CouponCode   string     `json:"couponCode,omitempty"`
	Prize        string     `json:"prize,omitempty"`
}

type spinResponse struct {
	SegmentIndex  int       `json:"segmentIndex"`
	Prize         string    `json:"prize"`
	CouponCode    string    `json:"couponCode"`
	DiscountType  string    `json:"discountType"`
	DiscountValue string    `json:"discountValue"`
	ExpiresAt     time.Time `json:"expiresAt"`
}
