package iyzico

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/muratkomurcu/october4mama/internal/domain/payment"
)

const (
	locale          = "tr"
	currency        = "TRY"
	paymentGroup    = "PRODUCT"
	country         = "Turkey"
	defaultCity     = "Istanbul"
	defaultZipCode  = "34000"
	placeholderTCKN = "11111111111"
)

func price(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func encodeInitialize(req payment.CheckoutRequest) []byte {
	b := req.Buyer
	city := b.City
	if city == "" {
		city = defaultCity
	}
	zip := b.ZipCode
	if zip == "" {
		zip = defaultZipCode
	}
	contact := b.ContactName
	if contact == "" {
		contact = b.Name + " " + b.Surname
	}

	address := func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("contactName", func(e *jx.Encoder) { e.Str(contact) })
			e.Field("city", func(e *jx.Encoder) { e.Str(city) })
			e.Field("country", func(e *jx.Encoder) { e.Str(country) })
			e.Field("address", func(e *jx.Encoder) { e.Str(b.Address) })
			e.Field("zipCode", func(e *jx.Encoder) { e.Str(zip) })
		})
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("locale", func(e *jx.Encoder) { e.Str(locale) })
		e.Field("conversationId", func(e *jx.Encoder) { e.Str(req.ConversationID) })
		e.Field("price", func(e *jx.Encoder) { e.Str(price(req.Price)) })
		e.Field("paidPrice", func(e *jx.Encoder) { e.Str(price(req.Price)) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(currency) })
		e.Field("basketId", func(e *jx.Encoder) { e.Str(req.BasketID) })
		e.Field("paymentGroup", func(e *jx.Encoder) { e.Str(paymentGroup) })
		e.Field("callbackUrl", func(e *jx.Encoder) { e.Str(req.CallbackURL) })
		e.Field("enabledInstallments", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, n := range req.Installments {
					e.Int(n)
				}
			})
		})
		e.Field("buyer", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(b.ID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(b.Name) })
				e.Field("surname", func(e *jx.Encoder) { e.Str(b.Surname) })
				e.Field("gsmNumber", func(e *jx.Encoder) { e.Str(b.Phone) })
				e.Field("email", func(e *jx.Encoder) { e.Str(b.Email) })
				e.Field("identityNumber", func(e *jx.Encoder) { e.Str(placeholderTCKN) })
				e.Field("registrationAddress", func(e *jx.Encoder) { e.Str(b.Address) })
				e.Field("ip", func(e *jx.Encoder) { e.Str(b.IP) })
				e.Field("city", func(e *jx.Encoder) { e.Str(city) })
				e.Field("country", func(e *jx.Encoder) { e.Str(country) })
				e.Field("zipCode", func(e *jx.Encoder) { e.Str(zip) })
			})
		})
		e.Field("shippingAddress", address)
		e.Field("billingAddress", address)
		e.Field("basketItems", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range req.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("category1", func(e *jx.Encoder) { e.Str(it.Category) })
						e.Field("itemType", func(e *jx.Encoder) { e.Str(string(it.Type)) })
						e.Field("price", func(e *jx.Encoder) { e.Str(price(it.Price)) })
					})
				}
			})
		})
	})
	return e.Bytes()
}

func encodeRetrieve(conversationID, token string) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("locale", func(e *jx.Encoder) { e.Str(locale) })
		if conversationID != "" {
			e.Field("conversationId", func(e *jx.Encoder) { e.Str(conversationID) })
		}
		e.Field("token", func(e *jx.Encoder) { e.Str(token) })
	})
	return e.Bytes()
}

// response is the union of the fields used from both endpoints.
type response struct {
	Status              string
	ErrorCode           string
	ErrorMessage        string
	Token               string
	CheckoutFormContent string
	PaymentPageURL      string
	PaymentStatus       string
	PaymentID           string
	ConversationID      string
	BasketID            string
	PaidPrice           decimal.Decimal
}

func (r *response) succeeded() bool {
	return r.Status == "success"
}

func decodeResponse(data []byte) (*response, error) {
	var r response
	d := jx.DecodeBytes(data)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst *string
		switch string(key) {
		case "status":
			dst = &r.Status
		case "errorCode":
			dst = &r.ErrorCode
		case "errorMessage":
			dst = &r.ErrorMessage
		case "token":
			dst = &r.Token
		case "checkoutFormContent":
			dst = &r.CheckoutFormContent
		case "paymentPageUrl":
			dst = &r.PaymentPageURL
		case "paymentStatus":
			dst = &r.PaymentStatus
		case "paymentId":
			dst = &r.PaymentID
		case "conversationId":
			dst = &r.ConversationID
		case "basketId":
			dst = &r.BasketID
		case "paidPrice":
			return decodeDecimal(d, &r.PaidPrice)
		default:
			return d.Skip()
		}
		return decodeString(d, dst)
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode gateway response")
	}
	return &r, nil
}

// decodeString accepts strings, numbers (error codes come as either) and null.
func decodeString(d *jx.Decoder, dst *string) error {
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		*dst = v
		return err
	case jx.Number:
		n, err := d.Num()
		*dst = n.String()
		return err
	case jx.Null:
		return d.Null()
	default:
		return d.Skip()
	}
}

func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	var s string
	if err := decodeString(d, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return errors.Wrapf(err, "parse amount %q", s)
	}
	*dst = v
	return nil
}
