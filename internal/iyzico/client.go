// Package iyzico is the hosted checkout-form gateway client.
package iyzico

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/payment"
)

const (
	initializePath = "/payment/iyzipos/checkoutform/initialize/auth/ecom"
	retrievePath   = "/payment/iyzipos/checkoutform/auth/ecom/detail"

	// SandboxURL is the test environment.
	SandboxURL = "https://sandbox-api.iyzipay.com"

	maxResponseSize = 1 << 20
)

// Config configures the Client.
type Config struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	Timeout   time.Duration
	// FailureThreshold is the number of consecutive transport failures that
	// open the circuit.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout time.Duration
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

var _ payment.Gateway = (*Client)(nil)

// Client talks to the gateway over HTTPS. Transport failures, 5xx responses
// and an open circuit surface as payment.ErrUnavailable; well-formed failure
// responses as *payment.RejectedError.
type Client struct {
	cfg       Config
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	tracer    trace.Tracer
	randomKey func() string
}

// New returns a Client with an instrumented HTTP transport.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	threshold := cfg.FailureThreshold
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(cfg.TracerProvider),
			),
			Timeout: cfg.Timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "iyzico",
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		tracer:    cfg.TracerProvider.Tracer("github.com/muratkomurcu/october4mama/internal/iyzico"),
		randomKey: newRandomKey,
	}
}

// Initialize opens a checkout form for the order in req.
func (c *Client) Initialize(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	resp, err := c.call(ctx, initializePath, encodeInitialize(req))
	if err != nil {
		return nil, err
	}
	if !resp.succeeded() {
		zctx.From(ctx).Warn("Gateway rejected checkout",
			zap.String("conversation_id", req.ConversationID),
			zap.String("error_code", resp.ErrorCode),
			zap.String("error_message", resp.ErrorMessage),
		)
		return nil, &payment.RejectedError{Code: resp.ErrorCode, Message: resp.ErrorMessage}
	}
	if resp.Token == "" {
		return nil, errors.Wrap(payment.ErrUnavailable, "gateway returned no token")
	}
	return &payment.CheckoutSession{
		Token:          resp.Token,
		FormContent:    resp.CheckoutFormContent,
		PaymentPageURL: resp.PaymentPageURL,
	}, nil
}

// Retrieve reports the outcome of the checkout identified by token. A
// failure response, for example for an expired token, is a failed payment.
func (c *Client) Retrieve(ctx context.Context, token string) (*payment.Result, error) {
	resp, err := c.call(ctx, retrievePath, encodeRetrieve("", token))
	if err != nil {
		return nil, err
	}

	res := &payment.Result{
		Token:          token,
		Status:         payment.StatusFailure,
		PaymentID:      resp.PaymentID,
		ConversationID: resp.ConversationID,
		BasketID:       resp.BasketID,
		PaidPrice:      resp.PaidPrice,
		ErrorMessage:   resp.ErrorMessage,
	}
	if resp.succeeded() && resp.PaymentStatus == string(payment.StatusSuccess) {
		res.Status = payment.StatusSuccess
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, path string, body []byte) (_ *response, rerr error) {
	ctx, span := c.tracer.Start(ctx, "iyzico.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("iyzico.path", path)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, path, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrap(payment.ErrUnavailable, "circuit open")
		}
		return nil, err
	}

	resp, err := decodeResponse(data)
	if err != nil {
		return nil, errors.Wrap(payment.ErrUnavailable, err.Error())
	}
	span.SetAttributes(attribute.String("iyzico.status", resp.Status))
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	rnd := c.randomKey()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-iyzi-rnd", rnd)
	req.Header.Set("Authorization", authorization(c.cfg.APIKey, c.cfg.SecretKey, rnd, path, body))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(payment.ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(payment.ErrUnavailable, err.Error())
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, errors.Wrap(payment.ErrUnavailable, fmt.Sprintf("gateway status %d", resp.StatusCode))
	}
	return data, nil
}
