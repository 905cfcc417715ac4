package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muratkomurcu/october4mama/internal/domain/cart"
	"github.com/muratkomurcu/october4mama/internal/domain/contact"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/order"
	"github.com/muratkomurcu/october4mama/internal/domain/pricing"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
	"github.com/muratkomurcu/october4mama/internal/domain/review"
	"github.com/muratkomurcu/october4mama/internal/domain/spin"
	"github.com/muratkomurcu/october4mama/internal/handler"
	"github.com/muratkomurcu/october4mama/internal/iyzico"
	"github.com/muratkomurcu/october4mama/internal/metrics"
	"github.com/muratkomurcu/october4mama/internal/notify"
	"github.com/muratkomurcu/october4mama/pkg/health"
	"github.com/muratkomurcu/october4mama/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the stale-order
// sweeper, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage))

	engine, err := pricingEngine(cfg.Pricing)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.Orders.Location)
	if err != nil {
		return errors.Wrapf(err, "load location %q", cfg.Orders.Location)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	healthSvc := health.New()
	if st.ping != nil {
		healthSvc.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck(st.ping))
	}
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))

	// The cache is optional; an unset interface keeps the cart service on
	// the primary store alone.
	var cartCache cart.Cache
	cache, redisClient, err := openCartCache(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer func() { _ = redisClient.Close() }()
		cartCache = cache
		healthSvc.Add(health.Readiness, "redis", 2*time.Second, health.PingCheck(redisPinger{client: redisClient}))
	}

	rec, err := metrics.New(m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}

	channels, closeChannels, err := notificationChannels(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeChannels()
	dispatcher := notify.NewAsync(channels, notify.WithFailureRecorder(rec))
	defer dispatcher.Close()

	// Domain services.
	carts := cart.NewService(st.carts, st.products, cartCache)
	orders := order.NewService(order.Deps{
		Products: st.products,
		Coupons:  st.coupons,
		Orders:   st.orders,
		Users:    st.users,
		Gateway: iyzico.New(iyzico.Config{
			BaseURL:          cfg.Iyzico.BaseURL,
			APIKey:           cfg.Iyzico.APIKey,
			SecretKey:        cfg.Iyzico.SecretKey,
			Timeout:          cfg.Iyzico.Timeout,
			FailureThreshold: cfg.Iyzico.FailureThreshold,
			OpenTimeout:      cfg.Iyzico.OpenTimeout,
			TracerProvider:   m.TracerProvider(),
		}),
		Notifier: dispatcher,
		Carts:    carts,
		Pricing:  engine,
		Metrics:  rec,
	}, order.Config{
		CallbackURL:  cfg.Iyzico.CallbackURL,
		Installments: cfg.Iyzico.Installments,
		StaleAfter:   cfg.Orders.StaleAfter,
		NumberPrefix: cfg.Orders.NumberPrefix,
	})

	h := handler.New(handler.Config{
		ClientURL: cfg.Iyzico.ClientURL,
		Throttle: httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.LookupMax,
			Window:  cfg.RateLimit.LookupWindow,
			Message: "too many lookups, please try again later",
		}),
	}, handler.Deps{
		Products:  product.NewService(st.products),
		Carts:     carts,
		Coupons:   coupon.NewService(st.coupons),
		Validator: coupon.NewValidator(st.coupons),
		Orders:    orders,
		Spins:     spin.NewService(st.spins, st.coupons, loc),
		Reviews:   review.NewService(st.reviews, st.orders, st.users),
		Contact:   contact.NewService(st.messages),
		Security:  handler.NewSecurity(cfg.Auth.JWTSecret, st.users),
	})

	r := chi.NewRouter()
	r.Use(
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.LogRequests(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(r, "october4mama-api",
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithTracerProvider(m.TracerProvider()),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		return orders.RunSweeper(gctx, cfg.Orders.SweepInterval)
	})
	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})
	return g.Wait()
}

func pricingEngine(cfg PricingConfig) (*pricing.Engine, error) {
	threshold, err := decimal.NewFromString(cfg.FreeShippingThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "parse free shipping threshold")
	}
	fee, err := decimal.NewFromString(cfg.ShippingFee)
	if err != nil {
		return nil, errors.Wrap(err, "parse shipping fee")
	}
	return pricing.New(
		pricing.WithFreeShippingThreshold(threshold),
		pricing.WithShippingFee(fee),
	), nil
}

// notificationChannels builds the configured channels. Unconfigured ones are
// skipped; a broker that cannot be reached fails startup.
func notificationChannels(ctx context.Context, cfg *Config) ([]notify.Channel, func(), error) {
	lg := zctx.From(ctx)
	var (
		channels []notify.Channel
		closers  []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Email.Host != "" {
		email, err := notify.NewEmail(notify.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			SSL:      cfg.Email.SSL,
			Timeout:  cfg.Email.Timeout,
			Support:  cfg.Email.Support,
		})
		if err != nil {
			return nil, closeAll, errors.Wrap(err, "create email channel")
		}
		channels = append(channels, email)
	}
	if cfg.WhatsApp.Phone != "" {
		channels = append(channels, notify.NewWhatsApp(notify.WhatsAppConfig{
			BaseURL: cfg.WhatsApp.BaseURL,
			Phone:   cfg.WhatsApp.Phone,
			APIKey:  cfg.WhatsApp.APIKey,
			Timeout: cfg.WhatsApp.Timeout,
		}))
	}
	if cfg.AMQP.URL != "" {
		pub, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			closeAll()
			return nil, func() {}, errors.Wrap(err, "connect amqp")
		}
		channels = append(channels, pub)
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				lg.Warn("Failed to close amqp connection", zap.Error(err))
			}
		})
	}

	names := make([]string, 0, len(channels))
	for _, c := range channels {
		names = append(names, c.Name())
	}
	lg.Info("Notification channels", zap.Strings("channels", names))
	return channels, closeAll, nil
}
