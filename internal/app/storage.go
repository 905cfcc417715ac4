package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/cart"
	"github.com/muratkomurcu/october4mama/internal/domain/contact"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/order"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
	"github.com/muratkomurcu/october4mama/internal/domain/review"
	"github.com/muratkomurcu/october4mama/internal/domain/spin"
	"github.com/muratkomurcu/october4mama/internal/storage/memory"
	"github.com/muratkomurcu/october4mama/internal/storage/postgres"
	"github.com/muratkomurcu/october4mama/internal/storage/rediscache"
	"github.com/muratkomurcu/october4mama/pkg/health"
)

// stores bundles the repositories of one storage backend.
type stores struct {
	products product.Repository
	coupons  coupon.Repository
	carts    cart.Repository
	orders   order.Repository
	users    auth.UserRepository
	spins    spin.Repository
	reviews  review.Repository
	messages contact.Repository

	// ping is nil for backends without a connection to check.
	ping  health.Pinger
	close func()
}

func openStores(ctx context.Context, cfg *Config) (*stores, error) {
	lg := zctx.From(ctx)
	if cfg.Storage == StorageMemory {
		lg.Warn("Using in-memory storage, data is lost on restart")
		m := memory.New()
		return &stores{
			products: m.Products(),
			coupons:  m.Coupons(),
			carts:    m.Carts(),
			orders:   m.Orders(),
			users:    m.Users(),
			spins:    m.Spins(),
			reviews:  m.Reviews(),
			messages: m.Messages(),
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	lg.Info("Database ready")

	return &stores{
		products: postgres.NewProductRepository(pool),
		coupons:  postgres.NewCouponRepository(pool),
		carts:    postgres.NewCartRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		users:    postgres.NewUserRepository(pool),
		spins:    postgres.NewSpinRepository(pool),
		reviews:  postgres.NewReviewRepository(pool),
		messages: postgres.NewContactRepository(pool),
		ping:     pool,
		close:    pool.Close,
	}, nil
}

type redisPinger struct{ client redis.UniversalClient }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// openCartCache returns nil when Redis is not configured.
func openCartCache(ctx context.Context, cfg RedisConfig) (*rediscache.CartCache, *redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		zctx.From(ctx).Warn("Redis not reachable yet, cart cache will retry", zap.Error(err))
	}
	return rediscache.NewCartCache(client, cfg.CartTTL), client, nil
}
