package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
	"github.com/muratkomurcu/october4mama/internal/handler"
	"github.com/muratkomurcu/october4mama/internal/storage/postgres"
)

type productJSON struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	AgeGroup      string          `json:"ageGroup"`
	Price         decimal.Decimal `json:"price"`
	Weight        string          `json:"weight"`
	Image         string          `json:"image"`
	StockQuantity int             `json:"stockQuantity"`
}

type options struct {
	databaseURL  string
	productsFile string
	adminID      string
	adminEmail   string
	adminName    string
	adminPhone   string
	jwtSecret    string
	tokenTTL     time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&opts.adminID, "admin-id", "admin", "id of the admin user")
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@october4.com", "email of the admin user")
	flag.StringVar(&opts.adminName, "admin-name", "October 4 Admin", "full name of the admin user")
	flag.StringVar(&opts.adminPhone, "admin-phone", "05551234567", "phone of the admin user")
	flag.StringVar(&opts.jwtSecret, "jwt-secret", "", "print an admin bearer token signed with this secret (or OCT4_AUTH_JWT_SECRET env)")
	flag.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed admin token")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if opts.jwtSecret == "" {
		opts.jwtSecret = os.Getenv("OCT4_AUTH_JWT_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(opts.databaseURL); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, lg, coupon.NewService(postgres.NewCouponRepository(pool))); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	admin := &auth.User{
		ID:       opts.adminID,
		FullName: opts.adminName,
		Email:    opts.adminEmail,
		Phone:    opts.adminPhone,
		Role:     auth.RoleAdmin,
	}
	if err := postgres.NewUserRepository(pool).Upsert(ctx, admin); err != nil {
		return errors.Wrap(err, "upsert admin user")
	}
	lg.Info("Upserted admin user", zap.String("id", admin.ID), zap.String("email", admin.Email))

	if opts.jwtSecret != "" {
		token, err := handler.NewSecurity(opts.jwtSecret, nil).Issue(admin.ID, opts.tokenTTL)
		if err != nil {
			return errors.Wrap(err, "issue admin token")
		}
		lg.Info("Admin bearer token", zap.String("token", token), zap.Duration("ttl", opts.tokenTTL))
	}
	return nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo product.Repository, path string) error {
	lg.Info("Reading products file", zap.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	lg.Info("Upserting products", zap.Int("count", len(products)))
	for _, p := range products {
		stock := p.StockQuantity
		if stock == 0 {
			stock = product.DefaultStock
		}
		item := &product.Product{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			Category:      product.Category(p.Category),
			AgeGroup:      p.AgeGroup,
			Weight:        p.Weight,
			Image:         p.Image,
			Price:         p.Price,
			StockQuantity: stock,
			InStock:       true,
		}
		if !item.Category.Valid() {
			return errors.Errorf("product %s: unknown category %q", p.ID, p.Category)
		}

		// Existing rows keep their id; only catalog fields are refreshed.
		err := repo.Update(ctx, item)
		if errors.Is(err, product.ErrNotFound) {
			err = repo.Create(ctx, item)
		}
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Info("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	return nil
}

func seedCoupons(ctx context.Context, lg *zap.Logger, svc *coupon.Service) error {
	lg.Info("Seeding demo coupons")

	rules := []coupon.Rule{
		{
			Code:         "HOSGELDIN10",
			DiscountType: coupon.DiscountPercentage,
			Value:        decimal.NewFromInt(10),
			MaxUses:      100,
			Active:       true,
			AppliesTo:    coupon.ScopeAll,
		},
		{
			Code:         "MAMA50",
			DiscountType: coupon.DiscountFixed,
			Value:        decimal.NewFromInt(50),
			MaxUses:      50,
			Active:       true,
			AppliesTo:    coupon.ScopeAll,
		},
	}
	for i := range rules {
		r := &rules[i]
		switch err := svc.Create(ctx, r); {
		case errors.Is(err, coupon.ErrDuplicateCode):
			lg.Info("Coupon already exists", zap.String("code", r.Code))
		case err != nil:
			return err
		default:
			lg.Info("Created coupon", zap.String("code", r.Code), zap.String("type", string(r.DiscountType)))
		}
	}
	return nil
}
