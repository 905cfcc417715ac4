// Command coupon-import loads bulk-generated coupon codes from gzip files.
//
// A code is imported when it appears in at least --min-files of the given
// files. Every imported code shares the rule described by the flags.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/storage/postgres"
)

func main() {
	var (
		databaseURL   string
		minFiles      int
		capacity      uint
		workers       int
		discountType  string
		discountValue string
		maxUses       int
		expiresIn     time.Duration
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&minFiles, "min-files", 2, "number of files a code must appear in")
	flag.UintVar(&capacity, "capacity", 10_000_000, "expected codes per file, sizes the bloom filters")
	flag.IntVar(&workers, "workers", 8, "concurrent database writers")
	flag.StringVar(&discountType, "type", string(coupon.DiscountPercentage), "discount type: percentage or fixed")
	flag.StringVar(&discountValue, "value", "10", "discount value")
	flag.IntVar(&maxUses, "max-uses", 1, "usage limit of every imported code")
	flag.DurationVar(&expiresIn, "expires", 0, "lifetime of imported codes, 0 for none")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	files := flag.Args()
	if len(files) == 0 {
		lg.Fatal("usage: coupon-import [flags] file.gz...")
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	value, err := decimal.NewFromString(discountValue)
	if err != nil {
		lg.Fatal("Invalid discount value", zap.String("value", discountValue), zap.Error(err))
	}
	rule := coupon.Rule{
		DiscountType: coupon.DiscountType(discountType),
		Value:        value,
		MaxUses:      maxUses,
		Active:       true,
		AppliesTo:    coupon.ScopeAll,
	}
	if expiresIn > 0 {
		at := time.Now().Add(expiresIn)
		rule.ExpiresAt = &at
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	im := &importer{lg: lg, capacity: capacity, fpr: defaultFPR, minFiles: minFiles}
	if err := run(ctx, im, files, databaseURL, rule, workers); err != nil {
		lg.Fatal("Coupon import failed", zap.Error(err))
	}
	lg.Info("Coupon import completed successfully")
}

func run(ctx context.Context, im *importer, files []string, databaseURL string, rule coupon.Rule, workers int) error {
	codes, err := im.collect(ctx, files)
	if err != nil {
		return errors.Wrap(err, "collect codes")
	}
	if len(codes) == 0 {
		im.lg.Info("No codes to import")
		return nil
	}

	im.lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()
	if err := postgres.RunMigrations(databaseURL); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	svc := coupon.NewService(postgres.NewCouponRepository(pool))
	created, skipped, err := im.write(ctx, svc, codes, rule, workers)
	if err != nil {
		return errors.Wrap(err, "write coupons")
	}
	im.lg.Info("Coupons written", zap.Int("created", created), zap.Int("existing", skipped))
	return nil
}
