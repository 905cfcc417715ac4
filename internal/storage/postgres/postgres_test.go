//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/cart"
	"github.com/muratkomurcu/october4mama/internal/domain/contact"
	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/domain/order"
	"github.com/muratkomurcu/october4mama/internal/domain/product"
	"github.com/muratkomurcu/october4mama/internal/domain/review"
	"github.com/muratkomurcu/october4mama/internal/domain/spin"
	"github.com/muratkomurcu/october4mama/internal/storage/postgres"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgres.RunMigrations(connStr))
	require.NoError(t, postgres.RunMigrations(connStr), "migrations are idempotent")

	pool, err := postgres.NewPool(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func seedProduct(t *testing.T, repo *postgres.ProductRepository, id string, price string, stock int) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Create(context.Background(), &product.Product{
		ID: id, Name: "Mama " + id, Category: product.CategoryCat, Price: d(price),
		StockQuantity: stock, InStock: stock > 0, CreatedAt: now, UpdatedAt: now,
	}))
}

func newOrder(id, number string, items ...order.Item) *order.Order {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	now := time.Now().UTC()
	return &order.Order{
		ID: id, Number: number, UserID: "u1", Items: items,
		ShippingAddress: "Moda Cd. 1, Kadıköy, İstanbul 34710",
		ProductTotal:    total, ShippingCost: decimal.Zero, DiscountAmount: decimal.Zero, Total: total,
		PaymentMethod: order.PaymentCreditCard, PaymentStatus: order.PaymentPending, Status: order.StatusPreparing,
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestOrderRepository_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	products := postgres.NewProductRepository(pool)
	coupons := postgres.NewCouponRepository(pool)
	orders := postgres.NewOrderRepository(pool)

	seedProduct(t, products, "p1", "100.00", 3)
	require.NoError(t, coupons.Create(ctx, &coupon.Rule{
		ID: "c1", Code: "TEK", DiscountType: coupon.DiscountFixed, Value: d("10"),
		MaxUses: 1, Active: true, AppliesTo: coupon.ScopeAll, CreatedAt: time.Now(),
	}))

	o := newOrder("o1", "OCT4-20260101-0001", order.Item{ProductID: "p1", Name: "Mama p1", Quantity: 2, UnitPrice: d("100.00"), Subtotal: d("200.00")})
	o.CouponCode = "TEK"
	require.NoError(t, orders.Create(ctx, o))

	dup := newOrder("o2", o.Number, order.Item{ProductID: "p1", Name: "Mama p1", Quantity: 1, UnitPrice: d("100.00"), Subtotal: d("100.00")})
	require.ErrorIs(t, orders.Create(ctx, dup), order.ErrDuplicateNumber)

	require.NoError(t, orders.AttachPaymentToken(ctx, "o1", "tok-1"))
	got, err := orders.GetByPaymentToken(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, d("200.00").Equal(got.Total))
	assert.Equal(t, o.Number, got.Payment.ConversationID)

	bought, err := orders.HasPurchased(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.False(t, bought, "pending orders are not purchases")

	st, err := orders.Settle(ctx, "o1", order.PaymentRef{PaymentID: "pay-1"})
	require.NoError(t, err)
	assert.True(t, st.Settled)

	bought, err = orders.HasPurchased(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.True(t, bought)
	bought, err = orders.HasPurchased(ctx, "u2", "p1")
	require.NoError(t, err)
	assert.False(t, bought)
	assert.True(t, st.CouponCounted)
	assert.Empty(t, st.Oversold)
	assert.Equal(t, order.PaymentPaid, st.Order.PaymentStatus)
	assert.Equal(t, "pay-1", st.Order.Payment.PaymentID)
	assert.Equal(t, "tok-1", st.Order.Payment.Token)

	again, err := orders.Settle(ctx, "o1", order.PaymentRef{PaymentID: "pay-1"})
	require.NoError(t, err)
	assert.False(t, again.Settled)

	p, err := products.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)

	c, err := coupons.FindByCode(ctx, "TEK")
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsedCount)

	ok, err := orders.UpdateStatus(ctx, "o1", order.StatusChange{From: order.StatusPreparing, To: order.StatusCancelled, Restock: true})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = orders.UpdateStatus(ctx, "o1", order.StatusChange{From: order.StatusPreparing, To: order.StatusCancelled, Restock: true})
	require.NoError(t, err)
	assert.False(t, ok, "stale From must not apply twice")

	p, err = products.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.StockQuantity)
	assert.True(t, p.InStock)

	_, err = orders.UpdateStatus(ctx, "missing", order.StatusChange{From: order.StatusPreparing, To: order.StatusShipped})
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_ConcurrentSettle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	products := postgres.NewProductRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	seedProduct(t, products, "p1", "50.00", 10)
	require.NoError(t, orders.Create(ctx, newOrder("o1", "OCT4-20260101-0002",
		order.Item{ProductID: "p1", Name: "Mama p1", Quantity: 4, UnitPrice: d("50.00"), Subtotal: d("200.00")})))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := orders.Settle(ctx, "o1", order.PaymentRef{PaymentID: "pay"})
			if !assert.NoError(t, err) {
				return
			}
			if st.Settled {
				mu.Lock()
				settled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settled)
	p, err := products.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 6, p.StockQuantity)
}

func TestOrderRepository_ListingAndSweep(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	products := postgres.NewProductRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	seedProduct(t, products, "p1", "10.00", 100)
	item := order.Item{ProductID: "p1", Name: "Mama p1", Quantity: 1, UnitPrice: d("10.00"), Subtotal: d("10.00")}

	stale := newOrder("stale", "OCT4-20260101-0003", item)
	stale.CreatedAt = time.Now().Add(-72 * time.Hour)
	require.NoError(t, orders.Create(ctx, stale))

	fresh := newOrder("fresh", "OCT4-20260101-0004", item)
	require.NoError(t, orders.Create(ctx, fresh))

	guest := newOrder("guest", "OCT4-20260101-0005", item)
	guest.UserID = ""
	guest.Guest = &order.Guest{FullName: "Misafir", Email: "misafir@example.com", Phone: "+905320000000"}
	require.NoError(t, orders.Create(ctx, guest))
	_, err := orders.Settle(ctx, "guest", order.PaymentRef{})
	require.NoError(t, err)

	pending, err := orders.List(ctx, order.Filter{Pending: true})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	mine, err := orders.List(ctx, order.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, mine)

	all, err := orders.List(ctx, order.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Guest)
	assert.Equal(t, "misafir@example.com", all[0].Guest.Email)
	assert.Len(t, all[0].Items, 1)

	n, err := orders.DeletePendingBefore(ctx, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = orders.GetByID(ctx, "stale")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCartRepository_SaveReplacesLines(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	products := postgres.NewProductRepository(pool)
	carts := postgres.NewCartRepository(pool)
	seedProduct(t, products, "p1", "10.00", 5)
	seedProduct(t, products, "p2", "20.00", 5)

	_, err := carts.Get(ctx, "u1")
	require.ErrorIs(t, err, cart.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, carts.Save(ctx, &cart.Cart{UserID: "u1", UpdatedAt: now, Items: []cart.Item{
		{ProductID: "p1", Quantity: 1, Price: d("10.00"), AddedAt: now},
		{ProductID: "p2", Quantity: 2, Price: d("20.00"), AddedAt: now},
	}}))
	require.NoError(t, carts.Save(ctx, &cart.Cart{UserID: "u1", UpdatedAt: now, Items: []cart.Item{
		{ProductID: "p2", Quantity: 3, Price: d("20.00"), AddedAt: now},
	}}))

	c, err := carts.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
}

func TestCouponRepository_UniqueCode(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	coupons := postgres.NewCouponRepository(pool)

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	rule := &coupon.Rule{
		ID: "c1", Code: "MAMA10", DiscountType: coupon.DiscountPercentage, Value: d("10"), MaxUses: 50,
		Active: true, ExpiresAt: &expires, AppliesTo: coupon.ScopeSpecific, ApplicableProducts: []string{"p1"},
		CreatedAt: time.Now(),
	}
	require.NoError(t, coupons.Create(ctx, rule))

	dup := *rule
	dup.ID = "c2"
	require.ErrorIs(t, coupons.Create(ctx, &dup), coupon.ErrDuplicateCode)

	got, err := coupons.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, got.ApplicableProducts)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))

	require.NoError(t, coupons.Delete(ctx, "c1"))
	require.ErrorIs(t, coupons.Delete(ctx, "c1"), coupon.ErrNotFound)
}

func TestSpinRepository_OnePerDay(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	spins := postgres.NewSpinRepository(pool)
	users := postgres.NewUserRepository(pool)

	require.NoError(t, users.Upsert(ctx, &auth.User{ID: "u1", FullName: "Ayşe", Email: "ayse@example.com"}))
	u, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, u.Role)

	_, err = spins.Last(ctx, "u1")
	require.ErrorIs(t, err, spin.ErrNotFound)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rec := &spin.Record{UserID: "u1", Day: day, Prize: "%5 İndirim", CouponCode: "CARKAAAA0000", SpunAt: day.Add(9 * time.Hour)}
	require.NoError(t, spins.Save(ctx, rec))
	require.ErrorIs(t, spins.Save(ctx, rec), spin.ErrAlreadySpun)

	last, err := spins.Last(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "CARKAAAA0000", last.CouponCode)
}

func TestReviewRepository(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	products := postgres.NewProductRepository(pool)
	reviews := postgres.NewReviewRepository(pool)
	seedProduct(t, products, "p1", "100.00", 3)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2"} {
		require.NoError(t, reviews.Create(ctx, &review.Review{
			ID: id, ProductID: "p1", UserID: "u" + id, UserName: "Ayşe", Rating: 4 + i,
			Comment: "Kedim bayıldı, teşekkürler.", CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	dup := &review.Review{ID: "r3", ProductID: "p1", UserID: "ur1", Rating: 1, Comment: "İkinci yorumum burada.", CreatedAt: base}
	require.ErrorIs(t, reviews.Create(ctx, dup), review.ErrAlreadyReviewed)

	got, err := reviews.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].ID)
	assert.Equal(t, 5, got[0].Rating)

	require.NoError(t, reviews.Delete(ctx, "r1"))
	require.ErrorIs(t, reviews.Delete(ctx, "r1"), review.ErrNotFound)
}

func TestContactRepository(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	messages := postgres.NewContactRepository(pool)

	m := &contact.Message{
		ID: "m1", Name: "Mehmet", Email: "mehmet@example.com", Subject: "Kargo",
		Body: "Siparişim nerede?", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, messages.Create(ctx, m))

	read, err := messages.MarkRead(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, read.Read)
	assert.Equal(t, "Siparişim nerede?", read.Body)

	list, err := messages.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)

	_, err = messages.MarkRead(ctx, "missing")
	require.ErrorIs(t, err, contact.ErrNotFound)
	require.NoError(t, messages.Delete(ctx, "m1"))
	require.ErrorIs(t, messages.Delete(ctx, "m1"), contact.ErrNotFound)
}
