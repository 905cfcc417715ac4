package product_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratkomurcu/october4mama/internal/domain/product"
	"github.com/muratkomurcu/october4mama/internal/storage/memory"
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := product.NewService(memory.New().Products())

	p := &product.Product{Name: " Somonlu Kedi Maması ", Category: product.CategoryCat, Price: decimal.RequireFromString("349.904")}
	require.NoError(t, svc.Create(ctx, p, nil))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Somonlu Kedi Maması", p.Name)
	assert.Equal(t, product.DefaultStock, p.StockQuantity)
	assert.True(t, p.InStock)
	assert.Equal(t, "349.9", p.Price.String())

	zero := 0
	sold := &product.Product{Name: "Kuzu", Category: product.CategoryDog, Price: decimal.NewFromInt(10)}
	require.NoError(t, svc.Create(ctx, sold, &zero))
	assert.False(t, sold.InStock)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
}

func TestService_CreateInvalid(t *testing.T) {
	negative := -1
	tests := []struct {
		name  string
		p     product.Product
		stock *int
	}{
		{name: "NoName", p: product.Product{Category: product.CategoryCat, Price: decimal.NewFromInt(1)}},
		{name: "BadCategory", p: product.Product{Name: "x", Category: "kuş", Price: decimal.NewFromInt(1)}},
		{name: "FreeProduct", p: product.Product{Name: "x", Category: product.CategoryCat}},
		{name: "NegativeStock", p: product.Product{Name: "x", Category: product.CategoryCat, Price: decimal.NewFromInt(1)}, stock: &negative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := product.NewService(memory.New().Products())
			err := svc.Create(context.Background(), &tt.p, tt.stock)
			require.ErrorIs(t, err, product.ErrInvalid)
		})
	}
}

func TestService_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := product.NewService(memory.New().Products())

	p := &product.Product{Name: "Kuzu", Category: product.CategoryDog, Price: decimal.NewFromInt(100)}
	require.NoError(t, svc.Create(ctx, p, nil))
	created := p.CreatedAt

	upd := *p
	upd.StockQuantity = 0
	upd.InStock = true
	require.NoError(t, svc.Update(ctx, &upd))
	assert.False(t, upd.InStock, "empty stock is never on sale")
	assert.Equal(t, created, upd.CreatedAt)

	missing := upd
	missing.ID = "nope"
	require.ErrorIs(t, svc.Update(ctx, &missing), product.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err := svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, product.ErrNotFound)
}
