package app

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	for _, tt := range []struct {
		name string
		cfg  Config
		err  string
	}{
		{
			name: "Postgres",
			cfg:  Config{Storage: StoragePostgres, DatabaseURL: "postgres://localhost/oct4", Auth: AuthConfig{JWTSecret: "s"}},
		},
		{
			name: "Memory",
			cfg:  Config{Storage: StorageMemory, Auth: AuthConfig{JWTSecret: "s"}},
		},
		{
			name: "NoDatabase",
			cfg:  Config{Storage: StoragePostgres, Auth: AuthConfig{JWTSecret: "s"}},
			err:  "database URL is required",
		},
		{
			name: "UnknownStorage",
			cfg:  Config{Storage: "mongo", Auth: AuthConfig{JWTSecret: "s"}},
			err:  `unknown storage "mongo"`,
		},
		{
			name: "NoSecret",
			cfg:  Config{Storage: StorageMemory},
			err:  "JWT secret is required",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.err)
		})
	}
}

func TestConfig_ApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("REDIS_URL", "redis://platform:6379/0")
	t.Setenv("PORT", "9090")

	cfg := Config{Addr: "0.0.0.0:8080"}
	cfg.applyPlatformDefaults()
	require.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	require.Equal(t, "redis://platform:6379/0", cfg.Redis.URL)
	require.Equal(t, "0.0.0.0:9090", cfg.Addr)

	explicit := Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
	explicit.applyPlatformDefaults()
	require.Equal(t, "postgres://explicit/db", explicit.DatabaseURL)
	require.Equal(t, "127.0.0.1:7000", explicit.Addr)
}

func TestPricingEngine(t *testing.T) {
	engine, err := pricingEngine(PricingConfig{FreeShippingThreshold: "500", ShippingFee: "29.99"})
	require.NoError(t, err)

	_, err = pricingEngine(PricingConfig{FreeShippingThreshold: "lots", ShippingFee: "29.99"})
	require.ErrorContains(t, err, "free shipping threshold")
	_, err = pricingEngine(PricingConfig{FreeShippingThreshold: "500", ShippingFee: ""})
	require.ErrorContains(t, err, "shipping fee")

	require.True(t, engine.Shipping(decimal.NewFromInt(499)).Equal(decimal.RequireFromString("29.99")))
	require.True(t, engine.Shipping(decimal.NewFromInt(500)).IsZero())
}
