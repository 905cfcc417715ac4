package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (OCT4_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (OCT4_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Storage     string `default:"postgres" usage:"Storage backend: postgres or memory"`
	Auth        AuthConfig
	Pricing     PricingConfig
	Orders      OrdersConfig
	Iyzico      IyzicoConfig
	Email       EmailConfig
	WhatsApp    WhatsAppConfig
	AMQP        AMQPConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// AuthConfig holds the bearer-token verification secret.
type AuthConfig struct {
	JWTSecret string `usage:"HS256 secret shared with the token issuer (OCT4_AUTH_JWT_SECRET)" flag:"jwt-secret"`
}

// PricingConfig controls shipping.
type PricingConfig struct {
	FreeShippingThreshold string `default:"500" usage:"Product total from which shipping is free"`
	ShippingFee           string `default:"29.99" usage:"Flat shipping fee below the threshold"`
}

// OrdersConfig controls the order lifecycle.
type OrdersConfig struct {
	StaleAfter    time.Duration `default:"48h" usage:"Age at which unpaid orders are purged"`
	SweepInterval time.Duration `default:"1h" usage:"How often stale unpaid orders are purged"`
	NumberPrefix  string        `default:"OCT4" usage:"Order number prefix"`
	Location      string        `default:"Europe/Istanbul" usage:"Time zone of calendar days (spin wheel)"`
}

// IyzicoConfig configures the payment gateway.
type IyzicoConfig struct {
	BaseURL          string        `default:"https://sandbox-api.iyzipay.com" usage:"Gateway base URL"`
	APIKey           string        `usage:"Gateway API key"`
	SecretKey        string        `usage:"Gateway secret key"`
	CallbackURL      string        `default:"http://localhost:8080/api/payment/callback" usage:"Public URL of the payment callback"`
	ClientURL        string        `default:"http://localhost:3000" usage:"Storefront URL the callback redirects to"`
	Installments     []int         `default:"1,2,3,6,9" usage:"Enabled installment counts"`
	Timeout          time.Duration `default:"15s" usage:"Gateway request timeout"`
	FailureThreshold uint32        `default:"5" usage:"Consecutive failures that open the circuit"`
	OpenTimeout      time.Duration `default:"30s" usage:"How long the circuit stays open"`
}

// EmailConfig configures the SMTP channel. Empty Host disables it.
type EmailConfig struct {
	Host     string        `usage:"SMTP host"`
	Port     int           `default:"587" usage:"SMTP port"`
	Username string        `usage:"SMTP user"`
	Password string        `usage:"SMTP password"`
	From     string        `default:"October4Mama <siparis@october4mama.com>" usage:"Sender address"`
	SSL      bool          `default:"false" usage:"Use implicit TLS"`
	Timeout  time.Duration `default:"15s" usage:"SMTP timeout"`
	Support  string        `default:"destek@october4mama.com" usage:"Support address shown in emails"`
}

// WhatsAppConfig configures the operator WhatsApp channel. Empty Phone
// disables it.
type WhatsAppConfig struct {
	BaseURL string        `default:"https://api.callmebot.com/whatsapp.php" usage:"CallMeBot endpoint"`
	Phone   string        `usage:"Operator phone number"`
	APIKey  string        `usage:"CallMeBot API key"`
	Timeout time.Duration `default:"10s" usage:"Request timeout"`
}

// AMQPConfig configures the order-event publisher. Empty URL disables it.
type AMQPConfig struct {
	URL      string `usage:"AMQP broker URL"`
	Exchange string `default:"orders.events" usage:"Topic exchange for order events"`
}

// RedisConfig configures the cart cache. Empty URL disables it.
type RedisConfig struct {
	URL     string        `usage:"Redis URL (OCT4_REDIS_URL or REDIS_URL)"`
	CartTTL time.Duration `default:"15m" usage:"Base lifetime of a cached cart"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// Lookup is the stricter budget of the public lookup endpoints.
	LookupMax    int           `default:"10" usage:"Max order-tracking and coupon lookups per window"`
	LookupWindow time.Duration `default:"15m" usage:"Lookup rate limit window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "OCT4",
		Files:     []string{"config.yaml", "/etc/october4/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set OCT4_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required: set OCT4_AUTH_JWT_SECRET")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's OCT4_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.Redis.URL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.Redis.URL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
