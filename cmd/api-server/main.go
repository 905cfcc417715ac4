// Command api-server serves the October 4 storefront API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	server "github.com/muratkomurcu/october4mama/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := server.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "config")
		}
		lg.Info("Configuration loaded",
			zap.String("storage", cfg.Storage),
			zap.Bool("redis", cfg.Redis.URL != ""),
			zap.Bool("email", cfg.Email.Host != ""),
			zap.Bool("whatsapp", cfg.WhatsApp.Phone != ""),
			zap.Bool("amqp", cfg.AMQP.URL != ""),
		)
		return server.Run(ctx, lg, m, cfg)
	})
}
