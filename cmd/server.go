package main

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"motorsporthub/app"
	"motorsporthub/config"
)

const version = "v0.1.0"

func main() {
	fx.New(
		app.CreateApp(),
		fx.Invoke(run),
	).Run()
}

func run(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().
				Str("version", version).
				Str("addr", cfg.HTTP.Addr).
				Str("site", cfg.HTTP.SiteURL).
				Msg("Starting motorsport hub")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Motorsport hub stopped")
			return nil
		},
	})
}
