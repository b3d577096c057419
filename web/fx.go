package web

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"motorsporthub/auth"
	"motorsporthub/config"
)

var Module = fx.Module("web",
	fx.Provide(
		NewHandlers,
		NewServerFx,
	),
	fx.Invoke(func(*Server) {}),
)

// NewServerFx creates the server with lifecycle hooks for fx DI
func NewServerFx(
	lc fx.Lifecycle,
	cfg *config.HTTPConfig,
	am *auth.AuthManager,
	h *Handlers,
	reg *prometheus.Registry,
	logger zerolog.Logger,
) (*Server, error) {
	srv, err := NewServer(cfg, am, h, reg, logger.With().Str("component", "http").Logger())
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	return srv, nil
}
