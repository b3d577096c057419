package auth

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"motorsporthub/config"
	"motorsporthub/gateway"
)

var Module = fx.Module(
	"auth",
	fx.Provide(
		newSQLiteStore,
		newSessions,
		newRegistry,
		newLoginFlow,
		NewAuthManager,
	),
)

func newSQLiteStore(lc fx.Lifecycle, cfg *config.SessionConfig) (SessionStore, error) {
	store, err := NewSQLiteStore(cfg.DSN)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func newSessions(client *gateway.AuthClient, verifier *gateway.TokenVerifier, store SessionStore, log zerolog.Logger) *Sessions {
	return NewSessions(client, verifier, store, log.With().Str("component", "sessions").Logger())
}

func newRegistry(lc fx.Lifecycle, sessions *Sessions, cfg *config.SessionConfig, log zerolog.Logger) *Registry {
	r := NewRegistry(sessions, cfg.HolderIdle, log.With().Str("component", "holders").Logger())

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go r.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			r.Close()
			return nil
		},
	})
	return r
}

func newLoginFlow(client *gateway.AuthClient, cfg *config.HTTPConfig, log zerolog.Logger) *LoginFlow {
	return NewLoginFlow(client, cfg.SiteURL+"/auth/confirm", log.With().Str("component", "login").Logger())
}
