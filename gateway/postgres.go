package gateway

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"motorsporthub/config"
	"motorsporthub/models"
)

// NewPool opens the connection pool to the platform's Postgres.
func NewPool(lc fx.Lifecycle, cfg *config.GatewayConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create pool: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("ping gateway database: %w", err)
			}
			log.Info().Msg("gateway database connected")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("closing gateway database pool...")
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

// Tables holds one table per collection.
type Tables struct {
	News         *Table[models.NewsItem]
	Events       *Table[models.Event]
	Teams        *Table[models.Team]
	Drivers      *Table[models.Driver]
	Constructors *Table[models.Constructor]
}

func NewTables(pool *pgxpool.Pool, m *Metrics) Tables {
	return Tables{
		News:         NewTable[models.NewsItem](pool, "news", m),
		Events:       NewTable[models.Event](pool, "events", m),
		Teams:        NewTable[models.Team](pool, "teams", m),
		Drivers:      NewTable[models.Driver](pool, "drivers", m),
		Constructors: NewTable[models.Constructor](pool, "constructors", m),
	}
}
