package postgres

import (
	"context"
	"fmt"
	"trade_guard/internal/modules/config"
	"trade_guard/pkg/db"
	"trade_guard/pkg/logger"

	"go.uber.org/fx"
)

// NewTxManager поднимает пул по db_dsn. Пустой DSN => nil, журнал работает без базы.
func NewTxManager(lc fx.Lifecycle, cfg *config.Config) (db.TxManager, error) {
	if cfg.DB == "" {
		logger.Info("[PG] db_dsn is empty, postgres disabled")
		return nil, nil
	}

	poolMaster, err := db.NewPool(context.Background(), db.PoolConfig{
		DSN:      cfg.DB,
		MaxConns: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}
	tm := db.NewPgTxManager(poolMaster)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return poolMaster.Ping(ctx)
		},
		OnStop: func(context.Context) error {
			tm.Close()
			return nil
		},
	})
	return tm, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(NewTxManager),
	)
}
