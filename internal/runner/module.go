package runner

import (
	"context"
	"trade_guard/internal/exchange"
	"trade_guard/internal/modules/config"
	"trade_guard/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func SettingsFromConfig(cfg *config.Config) Settings {
	t := cfg.Trading
	return Settings{
		DefaultLeverage:     t.DefaultLeverage,
		FillPollInterval:    t.FillPollInterval,
		FillTimeout:         t.FillTimeout,
		GuardianFirstDelay:  t.GuardianFirstDelay,
		GuardianSecondDelay: t.GuardianSecondDelay,
		GuardianCheckRetry:  t.GuardianCheckRetry,
		CloseOnMismatch:     t.CloseOnMismatch,
	}
}

// NewSymbolLocker: memory по умолчанию, redis: когда реплик несколько.
func NewSymbolLocker(lc fx.Lifecycle, cfg *config.Config) SymbolLocker {
	if cfg.Locks.Backend != config.LocksRedis {
		return NewMemoryLocks()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Locks.RedisAddr,
		Password: cfg.Locks.RedisPassword,
		DB:       cfg.Locks.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("[LOCK] redis %s ping: %v", cfg.Locks.RedisAddr, err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	logger.Info("[LOCK] redis backend at %s", cfg.Locks.RedisAddr)
	return NewRedisLocks(client, cfg.Locks.TTL)
}

type runnerParams struct {
	fx.In

	Cfg       *config.Config
	Gateway   exchange.Gateway
	Precision *exchange.PrecisionResolver
	Locks     SymbolLocker
	Memory    *ProtectionMemory
	Pool      *GuardianPool
	Sink      EventSink
	Metrics   *Metrics
}

func NewRunner(p runnerParams) *Runner {
	return New(Options{
		Gateway:   p.Gateway,
		Precision: p.Precision,
		Locks:     p.Locks,
		Memory:    p.Memory,
		Pool:      p.Pool,
		Sink:      p.Sink,
		Metrics:   p.Metrics,
		Settings:  SettingsFromConfig(p.Cfg),
	})
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewMetrics,
			NewProtectionMemory,
			NewGuardianPool,
			NewSymbolLocker,
			NewRunner, // *Runner
		),
	)
}

// GuardianShutdown отменяет гардианов и ждёт их при остановке.
// Подключать последним: OnStop идут в обратном порядке, и исходы гардианов
// должны уйти в журнал и алерты до того, как те закроются.
func GuardianShutdown() fx.Option {
	return fx.Invoke(func(lc fx.Lifecycle, pool *GuardianPool, _ *Runner) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				logger.Info("[GUARDIAN] stopping, active=%d", pool.Active())
				return pool.Stop(ctx)
			},
		})
	})
}
