package main

import (
	"log"
	"trade_guard/internal/events"
	"trade_guard/internal/journal"
	"trade_guard/internal/modules/api"
	"trade_guard/internal/modules/config"
	"trade_guard/internal/modules/gateway"
	"trade_guard/internal/modules/postgres"
	"trade_guard/internal/notify"
	"trade_guard/internal/runner"
	"trade_guard/pkg/logger"
	"trade_guard/pkg/tracing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.JSON); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	logger.SetServiceName("trade_guard")

	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		logger.Fatal("tracer: %v", err)
	}
	defer closeTracer()

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.InfoLogger}
		}),
		config.Module(cfg),
		gateway.Module(),
		events.Module(),
		runner.Module(),
		postgres.Module(),
		journal.Module(),
		notify.Module(),
		api.Module(),
		runner.GuardianShutdown(),
	)
	app.Run()
}
