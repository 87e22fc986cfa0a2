package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
	"trade_guard/internal/events"
	"trade_guard/internal/modules/api/service"
	"trade_guard/internal/modules/config"
	"trade_guard/internal/runner"
	"trade_guard/pkg/logger"

	"go.uber.org/fx"
)

func NewState(cfg *config.Config) *service.State {
	return service.NewState(cfg.Exchange)
}

func NewServer(cfg *config.Config, r *runner.Runner, m *runner.Metrics, hub *events.Hub, state *service.State) *service.Server {
	return service.NewServer(service.Deps{
		Trader:      r,
		State:       state,
		Gatherer:    m.Registry,
		Events:      hub.ServeWS,
		SignalToken: cfg.Service.SignalToken,
		CORSOrigins: cfg.Service.CORSOrigins,
		Release:     cfg.Service.Release,
	})
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, s *service.Server, state *service.State) {
	srv := &http.Server{
		Addr:              cfg.Service.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Service.HTTPAddr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[API] serve: %v", err)
				}
			}()
			state.SetReady(true)
			logger.Info("[API] listening on %s", cfg.Service.HTTPAddr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(
			NewState,
			NewServer,
		),
		fx.Invoke(RunHTTP),
	)
}
