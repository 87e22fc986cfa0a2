package events

import (
	"context"
	"trade_guard/internal/runner"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("events",
		fx.Provide(
			NewBus,
			NewHub,
			// *Bus -> runner.EventSink
			func(b *Bus) runner.EventSink { return b },
		),
		fx.Invoke(func(lc fx.Lifecycle, bus *Bus, hub *Hub) {
			bus.SubscribeAll(hub.Publish)

			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go hub.Run(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					bus.Wait()
					return nil
				},
			})
		}),
	)
}
