package journal

import (
	"context"
	"trade_guard/internal/events"
	"trade_guard/pkg/db"

	"go.uber.org/fx"
)

// NewJournal: Postgres при поднятой базе, иначе Nop.
func NewJournal(lc fx.Lifecycle, tm db.TxManager) Journal {
	if tm == nil {
		return Nop{}
	}
	j := NewPostgres(tm)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return j.Migrate(ctx)
		},
	})
	return j
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(NewJournal),
		fx.Invoke(func(bus *events.Bus, j Journal) {
			bus.SubscribeAll(Subscriber(j))
		}),
	)
}
