package notify

import (
	"context"
	"fmt"
	"strings"
	"trade_guard/internal/events"
	"trade_guard/internal/modules/config"
	"trade_guard/internal/runner"
	"trade_guard/pkg/logger"

	"go.uber.org/fx"
)

// StatusText: сводка для /status.
func StatusText(r *runner.Runner) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛡 гардианов активно: %d\n", r.ActiveGuardians())
	prot := r.Protection()
	if len(prot) == 0 {
		b.WriteString("📭 защит в памяти нет")
		return b.String()
	}
	b.WriteString("📊 последние TP/SL:\n")
	for symbol, rec := range prot {
		fmt.Fprintf(&b, "- %s tp=%s sl=%s\n", symbol, rec.TakeProfit, rec.StopLoss)
	}
	return b.String()
}

// NewNotifier: Telegram при заданных token+chat_id, иначе лог.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config, r *runner.Runner) Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		logger.Info("[NOTIFY] telegram is not configured, alerts go to log")
		return NewLog()
	}

	tg, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, func() string { return StatusText(r) })
	if err != nil {
		logger.Error("[NOTIFY] telegram init: %v, alerts go to log", err)
		return NewLog()
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return tg.Start(ctx)
		},
		OnStop: func(context.Context) error {
			cancel()
			tg.Stop()
			return nil
		},
	})
	return tg
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(NewNotifier),
		fx.Invoke(func(bus *events.Bus, n Notifier) {
			bus.SubscribeAll(Subscriber(n))
		}),
	)
}
