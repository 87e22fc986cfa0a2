package notify

import (
	"context"
	"fmt"
	"trade_guard/internal/models"
)

// Format: текст алерта по событию.
func Format(e models.Event) string {
	switch e.Type {
	case models.EventMismatchClosed:
		return fmt.Sprintf("⚠️ %s %s: TP/SL не сходятся с ценой входа %s, позиция %s закрыта по рынку",
			e.Symbol, e.Side, e.Price, e.Quantity)
	case models.EventProtectionFailed:
		return fmt.Sprintf("❗️ %s %s: не удалось выставить защиту (%s), гардиан перевыставит",
			e.Symbol, e.Side, e.Error)
	case models.EventGuardianOutcome:
		switch e.Outcome {
		case "force_closed":
			return fmt.Sprintf("🛑 %s %s: TP/SL нет, позиция %s закрыта гардианом", e.Symbol, e.Side, e.Quantity)
		case "close_failed":
			return fmt.Sprintf("🚨 %s %s: позиция без защиты и закрыть не удалось: %s", e.Symbol, e.Side, e.Error)
		}
	}
	return fmt.Sprintf("ℹ️ %s %s %s %s", e.Type, e.Symbol, e.Side, e.Outcome)
}

// Subscriber шлёт оператору только алертные события.
func Subscriber(n Notifier) func(ctx context.Context, e models.Event) {
	return func(_ context.Context, e models.Event) {
		if !e.Alert() {
			return
		}
		msg := Format(e)
		if e.TradeID == "" {
			n.Send(msg)
			return
		}
		n.Sendf("%s\ntrade %s", msg, e.TradeID)
	}
}
