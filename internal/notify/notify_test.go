package notify

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"trade_guard/internal/models"
	"trade_guard/internal/runner"
	"trade_guard/pkg/logger"

	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	logger.Nop()
	os.Exit(m.Run())
}

type recorder struct{ msgs []string }

func (r *recorder) Send(msg string) { r.msgs = append(r.msgs, msg) }
func (r *recorder) Sendf(format string, args ...any) {
	r.msgs = append(r.msgs, fmt.Sprintf(format, args...))
}

func TestSubscriber_OnlyAlerts(t *testing.T) {
	rec := &recorder{}
	sub := Subscriber(rec)

	evs := []models.Event{
		{Type: models.EventTradeAccepted, Symbol: "BTC-USDT"},
		{Type: models.EventTradeFilled, Symbol: "BTC-USDT"},
		{Type: models.EventGuardianOutcome, Symbol: "BTC-USDT", Outcome: "protected"},
		{Type: models.EventGuardianOutcome, Symbol: "BTC-USDT", Outcome: "force_closed", TradeID: "t-9",
			Side: models.PositionLong, Quantity: decimal.RequireFromString("0.0007")},
		{Type: models.EventGuardianOutcome, Symbol: "ETH-USDT", Outcome: "close_failed", Error: "timeout"},
		{Type: models.EventMismatchClosed, Symbol: "SOL-USDT"},
		{Type: models.EventProtectionFailed, Symbol: "XRP-USDT"},
	}
	for _, e := range evs {
		sub(context.Background(), e)
	}

	if len(rec.msgs) != 4 {
		t.Fatalf("alerts = %d: %v", len(rec.msgs), rec.msgs)
	}
	if !strings.Contains(rec.msgs[0], "0.0007") || !strings.Contains(rec.msgs[0], "trade t-9") {
		t.Errorf("force_closed msg = %q", rec.msgs[0])
	}
	if !strings.Contains(rec.msgs[1], "timeout") {
		t.Errorf("close_failed msg = %q", rec.msgs[1])
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		e    models.Event
		want string
	}{
		{"mismatch", models.Event{Type: models.EventMismatchClosed, Symbol: "BTC-USDT"}, "BTC-USDT"},
		{"protection", models.Event{Type: models.EventProtectionFailed, Error: "rejected"}, "rejected"},
		{"force", models.Event{Type: models.EventGuardianOutcome, Outcome: "force_closed"}, "гардианом"},
		{"other", models.Event{Type: models.EventTradeFilled, Symbol: "ETH-USDT"}, "trade_filled ETH-USDT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.e); !strings.Contains(got, tt.want) {
				t.Errorf("Format = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestNilTelegramIsSafe(t *testing.T) {
	var tg *Telegram
	tg.Send("x")
	tg.Sendf("%d", 1)
	tg.Stop()
	if err := tg.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	NewLog().Sendf("%s", "ok")
}

func TestStatusText_Empty(t *testing.T) {
	r := runner.New(runner.Options{})
	got := StatusText(r)
	if !strings.Contains(got, "активно: 0") || !strings.Contains(got, "защит в памяти нет") {
		t.Errorf("status = %q", got)
	}
}
