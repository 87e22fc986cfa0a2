package runner

import (
	"context"
	"testing"
	"time"
	"trade_guard/internal/exchange"
	"trade_guard/internal/models"
)

func newTestGuardian(gw *fakeGateway, rec models.ProtectionRecord) (*Guardian, *Runner, *recordingSink) {
	r, sink := newTestRunner(gw, testSettings())
	return r.newGuardian("t-1", "BTC-USDT", models.PositionLong, rec), r, sink
}

func scenarioRecord() models.ProtectionRecord {
	return models.ProtectionRecord{TakeProfit: dec("70000"), StopLoss: dec("65000")}
}

func TestGuardian_ScenarioC_ForceCloseOnce(t *testing.T) {
	gw := newFakeGateway(4, models.Position{Exists: true, Quantity: dec("0.0007"), AvgEntryPrice: dec("68000")})
	gw.hideOrders = true
	g, _, sink := newTestGuardian(gw, scenarioRecord())

	if g.Closed() {
		t.Fatal("closed before run")
	}
	out := g.Run(context.Background())
	if out != OutcomeForceClosed {
		t.Fatalf("outcome = %s, want force_closed", out)
	}
	if !g.Closed() || g.closes != 1 {
		t.Errorf("closed=%v closes=%d", g.Closed(), g.closes)
	}
	if g.Stage() != Stage2 {
		t.Errorf("stage = %v", g.Stage())
	}

	_, closes, conds := gw.snapshot()
	if len(closes) != 1 || !closes[0].Qty.Equal(dec("0.0007")) || closes[0].Side != models.PositionLong {
		t.Errorf("closes = %+v", closes)
	}
	// stage 1 перевыставил обе ноги
	if len(conds) != 2 {
		t.Errorf("re-placed = %d, want 2", len(conds))
	}

	ev, ok := sink.find(models.EventGuardianOutcome)
	if !ok || ev.Outcome != string(OutcomeForceClosed) || !ev.Quantity.Equal(dec("0.0007")) {
		t.Errorf("event = %+v", ev)
	}
}

func TestGuardian_CloseOnceIsIdempotent(t *testing.T) {
	gw := newFakeGateway(4, models.Position{Exists: true, Quantity: dec("1"), AvgEntryPrice: dec("68000")})
	gw.closeErr = errExchange
	g, _, _ := newTestGuardian(gw, scenarioRecord())

	if err := g.closeOnce(context.Background(), dec("1")); err == nil {
		t.Fatal("expected close error")
	}
	if err := g.closeOnce(context.Background(), dec("1")); err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
	_, closes, _ := gw.snapshot()
	if len(closes) != 1 || g.closes != 1 {
		t.Errorf("closes = %d / %d, want 1", len(closes), g.closes)
	}
}

func TestGuardian_Outcomes(t *testing.T) {
	tests := []struct {
		name  string
		setup func(gw *fakeGateway)
		want  Outcome
		conds int
		close int
	}{
		{
			name: "protected at check1",
			setup: func(gw *fakeGateway) {
				gw.openOrders = []exchange.OpenOrder{
					{Side: models.PositionLong, Kind: exchange.KindTakeProfit},
					{Side: models.PositionLong, Kind: exchange.KindStopLoss},
				}
			},
			want: OutcomeProtected,
		},
		{
			name:  "flat at check1",
			setup: func(gw *fakeGateway) { gw.neverFill = true },
			want:  OutcomeFlat,
		},
		{
			name: "missing sl re-placed",
			setup: func(gw *fakeGateway) {
				gw.openOrders = []exchange.OpenOrder{{Side: models.PositionLong, Kind: exchange.KindTakeProfit}}
			},
			want:  OutcomeReprotected,
			conds: 1,
		},
		{
			name: "orders for the other side do not count",
			setup: func(gw *fakeGateway) {
				gw.openOrders = []exchange.OpenOrder{
					{Side: models.PositionShort, Kind: exchange.KindTakeProfit},
					{Side: models.PositionShort, Kind: exchange.KindStopLoss},
				}
			},
			want:  OutcomeReprotected,
			conds: 2,
		},
		{
			name: "orders query failure counts as missing",
			setup: func(gw *fakeGateway) {
				gw.ordersErr = errExchange
			},
			want:  OutcomeForceClosed,
			conds: 2,
			close: 1,
		},
		{
			name: "transient orders failure is retried",
			setup: func(gw *fakeGateway) {
				gw.ordersFail = 1
				gw.openOrders = []exchange.OpenOrder{
					{Side: models.PositionLong, Kind: exchange.KindTakeProfit},
					{Side: models.PositionLong, Kind: exchange.KindStopLoss},
				}
			},
			want: OutcomeProtected,
		},
		{
			name: "close fails",
			setup: func(gw *fakeGateway) {
				gw.hideOrders = true
				gw.closeErr = errExchange
			},
			want:  OutcomeCloseFailed,
			conds: 2,
			close: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway(4, models.Position{Exists: true, Quantity: dec("0.5"), AvgEntryPrice: dec("68000")})
			tt.setup(gw)
			g, _, _ := newTestGuardian(gw, scenarioRecord())

			if out := g.Run(context.Background()); out != tt.want {
				t.Fatalf("outcome = %s, want %s", out, tt.want)
			}
			_, closes, conds := gw.snapshot()
			if len(conds) != tt.conds {
				t.Errorf("re-placed = %d, want %d", len(conds), tt.conds)
			}
			if len(closes) != tt.close {
				t.Errorf("closes = %d, want %d", len(closes), tt.close)
			}
		})
	}
}

func TestGuardian_UsesRecordFromSpawn(t *testing.T) {
	gw := newFakeGateway(4, models.Position{Exists: true, Quantity: dec("0.5"), AvgEntryPrice: dec("68000")})
	g, r, _ := newTestGuardian(gw, scenarioRecord())

	// вторая сделка перезаписала память до проверки первого гардиана
	r.memory.Record("BTC-USDT", models.ProtectionRecord{TakeProfit: dec("1"), StopLoss: dec("2")})
	g.Run(context.Background())

	_, _, conds := gw.snapshot()
	if len(conds) != 2 {
		t.Fatalf("re-placed = %d", len(conds))
	}
	for _, c := range conds {
		want := dec("70000")
		if c.Kind == exchange.KindStopLoss {
			want = dec("65000")
		}
		if !c.StopPrice.Equal(want) {
			t.Errorf("%s re-placed at %s, want %s", c.Kind, c.StopPrice, want)
		}
	}
}

func TestGuardian_Cancelled(t *testing.T) {
	gw := newFakeGateway(4, models.Position{Exists: true, Quantity: dec("0.5"), AvgEntryPrice: dec("68000")})
	g, _, _ := newTestGuardian(gw, scenarioRecord())
	g.firstDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if out := g.Run(ctx); out != OutcomeCancelled {
		t.Fatalf("outcome = %s", out)
	}
	_, closes, _ := gw.snapshot()
	if len(closes) != 0 {
		t.Error("cancelled guardian must not close")
	}
}

func TestGuardianPool_StopCancels(t *testing.T) {
	p := NewGuardianPool(NewMetrics())
	started := make(chan struct{})
	p.Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started
	if p.Active() != 1 {
		t.Errorf("active = %d", p.Active())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.Active() != 0 {
		t.Errorf("active after stop = %d", p.Active())
	}
}

func TestGuardianPool_RecoversPanic(t *testing.T) {
	p := NewGuardianPool(nil)
	p.Go(func(context.Context) { panic("boom") })
	p.Wait()
	if p.Active() != 0 {
		t.Errorf("active = %d", p.Active())
	}
}

func TestGuardian_CheckRetriesOnce(t *testing.T) {
	protected := []exchange.OpenOrder{
		{Side: models.PositionLong, Kind: exchange.KindTakeProfit},
		{Side: models.PositionLong, Kind: exchange.KindStopLoss},
	}

	gw := newFakeGateway(4, models.Position{})
	gw.openOrders = protected
	gw.ordersFail = 1
	g, _, _ := newTestGuardian(gw, scenarioRecord())
	if tp, sl := g.check(context.Background()); !tp || !sl {
		t.Errorf("transient failure: tp=%v sl=%v", tp, sl)
	}
	if gw.ordersCalls != 2 {
		t.Errorf("orders calls = %d, want 2", gw.ordersCalls)
	}

	gw = newFakeGateway(4, models.Position{})
	gw.openOrders = protected
	gw.ordersErr = errExchange
	g, _, _ = newTestGuardian(gw, scenarioRecord())
	if tp, sl := g.check(context.Background()); tp || sl {
		t.Errorf("persistent failure: tp=%v sl=%v", tp, sl)
	}
	if gw.ordersCalls != 2 {
		t.Errorf("orders calls = %d, want 2", gw.ordersCalls)
	}
}
