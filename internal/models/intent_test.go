package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		raw  string
		want Side
		ok   bool
	}{
		{"BUY", SideBuy, true},
		{"buy", SideBuy, true},
		{" long ", SideBuy, true},
		{"SELL", SideSell, true},
		{"Short", SideSell, true},
		{"hold", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.raw)
		if tt.ok != (err == nil) {
			t.Errorf("ParseSide(%q) err = %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSide(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSideMapping(t *testing.T) {
	if SideBuy.PositionSide() != PositionLong || SideSell.PositionSide() != PositionShort {
		t.Fatal("entry side -> position side mapping broken")
	}
	if PositionLong.CloseSide() != SideSell || PositionShort.CloseSide() != SideBuy {
		t.Fatal("close side must be opposite of the position")
	}
	if PositionLong.OpenSide() != SideBuy || PositionShort.OpenSide() != SideSell {
		t.Fatal("open side mapping broken")
	}
}

func TestTradeIntentValidate(t *testing.T) {
	base := TradeIntent{
		Symbol:     "BTC-USDT",
		Side:       SideBuy,
		Notional:   decimal.NewFromInt(50),
		TakeProfit: decimal.NewFromInt(70000),
		StopLoss:   decimal.NewFromInt(65000),
		Leverage:   50,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid intent rejected: %v", err)
	}

	top := base
	top.Leverage = MaxLeverage
	if err := top.Validate(); err != nil {
		t.Errorf("leverage %d rejected: %v", MaxLeverage, err)
	}

	bad := []func(i *TradeIntent){
		func(i *TradeIntent) { i.Symbol = " " },
		func(i *TradeIntent) { i.Side = "HOLD" },
		func(i *TradeIntent) { i.TakeProfit = decimal.Zero },
		func(i *TradeIntent) { i.StopLoss = decimal.NewFromInt(-1) },
		func(i *TradeIntent) { i.Leverage = -5 },
		func(i *TradeIntent) { i.Leverage = MaxLeverage + 1 },
	}
	for n, mutate := range bad {
		i := base
		mutate(&i)
		if err := i.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", n)
		}
	}
}

func TestEventAlert(t *testing.T) {
	if !(Event{Type: EventGuardianOutcome, Outcome: "force_closed"}).Alert() {
		t.Error("force_closed must alert")
	}
	if (Event{Type: EventGuardianOutcome, Outcome: "protected"}).Alert() {
		t.Error("protected must not alert")
	}
	if !(Event{Type: EventMismatchClosed}).Alert() {
		t.Error("mismatch_closed must alert")
	}
}
