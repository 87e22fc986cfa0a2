package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side: направление входа, как его присылает источник сигналов.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide принимает BUY/SELL и LONG/SHORT в любом регистре.
func ParseSide(raw string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "LONG":
		return SideBuy, nil
	case "SELL", "SHORT":
		return SideSell, nil
	}
	return "", fmt.Errorf("unknown side %q", raw)
}

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// PositionSide: сторона позиции, которую открывает вход.
func (s Side) PositionSide() PositionSide {
	if s == SideSell {
		return PositionShort
	}
	return PositionLong
}

type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// CloseSide: сторона ордера, закрывающего позицию.
func (p PositionSide) CloseSide() Side {
	if p == PositionShort {
		return SideBuy
	}
	return SideSell
}

// OpenSide: сторона ордера, открывающего позицию.
func (p PositionSide) OpenSide() Side {
	if p == PositionShort {
		return SideSell
	}
	return SideBuy
}

func (p PositionSide) Lower() string { return strings.ToLower(string(p)) }

// MaxLeverage: верхняя граница плеча у всех поддерживаемых бирж.
const MaxLeverage = 125

// TradeIntent: один принятый сигнал. После приёма не меняется.
type TradeIntent struct {
	Symbol     string
	Side       Side
	Notional   decimal.Decimal // в валюте котировки (USDT)
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
	Leverage   int
}

func (i TradeIntent) Validate() error {
	if strings.TrimSpace(i.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if !i.Side.Valid() {
		return fmt.Errorf("unknown side %q", i.Side)
	}
	if !i.TakeProfit.IsPositive() {
		return fmt.Errorf("tp must be > 0")
	}
	if !i.StopLoss.IsPositive() {
		return fmt.Errorf("sl must be > 0")
	}
	if i.Leverage < 0 || i.Leverage > MaxLeverage {
		return fmt.Errorf("leverage must be in 0..%d", MaxLeverage)
	}
	return nil
}

// ProtectionRecord: последние запрошенные TP/SL по символу.
type ProtectionRecord struct {
	TakeProfit decimal.Decimal `json:"tp"`
	StopLoss   decimal.Decimal `json:"sl"`
}
