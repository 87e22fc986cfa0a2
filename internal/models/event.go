package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventTradeAccepted    EventType = "trade_accepted"
	EventTradeFilled      EventType = "trade_filled"
	EventTradeRejected    EventType = "trade_rejected"
	EventProtectionPlaced EventType = "protection_placed"
	EventProtectionFailed EventType = "protection_failed"
	EventMismatchClosed   EventType = "mismatch_closed"
	EventGuardianStarted  EventType = "guardian_started"
	EventGuardianOutcome  EventType = "guardian_outcome"
)

// Event: то, что уходит в журнал, websocket и алерты.
type Event struct {
	Type      EventType       `json:"type"`
	TradeID   string          `json:"trade_id,omitempty"`
	Symbol    string          `json:"symbol"`
	Side      PositionSide    `json:"side,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	TP        decimal.Decimal `json:"tp"`
	SL        decimal.Decimal `json:"sl"`
	Outcome   string          `json:"outcome,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Alert: события, о которых нужно сообщить оператору.
func (e Event) Alert() bool {
	switch e.Type {
	case EventMismatchClosed, EventProtectionFailed:
		return true
	case EventGuardianOutcome:
		return e.Outcome == "force_closed" || e.Outcome == "close_failed"
	}
	return false
}
