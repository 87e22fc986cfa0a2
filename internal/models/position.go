package models

import "github.com/shopspring/decimal"

// Position: снимок позиции с биржи на момент запроса. Не кешируется.
type Position struct {
	Exists        bool
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
}

// FlatPosition: позиции нет.
var FlatPosition = Position{}
