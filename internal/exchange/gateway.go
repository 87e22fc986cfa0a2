package exchange

import (
	"context"
	"errors"
	"trade_guard/internal/models"

	"github.com/shopspring/decimal"
)

// OrderKind: тип ордера в терминах оркестратора.
type OrderKind string

const (
	KindMarket     OrderKind = "MARKET"
	KindTakeProfit OrderKind = "TAKE_PROFIT_MARKET"
	KindStopLoss   OrderKind = "STOP_MARKET"
	KindOther      OrderKind = "OTHER"
)

// ErrSymbolNotFound: символа нет в метаданных контрактов.
var ErrSymbolNotFound = errors.New("symbol not found")

// ConditionalOrder: защитный ордер на закрытие всей позиции Side.
type ConditionalOrder struct {
	Symbol    string
	Side      models.PositionSide // сторона защищаемой позиции
	Kind      OrderKind
	Quantity  decimal.Decimal
	StopPrice decimal.Decimal
}

type OpenOrder struct {
	ID        string
	Symbol    string
	Side      models.PositionSide // пусто в one-way режиме
	Kind      OrderKind
	Quantity  decimal.Decimal
	StopPrice decimal.Decimal
}

// Gateway: всё, что оркестратору нужно от биржи. Подпись, транспорт и ретраи: забота реализации.
type Gateway interface {
	Name() string
	QuantityPrecision(ctx context.Context, symbol string) (int32, error)
	SetLeverage(ctx context.Context, symbol string, side models.PositionSide, leverage int) error
	// PlaceMarketOrder открывает/наращивает позицию side. Ответ биржи не считается подтверждением fill.
	PlaceMarketOrder(ctx context.Context, symbol string, side models.PositionSide, qty decimal.Decimal) (string, error)
	PlaceConditionalOrder(ctx context.Context, o ConditionalOrder) (string, error)
	GetPosition(ctx context.Context, symbol string, side models.PositionSide) (models.Position, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)
	// ClosePosition закрывает qty по рынку, только reduce/close.
	ClosePosition(ctx context.Context, symbol string, side models.PositionSide, qty decimal.Decimal) (string, error)
}

// ClassifyProtection ищет TP и SL среди открытых ордеров для позиции side.
func ClassifyProtection(orders []OpenOrder, side models.PositionSide) (hasTP, hasSL bool) {
	for _, o := range orders {
		if o.Side != "" && o.Side != side {
			continue
		}
		switch o.Kind {
		case KindTakeProfit:
			hasTP = true
		case KindStopLoss:
			hasSL = true
		}
	}
	return hasTP, hasSL
}
