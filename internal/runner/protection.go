package runner

import (
	"context"
	"errors"
	"fmt"
	"trade_guard/internal/exchange"
	"trade_guard/internal/models"
	"trade_guard/pkg/logger"

	"github.com/shopspring/decimal"
)

// protectionPlacer: общая часть оркестратора и гардиана: TP/SL на всю позицию.
type protectionPlacer struct {
	gw exchange.Gateway
	m  *Metrics
}

// place ставит перечисленные kinds. Ошибка одного не отменяет другой.
func (p protectionPlacer) place(
	ctx context.Context,
	symbol string,
	side models.PositionSide,
	qty decimal.Decimal,
	rec models.ProtectionRecord,
	kinds ...exchange.OrderKind,
) error {
	var errs []error
	for _, kind := range kinds {
		price := rec.TakeProfit
		if kind == exchange.KindStopLoss {
			price = rec.StopLoss
		}

		id, err := p.gw.PlaceConditionalOrder(ctx, exchange.ConditionalOrder{
			Symbol:    symbol,
			Side:      side,
			Kind:      kind,
			Quantity:  qty,
			StopPrice: price,
		})
		p.m.observeProtection(string(kind), err)
		if err != nil {
			logger.Error("[PROTECT] %s %s %s @ %s qty=%s: %v", symbol, side, kind, price, qty, err)
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		logger.Info("[PROTECT] %s %s %s @ %s qty=%s id=%s", symbol, side, kind, price, qty, id)
	}
	return errors.Join(errs...)
}

// missingKinds: чего не хватает из TP/SL.
func missingKinds(hasTP, hasSL bool) []exchange.OrderKind {
	var kinds []exchange.OrderKind
	if !hasTP {
		kinds = append(kinds, exchange.KindTakeProfit)
	}
	if !hasSL {
		kinds = append(kinds, exchange.KindStopLoss)
	}
	return kinds
}
