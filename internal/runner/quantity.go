package runner

import (
	"fmt"
	"trade_guard/internal/helper"
	"trade_guard/internal/models"

	"github.com/shopspring/decimal"
)

// calcQuantity: notional / max(tp, sl), вниз до digits знаков.
// Большая из цен TP/SL: грубая замена цене входа, без запроса тикера.
func calcQuantity(notional, tp, sl decimal.Decimal, digits int32) decimal.Decimal {
	px := helper.MaxDecimal(tp, sl)
	if !px.IsPositive() || !notional.IsPositive() {
		return decimal.Zero
	}
	return helper.FloorToPrecision(notional.Div(px), digits)
}

// validateProtection сверяет TP/SL с фактической ценой входа.
func validateProtection(side models.PositionSide, entry, tp, sl decimal.Decimal) error {
	switch side {
	case models.PositionLong:
		if tp.GreaterThan(entry) && sl.LessThan(entry) {
			return nil
		}
	case models.PositionShort:
		if tp.LessThan(entry) && sl.GreaterThan(entry) {
			return nil
		}
	}
	return fmt.Errorf("%s entry=%s tp=%s sl=%s", side, entry, tp, sl)
}
