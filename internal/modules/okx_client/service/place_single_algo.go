package service

import (
	"context"
	"fmt"
	"trade_guard/internal/exchange"
	"trade_guard/internal/helper"
)

// PlaceConditionalOrder ставит одиночный conditional (TP или SL) на закрытие позиции.
// Исполнение по рынку (ordPx=-1), триггер по mark-цене.
func (c *Client) PlaceConditionalOrder(ctx context.Context, o exchange.ConditionalOrder) (string, error) {
	if !o.Quantity.IsPositive() {
		return "", fmt.Errorf("PlaceConditionalOrder: size <= 0")
	}
	if !o.StopPrice.IsPositive() {
		return "", fmt.Errorf("PlaceConditionalOrder: triggerPx <= 0")
	}

	instID := helper.SwapInstID(o.Symbol)
	sz, err := c.toContracts(ctx, instID, o.Quantity)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"instId":     instID,
		"tdMode":     c.tdMode,
		"side":       lowerSide(o.Side.CloseSide()),
		"posSide":    o.Side.Lower(),
		"ordType":    "conditional",
		"sz":         sz,
		"reduceOnly": true,
	}
	switch o.Kind {
	case exchange.KindTakeProfit:
		body["tpTriggerPx"] = o.StopPrice.String()
		body["tpOrdPx"] = "-1"
		body["tpTriggerPxType"] = "mark"
	case exchange.KindStopLoss:
		body["slTriggerPx"] = o.StopPrice.String()
		body["slOrdPx"] = "-1"
		body["slTriggerPxType"] = "mark"
	default:
		return "", fmt.Errorf("PlaceConditionalOrder: unsupported kind %q", o.Kind)
	}

	var acks []tradeAck
	if err := c.post(ctx, "/api/v5/trade/order-algo", body, &acks); err != nil {
		return "", err
	}
	a, err := firstAck("PlaceConditionalOrder", acks)
	if err != nil {
		return "", err
	}
	if a.AlgoID == "" {
		return "", fmt.Errorf("PlaceConditionalOrder: empty algoId")
	}
	return a.AlgoID, nil
}
