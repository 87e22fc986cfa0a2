package service

import (
	"context"
	"fmt"
	"strconv"
	"trade_guard/internal/helper"
	"trade_guard/internal/models"

	"github.com/shopspring/decimal"
)

func (c *Client) SetLeverage(ctx context.Context, symbol string, side models.PositionSide, leverage int) error {
	body := map[string]string{
		"instId":  helper.SwapInstID(symbol),
		"lever":   strconv.Itoa(leverage),
		"mgnMode": c.tdMode,
	}
	// posSide обязателен только для isolated в long/short режиме
	if c.tdMode == "isolated" {
		body["posSide"] = side.Lower()
	}
	return c.post(ctx, "/api/v5/account/set-leverage", body, nil)
}

func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side models.PositionSide, qty decimal.Decimal) (string, error) {
	return c.marketOrder(ctx, symbol, side, qty, false)
}

// ClosePosition: рыночный reduceOnly на противоположной стороне.
func (c *Client) ClosePosition(ctx context.Context, symbol string, side models.PositionSide, qty decimal.Decimal) (string, error) {
	return c.marketOrder(ctx, symbol, side, qty, true)
}

func (c *Client) marketOrder(ctx context.Context, symbol string, side models.PositionSide, qty decimal.Decimal, reduce bool) (string, error) {
	if !qty.IsPositive() {
		return "", fmt.Errorf("okx market order: qty <= 0")
	}
	instID := helper.SwapInstID(symbol)
	sz, err := c.toContracts(ctx, instID, qty)
	if err != nil {
		return "", err
	}

	orderSide := side.OpenSide()
	if reduce {
		orderSide = side.CloseSide()
	}
	body := map[string]any{
		"instId":  instID,
		"tdMode":  c.tdMode,
		"side":    lowerSide(orderSide),
		"posSide": side.Lower(),
		"ordType": "market",
		"sz":      sz,
	}
	if reduce {
		body["reduceOnly"] = true
	}

	var acks []tradeAck
	if err := c.post(ctx, "/api/v5/trade/order", body, &acks); err != nil {
		return "", err
	}
	a, err := firstAck("okx order", acks)
	if err != nil {
		return "", err
	}
	return a.OrdID, nil
}

func lowerSide(s models.Side) string {
	if s == models.SideSell {
		return "sell"
	}
	return "buy"
}
