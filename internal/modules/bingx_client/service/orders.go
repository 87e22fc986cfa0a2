package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"trade_guard/internal/exchange"
	"trade_guard/internal/helper"
	"trade_guard/internal/models"

	"github.com/shopspring/decimal"
)

type orderAck struct {
	Order struct {
		OrderID json.Number `json:"orderId"`
		Symbol  string      `json:"symbol"`
		Status  string      `json:"status"`
	} `json:"order"`
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, side models.PositionSide, leverage int) error {
	params := url.Values{
		"symbol":   {helper.DashSymbol(symbol)},
		"side":     {string(side)},
		"leverage": {strconv.Itoa(leverage)},
	}
	return c.do(ctx, http.MethodPost, "/openApi/swap/v2/trade/leverage", params, true, nil)
}

func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side models.PositionSide, qty decimal.Decimal) (string, error) {
	if !qty.IsPositive() {
		return "", fmt.Errorf("PlaceMarketOrder: qty <= 0")
	}
	params := url.Values{
		"symbol":       {helper.DashSymbol(symbol)},
		"side":         {string(side.OpenSide())},
		"positionSide": {string(side)},
		"type":         {"MARKET"},
		"quantity":     {qty.String()},
	}
	return c.placeOrder(ctx, params)
}

// PlaceConditionalOrder: в hedge-режиме противоположная сторона + positionSide = только закрытие.
func (c *Client) PlaceConditionalOrder(ctx context.Context, o exchange.ConditionalOrder) (string, error) {
	if o.Kind != exchange.KindTakeProfit && o.Kind != exchange.KindStopLoss {
		return "", fmt.Errorf("PlaceConditionalOrder: unsupported kind %q", o.Kind)
	}
	if !o.Quantity.IsPositive() {
		return "", fmt.Errorf("PlaceConditionalOrder: qty <= 0")
	}
	if !o.StopPrice.IsPositive() {
		return "", fmt.Errorf("PlaceConditionalOrder: stopPrice <= 0")
	}
	params := url.Values{
		"symbol":       {helper.DashSymbol(o.Symbol)},
		"side":         {string(o.Side.CloseSide())},
		"positionSide": {string(o.Side)},
		"type":         {string(o.Kind)},
		"quantity":     {o.Quantity.String()},
		"stopPrice":    {o.StopPrice.String()},
		"workingType":  {"MARK_PRICE"},
	}
	return c.placeOrder(ctx, params)
}

func (c *Client) ClosePosition(ctx context.Context, symbol string, side models.PositionSide, qty decimal.Decimal) (string, error) {
	if !qty.IsPositive() {
		return "", fmt.Errorf("ClosePosition: qty <= 0")
	}
	params := url.Values{
		"symbol":       {helper.DashSymbol(symbol)},
		"side":         {string(side.CloseSide())},
		"positionSide": {string(side)},
		"type":         {"MARKET"},
		"quantity":     {qty.String()},
	}
	return c.placeOrder(ctx, params)
}

func (c *Client) placeOrder(ctx context.Context, params url.Values) (string, error) {
	var ack orderAck
	if err := c.do(ctx, http.MethodPost, "/openApi/swap/v2/trade/order", params, true, &ack); err != nil {
		return "", err
	}
	if ack.Order.OrderID == "" {
		return "", fmt.Errorf("bingx order: empty orderId")
	}
	return ack.Order.OrderID.String(), nil
}

type openOrdersData struct {
	Orders []struct {
		OrderID      json.Number `json:"orderId"`
		Symbol       string      `json:"symbol"`
		Side         string      `json:"side"`
		PositionSide string      `json:"positionSide"`
		Type         string      `json:"type"`
		OrigQty      string      `json:"origQty"`
		StopPrice    string      `json:"stopPrice"`
	} `json:"orders"`
}

func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	var data openOrdersData
	params := url.Values{"symbol": {helper.DashSymbol(symbol)}}
	if err := c.do(ctx, http.MethodGet, "/openApi/swap/v2/trade/openOrders", params, true, &data); err != nil {
		return nil, err
	}

	res := make([]exchange.OpenOrder, 0, len(data.Orders))
	for _, o := range data.Orders {
		res = append(res, exchange.OpenOrder{
			ID:        o.OrderID.String(),
			Symbol:    o.Symbol,
			Side:      positionSide(o.PositionSide),
			Kind:      orderKind(o.Type),
			Quantity:  parseDec(o.OrigQty),
			StopPrice: parseDec(o.StopPrice),
		})
	}
	return res, nil
}

func orderKind(t string) exchange.OrderKind {
	switch t {
	case "TAKE_PROFIT_MARKET", "TAKE_PROFIT":
		return exchange.KindTakeProfit
	case "STOP_MARKET", "STOP":
		return exchange.KindStopLoss
	case "MARKET":
		return exchange.KindMarket
	}
	return exchange.KindOther
}

func positionSide(s string) models.PositionSide {
	switch s {
	case "LONG":
		return models.PositionLong
	case "SHORT":
		return models.PositionShort
	}
	return "" // BOTH / one-way
}
