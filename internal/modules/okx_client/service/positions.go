package service

import (
	"context"
	"net/url"
	"trade_guard/internal/exchange"
	"trade_guard/internal/helper"
	"trade_guard/internal/models"
)

type okxPosition struct {
	InstID  string `json:"instId"`
	PosSide string `json:"posSide"`
	Pos     string `json:"pos"`
	AvgPx   string `json:"avgPx"`
}

type algoOrder struct {
	AlgoID      string `json:"algoId"`
	InstID      string `json:"instId"`
	PosSide     string `json:"posSide"`
	Sz          string `json:"sz"`
	TpTriggerPx string `json:"tpTriggerPx"`
	SlTriggerPx string `json:"slTriggerPx"`
}

// GetPosition: pos в контрактах переводится в базовую валюту.
func (c *Client) GetPosition(ctx context.Context, symbol string, side models.PositionSide) (models.Position, error) {
	instID := helper.SwapInstID(symbol)

	var rows []okxPosition
	q := url.Values{"instType": {"SWAP"}, "instId": {instID}}
	if err := c.get(ctx, "/api/v5/account/positions", q, true, &rows); err != nil {
		return models.FlatPosition, err
	}

	for _, p := range rows {
		if okxPosSide(p.PosSide) != side {
			continue
		}
		sz := parseDec(p.Pos).Abs()
		if sz.IsZero() {
			continue
		}
		return models.Position{
			Exists:        true,
			Quantity:      c.fromContracts(ctx, instID, sz),
			AvgEntryPrice: parseDec(p.AvgPx),
		}, nil
	}
	return models.FlatPosition, nil
}

// GetOpenOrders: ожидающие conditional-алго. У одного алго может быть и TP, и SL.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	instID := helper.SwapInstID(symbol)

	var rows []algoOrder
	q := url.Values{"ordType": {"conditional"}, "instType": {"SWAP"}, "instId": {instID}}
	if err := c.get(ctx, "/api/v5/trade/orders-algo-pending", q, true, &rows); err != nil {
		return nil, err
	}

	res := make([]exchange.OpenOrder, 0, len(rows))
	for _, a := range rows {
		base := exchange.OpenOrder{
			ID:       a.AlgoID,
			Symbol:   a.InstID,
			Side:     okxPosSide(a.PosSide),
			Quantity: c.fromContracts(ctx, instID, parseDec(a.Sz)),
		}
		if tp := parseDec(a.TpTriggerPx); tp.IsPositive() {
			o := base
			o.Kind, o.StopPrice = exchange.KindTakeProfit, tp
			res = append(res, o)
		}
		if sl := parseDec(a.SlTriggerPx); sl.IsPositive() {
			o := base
			o.Kind, o.StopPrice = exchange.KindStopLoss, sl
			res = append(res, o)
		}
	}
	return res, nil
}

func okxPosSide(s string) models.PositionSide {
	switch s {
	case "long":
		return models.PositionLong
	case "short":
		return models.PositionShort
	}
	return "" // net
}

var _ exchange.Gateway = (*Client)(nil)
