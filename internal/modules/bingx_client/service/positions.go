package service

import (
	"context"
	"net/http"
	"net/url"
	"trade_guard/internal/helper"
	"trade_guard/internal/models"
)

type position struct {
	Symbol       string `json:"symbol"`
	PositionSide string `json:"positionSide"`
	PositionAmt  string `json:"positionAmt"`
	AvgPrice     string `json:"avgPrice"`
}

// GetPosition: свежий снимок позиции side. Нулевой объём => Exists=false.
func (c *Client) GetPosition(ctx context.Context, symbol string, side models.PositionSide) (models.Position, error) {
	var positions []position
	params := url.Values{"symbol": {helper.DashSymbol(symbol)}}
	if err := c.do(ctx, http.MethodGet, "/openApi/swap/v2/user/positions", params, true, &positions); err != nil {
		return models.FlatPosition, err
	}

	for _, p := range positions {
		if positionSide(p.PositionSide) != side {
			continue
		}
		qty := parseDec(p.PositionAmt).Abs()
		if qty.IsZero() {
			continue
		}
		return models.Position{
			Exists:        true,
			Quantity:      qty,
			AvgEntryPrice: parseDec(p.AvgPrice),
		}, nil
	}
	return models.FlatPosition, nil
}
