package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"trade_guard/internal/exchange"
	"trade_guard/internal/helper"
)

type contract struct {
	Symbol            string `json:"symbol"`
	QuantityPrecision int32  `json:"quantityPrecision"`
	PricePrecision    int32  `json:"pricePrecision"`
	Status            int    `json:"status"`
}

// QuantityPrecision: число знаков количества из /quote/contracts.
func (c *Client) QuantityPrecision(ctx context.Context, symbol string) (int32, error) {
	sym := helper.DashSymbol(symbol)

	var contracts []contract
	params := url.Values{"symbol": {sym}}
	if err := c.do(ctx, http.MethodGet, "/openApi/swap/v2/quote/contracts", params, false, &contracts); err != nil {
		return 0, err
	}
	for _, ct := range contracts {
		if ct.Symbol == sym {
			return ct.QuantityPrecision, nil
		}
	}
	return 0, fmt.Errorf("bingx contracts %s: %w", sym, exchange.ErrSymbolNotFound)
}
