package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"trade_guard/internal/exchange"
	"trade_guard/internal/helper"
	"trade_guard/internal/models"
	"trade_guard/internal/modules/config"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client: USDⓈ-M futures через go-binance. Аккаунт в hedge-режиме:
// закрывающие ордера идут с positionSide, reduceOnly в этом режиме биржа не принимает.
type Client struct {
	api *futures.Client
}

func NewClient(cfg *config.Config) *Client {
	if cfg.Binance.Testnet {
		futures.UseTestnet = true
	}
	return &Client{api: binance.NewFuturesClient(cfg.Binance.APIKey, cfg.Binance.APISecret)}
}

func (c *Client) Name() string { return config.ExchangeBinance }

func (c *Client) QuantityPrecision(ctx context.Context, symbol string) (int32, error) {
	sym := helper.PlainSymbol(symbol)
	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance exchangeInfo: %w", err)
	}
	for _, s := range info.Symbols {
		if s.Symbol == sym {
			return int32(s.QuantityPrecision), nil
		}
	}
	return 0, fmt.Errorf("binance exchangeInfo %s: %w", sym, exchange.ErrSymbolNotFound)
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, _ models.PositionSide, leverage int) error {
	_, err := c.api.NewChangeLeverageService().
		Symbol(helper.PlainSymbol(symbol)).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("binance leverage: %w", err)
	}
	return nil
}

func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side models.PositionSide, qty decimal.Decimal) (string, error) {
	if !qty.IsPositive() {
		return "", fmt.Errorf("PlaceMarketOrder: qty <= 0")
	}
	res, err := c.api.NewCreateOrderService().
		Symbol(helper.PlainSymbol(symbol)).
		Side(sideType(side.OpenSide())).
		PositionSide(posSideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(qty.String()).
		NewClientOrderID(clientID("entry")).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("binance market order: %w", err)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

func (c *Client) PlaceConditionalOrder(ctx context.Context, o exchange.ConditionalOrder) (string, error) {
	var typ futures.OrderType
	switch o.Kind {
	case exchange.KindTakeProfit:
		typ = futures.OrderTypeTakeProfitMarket
	case exchange.KindStopLoss:
		typ = futures.OrderTypeStopMarket
	default:
		return "", fmt.Errorf("PlaceConditionalOrder: unsupported kind %q", o.Kind)
	}
	if !o.Quantity.IsPositive() || !o.StopPrice.IsPositive() {
		return "", fmt.Errorf("PlaceConditionalOrder: qty and stopPrice must be > 0")
	}

	res, err := c.api.NewCreateOrderService().
		Symbol(helper.PlainSymbol(o.Symbol)).
		Side(sideType(o.Side.CloseSide())).
		PositionSide(posSideType(o.Side)).
		Type(typ).
		StopPrice(o.StopPrice.String()).
		Quantity(o.Quantity.String()).
		WorkingType(futures.WorkingTypeMarkPrice).
		NewClientOrderID(clientID(strings.ToLower(string(o.Kind)))).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("binance %s: %w", typ, err)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string, side models.PositionSide, qty decimal.Decimal) (string, error) {
	if !qty.IsPositive() {
		return "", fmt.Errorf("ClosePosition: qty <= 0")
	}
	res, err := c.api.NewCreateOrderService().
		Symbol(helper.PlainSymbol(symbol)).
		Side(sideType(side.CloseSide())).
		PositionSide(posSideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(qty.String()).
		NewClientOrderID(clientID("close")).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("binance close: %w", err)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

func (c *Client) GetPosition(ctx context.Context, symbol string, side models.PositionSide) (models.Position, error) {
	risks, err := c.api.NewGetPositionRiskService().Symbol(helper.PlainSymbol(symbol)).Do(ctx)
	if err != nil {
		return models.FlatPosition, fmt.Errorf("binance positionRisk: %w", err)
	}
	for _, p := range risks {
		if p.PositionSide != string(side) {
			continue
		}
		qty := parseDec(p.PositionAmt).Abs()
		if qty.IsZero() {
			continue
		}
		return models.Position{
			Exists:        true,
			Quantity:      qty,
			AvgEntryPrice: parseDec(p.EntryPrice),
		}, nil
	}
	return models.FlatPosition, nil
}

func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	orders, err := c.api.NewListOpenOrdersService().Symbol(helper.PlainSymbol(symbol)).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance openOrders: %w", err)
	}

	res := make([]exchange.OpenOrder, 0, len(orders))
	for _, o := range orders {
		res = append(res, exchange.OpenOrder{
			ID:        strconv.FormatInt(o.OrderID, 10),
			Symbol:    o.Symbol,
			Side:      fromPosSide(o.PositionSide),
			Kind:      orderKind(o.Type),
			Quantity:  parseDec(o.OrigQuantity),
			StopPrice: parseDec(o.StopPrice),
		})
	}
	return res, nil
}

func sideType(s models.Side) futures.SideType {
	if s == models.SideSell {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

func posSideType(p models.PositionSide) futures.PositionSideType {
	if p == models.PositionShort {
		return futures.PositionSideTypeShort
	}
	return futures.PositionSideTypeLong
}

func fromPosSide(p futures.PositionSideType) models.PositionSide {
	switch p {
	case futures.PositionSideTypeLong:
		return models.PositionLong
	case futures.PositionSideTypeShort:
		return models.PositionShort
	}
	return "" // BOTH
}

func orderKind(t futures.OrderType) exchange.OrderKind {
	switch t {
	case futures.OrderTypeTakeProfitMarket, futures.OrderTypeTakeProfit:
		return exchange.KindTakeProfit
	case futures.OrderTypeStopMarket, futures.OrderTypeStop:
		return exchange.KindStopLoss
	case futures.OrderTypeMarket:
		return exchange.KindMarket
	}
	return exchange.KindOther
}

// clientID: tg-<назначение>-<uuid>, не длиннее 36 символов.
func clientID(purpose string) string {
	id := "tg-" + purpose + "-" + uuid.NewString()
	if len(id) > 36 {
		id = id[:36]
	}
	return id
}

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

var _ exchange.Gateway = (*Client)(nil)
