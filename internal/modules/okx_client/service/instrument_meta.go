package service

import (
	"context"
	"fmt"
	"net/url"
	"trade_guard/internal/exchange"
	"trade_guard/internal/helper"

	"github.com/shopspring/decimal"
)

type instrument struct {
	InstID string `json:"instId"`
	LotSz  string `json:"lotSz"`
	MinSz  string `json:"minSz"`
	CtVal  string `json:"ctVal"`
	CtMult string `json:"ctMult"`
	State  string `json:"state"`
}

// instrumentMeta: всё, что нужно для перевода базовой валюты в контракты.
type instrumentMeta struct {
	LotSz decimal.Decimal
	CtVal decimal.Decimal // с учётом ctMult
}

// baseStep: минимальный шаг количества в базовой валюте.
func (m instrumentMeta) baseStep() decimal.Decimal { return m.LotSz.Mul(m.CtVal) }

func (c *Client) instrumentMeta(ctx context.Context, instID string) (instrumentMeta, error) {
	c.mu.RLock()
	m, ok := c.meta[instID]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	var insts []instrument
	q := url.Values{"instType": {"SWAP"}, "instId": {instID}}
	if err := c.get(ctx, "/api/v5/public/instruments", q, false, &insts); err != nil {
		return instrumentMeta{}, err
	}
	if len(insts) == 0 {
		return instrumentMeta{}, fmt.Errorf("okx instrument %s: %w", instID, exchange.ErrSymbolNotFound)
	}

	inst := insts[0]
	if inst.State != "" && inst.State != "live" {
		return instrumentMeta{}, fmt.Errorf("instrument %s not live: state=%s", instID, inst.State)
	}
	lot, ctVal := parseDec(inst.LotSz), parseDec(inst.CtVal)
	if !lot.IsPositive() || !ctVal.IsPositive() {
		return instrumentMeta{}, fmt.Errorf("instrument %s: bad lotSz=%q ctVal=%q", instID, inst.LotSz, inst.CtVal)
	}
	if mult := parseDec(inst.CtMult); mult.IsPositive() {
		ctVal = ctVal.Mul(mult)
	}

	m = instrumentMeta{LotSz: lot, CtVal: ctVal}
	c.mu.Lock()
	c.meta[instID] = m
	c.mu.Unlock()
	return m, nil
}

// QuantityPrecision: знаки базового количества: шаг = lotSz * ctVal.
func (c *Client) QuantityPrecision(ctx context.Context, symbol string) (int32, error) {
	m, err := c.instrumentMeta(ctx, helper.SwapInstID(symbol))
	if err != nil {
		return 0, err
	}
	return helper.DecimalPlaces(m.baseStep()), nil
}

// toContracts переводит базовое количество в sz (контракты), округляя вниз до lotSz.
func (c *Client) toContracts(ctx context.Context, instID string, qty decimal.Decimal) (string, error) {
	m, err := c.instrumentMeta(ctx, instID)
	if err != nil {
		return "", err
	}
	sz := qty.Div(m.CtVal)
	sz = sz.Div(m.LotSz).Floor().Mul(m.LotSz)
	if !sz.IsPositive() {
		return "", fmt.Errorf("okx %s: qty %s below one lot", instID, qty)
	}
	return sz.String(), nil
}

func (c *Client) fromContracts(ctx context.Context, instID string, sz decimal.Decimal) decimal.Decimal {
	m, err := c.instrumentMeta(ctx, instID)
	if err != nil {
		return sz
	}
	return sz.Mul(m.CtVal)
}
