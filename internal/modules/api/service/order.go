package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"
	"trade_guard/internal/helper"
	"trade_guard/internal/models"
	"trade_guard/internal/runner"
	"trade_guard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const signalTokenHeader = "X-Signal-Token"

// orderRequest: тело вебхука. Числа приходят и строками, и числами.
type orderRequest struct {
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	USDTAmount decimal.Decimal `json:"usdt_amount"`
	TP         decimal.Decimal `json:"tp"`
	SL         decimal.Decimal `json:"sl"`
	Leverage   decimal.Decimal `json:"leverage"`
	Token      string          `json:"token"`
}

func (r orderRequest) intent() (models.TradeIntent, error) {
	side, err := models.ParseSide(r.Side)
	if err != nil {
		return models.TradeIntent{}, err
	}
	if !r.Leverage.Equal(r.Leverage.Truncate(0)) {
		return models.TradeIntent{}, fmt.Errorf("leverage must be an integer")
	}
	// IntPart за пределами int64 молча обрезается
	if r.Leverage.IsNegative() || r.Leverage.GreaterThan(decimal.NewFromInt(models.MaxLeverage)) {
		return models.TradeIntent{}, fmt.Errorf("leverage must be in 0..%d", models.MaxLeverage)
	}
	in := models.TradeIntent{
		Symbol:     helper.DashSymbol(r.Symbol),
		Side:       side,
		Notional:   r.USDTAmount,
		TakeProfit: r.TP,
		StopLoss:   r.SL,
		Leverage:   int(r.Leverage.IntPart()),
	}
	return in, in.Validate()
}

// errorStatus: HTTP-код по виду отказа.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, runner.ErrLockContention):
		return http.StatusConflict, "lock_contention"
	case errors.Is(err, runner.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity, "invalid_quantity"
	case errors.Is(err, runner.ErrTpSlMismatch):
		return http.StatusUnprocessableEntity, "tp_sl_mismatch"
	case errors.Is(err, runner.ErrFillTimeout):
		return http.StatusGatewayTimeout, "fill_timeout"
	case errors.Is(err, runner.ErrGateway):
		return http.StatusBadGateway, "gateway"
	}
	return http.StatusInternalServerError, "internal"
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}

func (s *Server) authorized(c *gin.Context, bodyToken string) bool {
	if s.token == "" {
		return true
	}
	got := c.GetHeader(signalTokenHeader)
	if got == "" {
		got = bodyToken
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}

// handleOrder: вход сигнала. Отвечает после постановки TP/SL или отказа.
func (s *Server) handleOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if !s.authorized(c, req.Token) {
		errorResponse(c, http.StatusUnauthorized, "unauthorized", "bad signal token")
		return
	}
	in, err := req.intent()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	logger.Info("[API] order %s %s usdt=%s tp=%s sl=%s lev=%d",
		in.Symbol, in.Side, in.Notional, in.TakeProfit, in.StopLoss, in.Leverage)

	res, err := s.trader.Execute(c.Request.Context(), in)
	s.state.TouchTrade(time.Now())
	if err != nil {
		status, code := errorStatus(err)
		c.JSON(status, gin.H{
			"status":   "error",
			"code":     code,
			"message":  err.Error(),
			"trade_id": res.TradeID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"trade_id":    res.TradeID,
		"quantity":    res.Quantity.String(),
		"entry_price": res.EntryPrice.String(),
	})
}
