package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"trade_guard/internal/exchange"
	"trade_guard/internal/models"
	"trade_guard/internal/modules/config"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Binance.APIKey = "key"
	cfg.Binance.APISecret = "secret"
	c := NewClient(cfg)
	c.api.BaseURL = srv.URL
	return c
}

func TestQuantityPrecision(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/exchangeInfo" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"symbols":[{"symbol":"ETHUSDT","quantityPrecision":3},{"symbol":"BTCUSDT","quantityPrecision":3},{"symbol":"DOGEUSDT","quantityPrecision":0}]}`)
	})

	got, err := c.QuantityPrecision(context.Background(), "DOGE-USDT")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("precision = %d, want 0", got)
	}
	if _, err := c.QuantityPrecision(context.Background(), "XRPUSDT"); err == nil {
		t.Error("expected not found")
	}
}

func TestPlaceConditionalOrder_Params(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/fapi/v1/order" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = r.ParseForm()
		want := map[string]string{
			"symbol":       "BTCUSDT",
			"side":         "SELL",
			"positionSide": "LONG",
			"type":         "STOP_MARKET",
			"stopPrice":    "65000",
			"quantity":     "0.001",
			"workingType":  "MARK_PRICE",
		}
		for k, v := range want {
			if got := r.Form.Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		if !strings.HasPrefix(r.Form.Get("newClientOrderId"), "tg-stop_market-") {
			t.Errorf("newClientOrderId = %q", r.Form.Get("newClientOrderId"))
		}
		if r.Form.Get("signature") == "" {
			t.Error("request is not signed")
		}
		_, _ = io.WriteString(w, `{"orderId":4242,"symbol":"BTCUSDT","status":"NEW"}`)
	})

	id, err := c.PlaceConditionalOrder(context.Background(), exchange.ConditionalOrder{
		Symbol:    "BTC-USDT",
		Side:      models.PositionLong,
		Kind:      exchange.KindStopLoss,
		Quantity:  decimal.RequireFromString("0.001"),
		StopPrice: decimal.NewFromInt(65000),
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "4242" {
		t.Errorf("id = %s", id)
	}
}

func TestGetPosition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/positionRisk") {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[
			{"symbol":"BTCUSDT","positionSide":"LONG","positionAmt":"0.010","entryPrice":"68000.0"},
			{"symbol":"BTCUSDT","positionSide":"SHORT","positionAmt":"0.000","entryPrice":"0.0"}
		]`)
	})

	long, err := c.GetPosition(context.Background(), "BTCUSDT", models.PositionLong)
	if err != nil {
		t.Fatal(err)
	}
	if !long.Exists || !long.Quantity.Equal(decimal.RequireFromString("0.01")) || !long.AvgEntryPrice.Equal(decimal.NewFromInt(68000)) {
		t.Errorf("long = %+v", long)
	}

	short, err := c.GetPosition(context.Background(), "BTCUSDT", models.PositionShort)
	if err != nil {
		t.Fatal(err)
	}
	if short.Exists {
		t.Error("short must be flat")
	}
}

func TestClientIDLength(t *testing.T) {
	for _, p := range []string{"entry", "close", "take_profit_market"} {
		if id := clientID(p); len(id) > 36 {
			t.Errorf("clientID(%s) len = %d", p, len(id))
		}
	}
}
