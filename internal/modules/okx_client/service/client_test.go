package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"trade_guard/internal/exchange"
	"trade_guard/internal/models"
	"trade_guard/internal/modules/config"

	"github.com/shopspring/decimal"
)

const btcInstrument = `{"code":"0","msg":"","data":[{"instId":"BTC-USDT-SWAP","lotSz":"0.01","minSz":"0.01","ctVal":"0.01","ctMult":"1","state":"live"}]}`

type okxFake struct {
	t      *testing.T
	routes map[string]func(w http.ResponseWriter, r *http.Request, body []byte)
}

func (f *okxFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if r.URL.Path == "/api/v5/public/instruments" {
		_, _ = io.WriteString(w, btcInstrument)
		return
	}

	requestPath := r.URL.Path
	if r.URL.RawQuery != "" {
		requestPath += "?" + r.URL.RawQuery
	}
	ts := r.Header.Get("OK-ACCESS-TIMESTAMP")
	h := hmac.New(sha256.New, []byte("secret"))
	h.Write([]byte(ts + r.Method + requestPath + string(body)))
	if want := base64.StdEncoding.EncodeToString(h.Sum(nil)); r.Header.Get("OK-ACCESS-SIGN") != want {
		f.t.Errorf("%s: bad signature", requestPath)
	}
	if r.Header.Get("OK-ACCESS-PASSPHRASE") != "pass" {
		f.t.Errorf("passphrase = %q", r.Header.Get("OK-ACCESS-PASSPHRASE"))
	}

	handler, ok := f.routes[r.URL.Path]
	if !ok {
		f.t.Errorf("unexpected path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	handler(w, r, body)
}

func newTestClient(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request, body []byte)) *Client {
	t.Helper()
	srv := httptest.NewServer(&okxFake{t: t, routes: routes})
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.OKX.BaseURL = srv.URL
	cfg.OKX.APIKey = "key"
	cfg.OKX.APISecret = "secret"
	cfg.OKX.Passphrase = "pass"
	cfg.OKX.TdMode = "cross"

	c := NewClient(cfg)
	c.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c
}

func TestQuantityPrecisionFromLotAndCtVal(t *testing.T) {
	c := newTestClient(t, nil)

	got, err := c.QuantityPrecision(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("QuantityPrecision: %v", err)
	}
	// lotSz 0.01 * ctVal 0.01 = 0.0001 BTC
	if got != 4 {
		t.Errorf("precision = %d, want 4", got)
	}
}

func TestPlaceConditionalOrder_LongStopLoss(t *testing.T) {
	c := newTestClient(t, map[string]func(http.ResponseWriter, *http.Request, []byte){
		"/api/v5/trade/order-algo": func(w http.ResponseWriter, r *http.Request, body []byte) {
			var got map[string]any
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("body: %v", err)
			}
			want := map[string]any{
				"instId":      "BTC-USDT-SWAP",
				"side":        "sell",
				"posSide":     "long",
				"ordType":     "conditional",
				"sz":          "1.5",
				"slTriggerPx": "65000",
				"slOrdPx":     "-1",
				"reduceOnly":  true,
			}
			for k, v := range want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
			if _, ok := got["tpTriggerPx"]; ok {
				t.Error("stop-loss must not carry tpTriggerPx")
			}
			_, _ = io.WriteString(w, `{"code":"0","msg":"","data":[{"algoId":"A1","sCode":"0","sMsg":""}]}`)
		},
	})

	id, err := c.PlaceConditionalOrder(context.Background(), exchange.ConditionalOrder{
		Symbol:    "BTC-USDT",
		Side:      models.PositionLong,
		Kind:      exchange.KindStopLoss,
		Quantity:  decimal.RequireFromString("0.0150"),
		StopPrice: decimal.NewFromInt(65000),
	})
	if err != nil {
		t.Fatalf("PlaceConditionalOrder: %v", err)
	}
	if id != "A1" {
		t.Errorf("algoId = %s", id)
	}
}

func TestClosePosition_Rejected(t *testing.T) {
	c := newTestClient(t, map[string]func(http.ResponseWriter, *http.Request, []byte){
		"/api/v5/trade/order": func(w http.ResponseWriter, r *http.Request, body []byte) {
			if !strings.Contains(string(body), `"reduceOnly":true`) || !strings.Contains(string(body), `"side":"buy"`) {
				t.Errorf("close body = %s", body)
			}
			_, _ = io.WriteString(w, `{"code":"0","msg":"","data":[{"ordId":"","sCode":"51008","sMsg":"insufficient"}]}`)
		},
	})

	_, err := c.ClosePosition(context.Background(), "BTCUSDT", models.PositionShort, decimal.RequireFromString("0.02"))
	if err == nil || !strings.Contains(err.Error(), "51008") {
		t.Fatalf("err = %v", err)
	}
}

func TestMarketOrderBelowOneLot(t *testing.T) {
	c := newTestClient(t, nil)

	if _, err := c.PlaceMarketOrder(context.Background(), "BTCUSDT", models.PositionLong, decimal.RequireFromString("0.00001")); err == nil {
		t.Fatal("expected error for qty below lot")
	}
}

func TestGetPositionAndOpenOrders(t *testing.T) {
	c := newTestClient(t, map[string]func(http.ResponseWriter, *http.Request, []byte){
		"/api/v5/account/positions": func(w http.ResponseWriter, r *http.Request, _ []byte) {
			_, _ = io.WriteString(w, `{"code":"0","data":[{"instId":"BTC-USDT-SWAP","posSide":"long","pos":"3","avgPx":"68000"}]}`)
		},
		"/api/v5/trade/orders-algo-pending": func(w http.ResponseWriter, r *http.Request, _ []byte) {
			if r.URL.Query().Get("ordType") != "conditional" {
				t.Errorf("ordType = %q", r.URL.Query().Get("ordType"))
			}
			_, _ = io.WriteString(w, `{"code":"0","data":[
				{"algoId":"1","instId":"BTC-USDT-SWAP","posSide":"long","sz":"3","tpTriggerPx":"70000","slTriggerPx":""},
				{"algoId":"2","instId":"BTC-USDT-SWAP","posSide":"long","sz":"3","tpTriggerPx":"","slTriggerPx":"65000"}
			]}`)
		},
	})

	pos, err := c.GetPosition(context.Background(), "BTCUSDT", models.PositionLong)
	if err != nil {
		t.Fatal(err)
	}
	if !pos.Exists || !pos.Quantity.Equal(decimal.RequireFromString("0.03")) {
		t.Errorf("pos = %+v", pos)
	}

	short, err := c.GetPosition(context.Background(), "BTCUSDT", models.PositionShort)
	if err != nil {
		t.Fatal(err)
	}
	if short.Exists {
		t.Error("short must be flat")
	}

	orders, err := c.GetOpenOrders(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	hasTP, hasSL := exchange.ClassifyProtection(orders, models.PositionLong)
	if !hasTP || !hasSL {
		t.Errorf("classify = %v %v (%+v)", hasTP, hasSL, orders)
	}
}
