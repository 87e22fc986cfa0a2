package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"trade_guard/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// Client: REST-клиент OKX v5 для SWAP-инструментов.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	secret  string
	passph  string
	tdMode  string
	now     func() time.Time

	mu   sync.RWMutex
	meta map[string]instrumentMeta // instId -> lot/ctVal
}

func NewClient(cfg *config.Config) *Client {
	base := strings.TrimRight(cfg.OKX.BaseURL, "/")
	if base == "" {
		base = "https://www.okx.com"
	}
	td := cfg.OKX.TdMode
	if td == "" {
		td = "cross"
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: base,
		apiKey:  cfg.OKX.APIKey,
		secret:  cfg.OKX.APISecret,
		passph:  cfg.OKX.Passphrase,
		tdMode:  td,
		now:     time.Now,
		meta:    make(map[string]instrumentMeta),
	}
}

func (c *Client) Name() string { return config.ExchangeOKX }

// sign: base64(HMAC-SHA256(secret, ts+METHOD+path+body)).
func (c *Client) sign(ts, method, requestPath, body string) string {
	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(ts + strings.ToUpper(method) + requestPath + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// okxResp: общий конверт ответа. sCode/sMsg есть только у торговых ручек.
type okxResp struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type tradeAck struct {
	OrdID  string `json:"ordId"`
	AlgoID string `json:"algoId"`
	SCode  string `json:"sCode"`
	SMsg   string `json:"sMsg"`
}

// get: подписанный GET; query входит в подписываемый путь.
func (c *Client) get(ctx context.Context, path string, query url.Values, signed bool, out any) error {
	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}
	return c.call(ctx, http.MethodGet, requestPath, nil, signed, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return fmt.Errorf("okx %s marshal: %w", path, err)
	}
	return c.call(ctx, http.MethodPost, path, payload, true, out)
}

func (c *Client) call(ctx context.Context, method, requestPath string, payload []byte, signed bool, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, body)
	if err != nil {
		return fmt.Errorf("okx %s new request: %w", requestPath, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signed {
		ts := c.now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.Header.Set("OK-ACCESS-KEY", c.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, requestPath, string(payload)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("okx %s do: %w", requestPath, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("okx %s http %d: %s", requestPath, resp.StatusCode, string(data))
	}

	var r okxResp
	if err := sonic.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("okx %s decode: %w; body=%s", requestPath, err, string(data))
	}
	if r.Code != "0" {
		return fmt.Errorf("okx %s error: code=%s msg=%s RAW=%s", requestPath, r.Code, r.Msg, string(data))
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("okx %s decode data: %w", requestPath, err)
	}
	return nil
}

// firstAck проверяет детальный статус торговой ручки.
func firstAck(op string, acks []tradeAck) (tradeAck, error) {
	if len(acks) == 0 {
		return tradeAck{}, fmt.Errorf("%s: empty data", op)
	}
	a := acks[0]
	if a.SCode != "" && a.SCode != "0" {
		return tradeAck{}, fmt.Errorf("%s rejected: sCode=%s sMsg=%s", op, a.SCode, a.SMsg)
	}
	return a, nil
}

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
