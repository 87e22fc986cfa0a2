package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"trade_guard/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

const (
	maxGetAttempts = 3
	getRetryDelay  = 300 * time.Millisecond
)

// Client: REST-клиент BingX perpetual swap (v2).
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	apiSecret string
	now       func() time.Time
}

func NewClient(cfg *config.Config) *Client {
	base := strings.TrimRight(cfg.BingX.BaseURL, "/")
	if base == "" {
		base = "https://open-api.bingx.com"
	}
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		baseURL:   base,
		apiKey:    cfg.BingX.APIKey,
		apiSecret: cfg.BingX.APISecret,
		now:       time.Now,
	}
}

func (c *Client) Name() string { return config.ExchangeBingX }

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// sign: hex(HMAC-SHA256(secret, query)).
func (c *Client) sign(query string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// do подписывает params (если signed) и декодирует data в out.
// GET повторяется на сетевых ошибках и 5xx; POST: никогда (дубль ордера хуже ошибки).
func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	attempts := 1
	if method == http.MethodGet {
		attempts = maxGetAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * getRetryDelay):
			}
		}
		retry, err := c.doOnce(ctx, method, path, params, signed, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, params url.Values, signed bool, out any) (bool, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	query := q.Encode()
	if signed {
		q.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		query = q.Encode()
		query += "&signature=" + c.sign(query)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return false, fmt.Errorf("bingx %s new request: %w", path, err)
	}
	if signed {
		req.Header.Set("X-BX-APIKEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("bingx %s do: %w", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return resp.StatusCode >= 500, fmt.Errorf("bingx %s http %d: %s", path, resp.StatusCode, string(data))
	}

	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("bingx %s decode: %w; body=%s", path, err, string(data))
	}
	if env.Code != 0 {
		return false, fmt.Errorf("bingx %s error: code=%d msg=%s", path, env.Code, env.Msg)
	}
	if out == nil || len(env.Data) == 0 {
		return false, nil
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("bingx %s decode data: %w; data=%s", path, err, string(env.Data))
	}
	return false, nil
}

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
