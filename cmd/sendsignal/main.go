package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const defaultConfigName = ".sendsignal"

// signal: то же тело, что шлёт источник алертов.
type signal struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	USDTAmount string `json:"usdt_amount"`
	TP         string `json:"tp"`
	SL         string `json:"sl"`
	Leverage   int    `json:"leverage,omitempty"`
}

func loadSettings(args []string) (*viper.Viper, error) {
	fs := flag.NewFlagSet("sendsignal", flag.ContinueOnError)
	fs.String("url", "http://localhost:8080/api/order", "order endpoint")
	fs.String("token", "", "X-Signal-Token")
	fs.String("symbol", "", "symbol, e.g. BTC-USDT")
	fs.String("side", "BUY", "BUY | SELL")
	fs.String("usdt", "", "notional in USDT")
	fs.String("tp", "", "take profit price")
	fs.String("sl", "", "stop loss price")
	fs.Int("leverage", 0, "0 => server default")
	fs.Duration("timeout", time.Minute, "request timeout")
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}

	v := viper.New()
	v.SetConfigName(defaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("SENDSIGNAL")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	// явно заданные флаги перекрывают файл и env
	fs.Visit(func(f *flag.Flag) { v.Set(f.Name, f.Value.String()) })
	fs.VisitAll(func(f *flag.Flag) { v.SetDefault(f.Name, f.DefValue) })
	return v, nil
}

func buildSignal(v *viper.Viper) (signal, error) {
	s := signal{
		Symbol:     strings.ToUpper(v.GetString("symbol")),
		Side:       strings.ToUpper(v.GetString("side")),
		USDTAmount: v.GetString("usdt"),
		TP:         v.GetString("tp"),
		SL:         v.GetString("sl"),
		Leverage:   v.GetInt("leverage"),
	}
	for name, val := range map[string]string{"symbol": s.Symbol, "usdt": s.USDTAmount, "tp": s.TP, "sl": s.SL} {
		if val == "" {
			return s, errors.Errorf("%s is required", name)
		}
	}
	return s, nil
}

func send(client *http.Client, url, token string, s signal) (int, map[string]any, error) {
	body, err := sonic.Marshal(s)
	if err != nil {
		return 0, nil, errors.Wrap(err, "marshal signal")
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Signal-Token", token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "post signal")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "read response")
	}
	var out map[string]any
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, fmt.Sprintf("decode response %q", string(raw)))
	}
	return resp.StatusCode, out, nil
}

func main() {
	v, err := loadSettings(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	s, err := buildSignal(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	client := &http.Client{Timeout: v.GetDuration("timeout")}
	status, out, err := send(client, v.GetString("url"), v.GetString("token"), s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	bs, err := yaml.Marshal(out)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "marshal response to yaml"))
		os.Exit(1)
	}
	fmt.Printf("HTTP %d\n%s", status, bs)
	if status != http.StatusOK {
		os.Exit(1)
	}
}
