package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	defaultConfigFile = "values_local.yaml"
)

// lockTTLMargin: запас на остальные вызовы биржи внутри Execute (плечо, вход, TP/SL).
const lockTTLMargin = time.Minute

const (
	ExchangeBingX   = "bingx"
	ExchangeOKX     = "okx"
	ExchangeBinance = "binance"

	LocksMemory = "memory"
	LocksRedis  = "redis"
)

// Config ...
type Config struct {
	Exchange string `yaml:"exchange"` // bingx | okx | binance

	Service struct {
		HTTPAddr    string   `yaml:"http_addr"`
		SignalToken string   `yaml:"signal_token"` // пусто => без проверки
		CORSOrigins []string `yaml:"cors_origins"`
		Release     bool     `yaml:"release"`
	} `yaml:"service"`

	BingX struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"bingx"`

	OKX struct {
		APIKey     string `yaml:"api_key"`
		APISecret  string `yaml:"api_secret"`
		Passphrase string `yaml:"passphrase"`
		BaseURL    string `yaml:"base_url"`
		TdMode     string `yaml:"td_mode"` // cross | isolated
	} `yaml:"okx"`

	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Testnet   bool   `yaml:"testnet"`
	} `yaml:"binance"`

	Trading Trading `yaml:"trading"`

	Locks struct {
		Backend       string        `yaml:"backend"` // memory | redis
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		TTL           time.Duration `yaml:"ttl"`
	} `yaml:"locks"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

// Trading: константы оркестратора и гардиана.
type Trading struct {
	DefaultLeverage  int           `yaml:"default_leverage"`
	DefaultPrecision int32         `yaml:"default_precision"`
	PrecisionTTL     time.Duration `yaml:"precision_ttl"` // 0 => кеш без обновления

	FillPollInterval time.Duration `yaml:"fill_poll_interval"`
	FillTimeout      time.Duration `yaml:"fill_timeout"`

	GuardianFirstDelay  time.Duration `yaml:"guardian_first_delay"`
	GuardianSecondDelay time.Duration `yaml:"guardian_second_delay"`
	GuardianCheckRetry  time.Duration `yaml:"guardian_check_retry"` // пауза перед повтором запроса ордеров

	CloseOnMismatch bool `yaml:"close_on_mismatch"`
}

func defaults() Config {
	var c Config
	c.Exchange = ExchangeBingX
	c.Service.HTTPAddr = ":8080"
	c.BingX.BaseURL = "https://open-api.bingx.com"
	c.OKX.BaseURL = "https://www.okx.com"
	c.OKX.TdMode = "cross"
	c.Trading = Trading{
		DefaultLeverage:     20,
		DefaultPrecision:    3,
		FillPollInterval:    500 * time.Millisecond,
		FillTimeout:         20 * time.Second,
		GuardianFirstDelay:  300 * time.Second,
		GuardianSecondDelay: 180 * time.Second,
		GuardianCheckRetry:  2 * time.Second,
		CloseOnMismatch:     true,
	}
	c.Locks.Backend = LocksMemory
	c.Locks.TTL = 2 * time.Minute
	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831
	c.Log.Level = "info"
	return c
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	config := defaults()

	dir := getenvDefault(configDirENV, "configs")
	name := os.Getenv(configFilePathENV)
	explicit := name != ""
	if !explicit {
		name = defaultConfigFile
	}

	if err := decodeFile(filepath.Join(dir, name), &config); err != nil {
		// без явного CONFIG_FILE работаем на дефолтах + env
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	applyEnv(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func decodeFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Exchange = strings.ToLower(getenvDefault("EXCHANGE", c.Exchange))
	c.Service.HTTPAddr = getenvDefault("HTTP_ADDR", c.Service.HTTPAddr)
	c.Service.SignalToken = getenvDefault("SIGNAL_TOKEN", c.Service.SignalToken)

	c.BingX.APIKey = getenvDefault("BINGX_API_KEY", c.BingX.APIKey)
	c.BingX.APISecret = getenvDefault("BINGX_API_SECRET", c.BingX.APISecret)

	c.OKX.APIKey = getenvDefault("OKX_API_KEY", c.OKX.APIKey)
	c.OKX.APISecret = getenvDefault("OKX_API_SECRET", c.OKX.APISecret)
	c.OKX.Passphrase = getenvDefault("OKX_PASSPHRASE", c.OKX.Passphrase)

	c.Binance.APIKey = getenvDefault("BINANCE_API_KEY", c.Binance.APIKey)
	c.Binance.APISecret = getenvDefault("BINANCE_API_SECRET", c.Binance.APISecret)
	c.Binance.Testnet = boolFromEnv("BINANCE_TESTNET", c.Binance.Testnet)

	c.Trading.DefaultLeverage = intFromEnv("DEFAULT_LEVERAGE", c.Trading.DefaultLeverage)
	c.Trading.FillTimeout = durationFromEnv("FILL_TIMEOUT", c.Trading.FillTimeout)
	c.Trading.GuardianFirstDelay = durationFromEnv("GUARDIAN_FIRST_DELAY", c.Trading.GuardianFirstDelay)
	c.Trading.GuardianSecondDelay = durationFromEnv("GUARDIAN_SECOND_DELAY", c.Trading.GuardianSecondDelay)
	c.Trading.CloseOnMismatch = boolFromEnv("CLOSE_ON_MISMATCH", c.Trading.CloseOnMismatch)

	c.Locks.Backend = strings.ToLower(getenvDefault("LOCKS_BACKEND", c.Locks.Backend))
	c.Locks.RedisAddr = getenvDefault("REDIS_ADDR", c.Locks.RedisAddr)

	c.Telegram.Token = getenvDefault("TELEGRAM_TOKEN", c.Telegram.Token)
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}

	c.DB = getenvDefault("DATABASE_DSN", c.DB)
	c.Log.Level = getenvDefault("LOG_LEVEL", c.Log.Level)
}

func (c *Config) Validate() error {
	switch c.Exchange {
	case ExchangeBingX, ExchangeOKX, ExchangeBinance:
	default:
		return fmt.Errorf("unknown exchange %q", c.Exchange)
	}
	switch c.Locks.Backend {
	case LocksMemory:
	case LocksRedis:
		if c.Locks.RedisAddr == "" {
			return fmt.Errorf("locks.redis_addr is required for redis backend")
		}
		// лок не должен истечь посреди сделки: ожидание fill + вызовы биржи
		if need := c.Trading.FillTimeout + lockTTLMargin; c.Locks.TTL <= need {
			return fmt.Errorf("locks.ttl %s must exceed fill_timeout + %s (%s)", c.Locks.TTL, lockTTLMargin, need)
		}
	default:
		return fmt.Errorf("unknown locks backend %q", c.Locks.Backend)
	}

	t := c.Trading
	if t.DefaultLeverage <= 0 {
		return fmt.Errorf("trading.default_leverage must be > 0")
	}
	if t.DefaultPrecision < 0 {
		return fmt.Errorf("trading.default_precision must be >= 0")
	}
	if t.FillPollInterval <= 0 || t.FillTimeout <= 0 {
		return fmt.Errorf("trading.fill_poll_interval and fill_timeout must be > 0")
	}
	if t.FillPollInterval > t.FillTimeout {
		return fmt.Errorf("trading.fill_poll_interval exceeds fill_timeout")
	}
	if t.GuardianFirstDelay <= 0 || t.GuardianSecondDelay <= 0 {
		return fmt.Errorf("trading.guardian delays must be > 0")
	}
	return nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
