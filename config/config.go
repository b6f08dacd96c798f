package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"testnet-dashboard/internal/indicator"
	"testnet-dashboard/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Exchange credentials
	BinanceAPIKey    string        `envconfig:"BINANCE_API_KEY"`
	BinanceAPISecret string        `envconfig:"BINANCE_API_SECRET"`
	BinanceBaseURL   string        `envconfig:"BINANCE_BASE_URL" default:"https://testnet.binance.vision"`
	RecvWindowMs     int           `envconfig:"BINANCE_RECV_WINDOW_MS" default:"5000"`
	HTTPTimeout      time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	OrderTestOnly    bool          `envconfig:"ORDER_TEST_ONLY" default:"false"`

	// Dashboard
	Port        int     `envconfig:"PORT" default:"5000"`
	SecretKey   string  `envconfig:"DASHBOARD_SECRET_KEY" default:"dev-secret"`
	LogLevel    string  `envconfig:"LOG_LEVEL" default:"info"`
	Interval    string  `envconfig:"KLINE_INTERVAL" default:"1h"`
	KlineLimit  int     `envconfig:"KLINE_LIMIT" default:"100"`
	DisplayRows int     `envconfig:"DISPLAY_ROWS" default:"30"`
	DefaultQty  float64 `envconfig:"DEFAULT_QTY" default:"0.001"`

	// Indicator windows; overridden by IndicatorsFile when set
	IndicatorsFile string           `envconfig:"INDICATORS_FILE"`
	Indicators     indicator.Config `ignored:"true"`

	// Order events (all optional)
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisChannel  string `envconfig:"REDIS_CHANNEL" default:"dashboard:orders"`
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChat  string `envconfig:"TELEGRAM_CHAT_ID"`
}

// Load reads an optional .env file, then configuration from environment
// variables with sensible defaults. Credentials are required.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return FromEnv()
}

// FromEnv is Load without the .env step.
func FromEnv() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		var perr *envconfig.ParseError
		if errors.As(err, &perr) {
			return nil, &model.ConfigError{Field: perr.KeyName, Reason: fmt.Sprintf("invalid value %q", perr.Value)}
		}
		return nil, &model.ConfigError{Field: "env", Reason: err.Error()}
	}

	c.Indicators = indicator.DefaultConfig()
	if c.IndicatorsFile != "" {
		ic, err := LoadIndicators(c.IndicatorsFile)
		if err != nil {
			return nil, err
		}
		c.Indicators = ic
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BinanceAPIKey) == "" {
		return &model.ConfigError{Field: "BINANCE_API_KEY", Reason: "not set"}
	}
	if strings.TrimSpace(c.BinanceAPISecret) == "" {
		return &model.ConfigError{Field: "BINANCE_API_SECRET", Reason: "not set"}
	}
	if c.RecvWindowMs <= 0 || c.RecvWindowMs > 60000 {
		return &model.ConfigError{Field: "BINANCE_RECV_WINDOW_MS", Reason: "must be in (0, 60000]"}
	}
	if c.HTTPTimeout <= 0 {
		return &model.ConfigError{Field: "HTTP_TIMEOUT", Reason: "must be positive"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &model.ConfigError{Field: "PORT", Reason: "out of range"}
	}
	if c.KlineLimit <= 0 || c.KlineLimit > 1000 {
		return &model.ConfigError{Field: "KLINE_LIMIT", Reason: "must be in (0, 1000]"}
	}
	if c.DisplayRows <= 0 {
		return &model.ConfigError{Field: "DISPLAY_ROWS", Reason: "must be positive"}
	}
	if c.DefaultQty <= 0 {
		return &model.ConfigError{Field: "DEFAULT_QTY", Reason: "must be positive"}
	}
	if (c.TelegramToken == "") != (c.TelegramChat == "") {
		return &model.ConfigError{Field: "TELEGRAM_BOT_TOKEN", Reason: "TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together"}
	}
	if err := c.Indicators.Validate(); err != nil {
		return &model.ConfigError{Field: "indicators", Reason: err.Error()}
	}
	return nil
}

// Addr is the dashboard listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// RecvWindow as a duration.
func (c *Config) RecvWindow() time.Duration {
	return time.Duration(c.RecvWindowMs) * time.Millisecond
}

// LoadIndicators reads indicator windows from a YAML file. Keys missing
// from the file keep their defaults.
func LoadIndicators(path string) (indicator.Config, error) {
	ic := indicator.DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return ic, &model.ConfigError{Field: "INDICATORS_FILE", Reason: err.Error()}
	}
	if err := yaml.Unmarshal(raw, &ic); err != nil {
		return ic, &model.ConfigError{Field: "INDICATORS_FILE", Reason: err.Error()}
	}
	return ic, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	// Existing environment variables win over the file.
	if err := godotenv.Load(path); err != nil {
		return &model.ConfigError{Field: ".env", Reason: err.Error()}
	}
	return nil
}
