package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"testnet-dashboard/config"
	"testnet-dashboard/internal/binance"
	"testnet-dashboard/internal/dashboard"
	"testnet-dashboard/internal/indicator"
	"testnet-dashboard/internal/logger"
	"testnet-dashboard/internal/metrics"
	"testnet-dashboard/internal/model"
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Binance Spot Testnet dashboard: balances, indicators and market orders",
	Long: `Dashboard is a small web front end over one Binance Spot Testnet account.

It provides:
  - A balances page listing every asset with a non-zero free or locked amount
  - Market pages with the latest candles plus SMA, RSI and MACD columns
  - Market BUY/SELL orders with quantities normalized to the symbol's LOT_SIZE rule

Configuration comes from the environment (and an optional .env file):
BINANCE_API_KEY and BINANCE_API_SECRET are required.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads configuration and sets up the default logger, which
// writes to stderr so command output stays clean.
func loadConfig(service string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, &model.ConfigError{Field: "LOG_LEVEL", Reason: err.Error()}
	}
	return cfg, logger.Init(os.Stderr, service, level), nil
}

// newClient builds the exchange client; m may be nil.
func newClient(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) (*binance.Client, error) {
	client, err := binance.NewClient(binance.Config{
		APIKey:     cfg.BinanceAPIKey,
		APISecret:  cfg.BinanceAPISecret,
		BaseURL:    cfg.BinanceBaseURL,
		Timeout:    cfg.HTTPTimeout,
		RecvWindow: cfg.RecvWindow(),
		TestOnly:   cfg.OrderTestOnly,
		Debug:      cfg.LogLevel == "debug",
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	if m != nil {
		client.OnRequest = m.ObserveExchange
	}
	return client, nil
}

func newService(cfg *config.Config, gw dashboard.Gateway, opts dashboard.Options) (*dashboard.Service, error) {
	pipeline, err := indicator.NewPipeline(cfg.Indicators)
	if err != nil {
		return nil, err
	}
	opts.Interval = cfg.Interval
	opts.Limit = cfg.KlineLimit
	opts.DisplayRows = cfg.DisplayRows
	opts.DefaultQty = cfg.DefaultQty
	opts.Pipeline = pipeline
	opts.NewOrderID = binance.NewClientOrderID
	return dashboard.New(gw, opts), nil
}
