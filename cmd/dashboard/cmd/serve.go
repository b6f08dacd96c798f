package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"testnet-dashboard/config"
	"testnet-dashboard/internal/api"
	"testnet-dashboard/internal/dashboard"
	"testnet-dashboard/internal/events"
	"testnet-dashboard/internal/metrics"
	"testnet-dashboard/internal/notification"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	Long: `Serve the dashboard pages on PORT (default 5000).

Besides the pages it exposes:
  GET /api/market/{symbol}  indicator series as JSON
  GET /healthz              exchange and Redis probes
  GET /metrics              Prometheus metrics
  GET /ws                   live order events

Example:
  BINANCE_API_KEY=... BINANCE_API_SECRET=... dashboard serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig("dashboard")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	client, err := newClient(cfg, log, m)
	if err != nil {
		return err
	}

	rdb := connectRedis(ctx, cfg, log)
	if rdb != nil {
		defer rdb.Close()
	}

	instanceID := ulid.Make().String()
	hub := events.NewHub(events.Config{
		InstanceID: instanceID,
		Redis:      rdb,
		Channel:    cfg.RedisChannel,
		Metrics:    m,
		Logger:     log,
	})
	go hub.Run(ctx)

	svc, err := newService(cfg, client, dashboard.Options{
		Notifier: buildNotifier(cfg, log, hub, rdb, instanceID),
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	server, err := api.NewServer(svc, api.Options{
		SecretKey: cfg.SecretKey,
		Health:    metrics.NewHealthStatus(client, rdb),
		Events:    hub,
		Metrics:   m,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	srv := server.HTTPServer(cfg.Addr())

	errCh := make(chan error, 1)
	go func() {
		log.Info("dashboard listening",
			slog.String("addr", cfg.Addr()),
			slog.String("exchange", cfg.BinanceBaseURL),
			slog.Bool("order_test_only", client.TestOnly()),
			slog.String("instance", instanceID),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// connectRedis returns nil when Redis is not configured or unreachable;
// order events then stay local to this instance.
func connectRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) *goredis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, order events stay local", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
		rdb.Close()
		return nil
	}
	log.Info("redis connected", slog.String("addr", cfg.RedisAddr), slog.String("channel", cfg.RedisChannel))
	return rdb
}

func buildNotifier(cfg *config.Config, log *slog.Logger, hub *events.Hub, rdb *goredis.Client, instanceID string) notification.Notifier {
	n := notification.Multi{notification.NewLogNotifier(log), hub}
	if rdb != nil {
		n = append(n, notification.NewRedisNotifier(rdb, cfg.RedisChannel, instanceID))
	}
	if cfg.WebhookURL != "" {
		n = append(n, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramToken != "" {
		n = append(n, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChat))
	}
	return n
}
