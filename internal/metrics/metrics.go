package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard.
type Metrics struct {
	// HTTP surface
	HTTPRequests *prometheus.CounterVec   // labels: route, method, code
	HTTPDuration *prometheus.HistogramVec // labels: route

	// Exchange REST calls
	ExchangeCalls    *prometheus.CounterVec   // labels: route, status
	ExchangeDuration *prometheus.HistogramVec // labels: route

	// Orders
	OrdersTotal *prometheus.CounterVec // labels: side, result=ok|rejected|error

	// Indicator pipeline
	IndicatorComputeDur prometheus.Histogram
	CandlesComputed     prometheus.Counter

	// Live order event stream
	WSClients     prometheus.Gauge
	EventsDropped prometheus.Counter
	EventsRelayed prometheus.Counter

	registry prometheus.Gatherer
}

// NewMetrics registers and returns all Prometheus metrics on reg. A nil reg
// means a fresh private registry, which keeps tests independent.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests served, by route, method and status code",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		ExchangeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_exchange_calls_total",
			Help: "Exchange REST calls by route and HTTP status (0 = transport error)",
		}, []string{"route", "status"}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_exchange_call_duration_seconds",
			Help:    "Exchange REST call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),

		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_orders_total",
			Help: "Market orders by side and outcome",
		}, []string{"side", "result"}),

		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_indicator_compute_duration_seconds",
			Help:    "Indicator pipeline latency per candle series",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		CandlesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_indicator_candles_total",
			Help: "Candles run through the indicator pipeline",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_ws_clients",
			Help: "Connected order event websocket clients",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_ws_events_dropped_total",
			Help: "Order events dropped for slow websocket clients",
		}),
		EventsRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_redis_events_relayed_total",
			Help: "Order events received from the Redis channel",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.ExchangeCalls,
		m.ExchangeDuration,
		m.OrdersTotal,
		m.IndicatorComputeDur,
		m.CandlesComputed,
		m.WSClients,
		m.EventsDropped,
		m.EventsRelayed,
	)

	return m
}

// ObserveExchange records one exchange call. Its signature matches the
// binance client's OnRequest hook.
func (m *Metrics) ObserveExchange(route string, status int, elapsed time.Duration, _ error) {
	m.ExchangeCalls.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.ExchangeDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveCompute records one indicator pipeline run.
func (m *Metrics) ObserveCompute(candles int, elapsed time.Duration) {
	m.IndicatorComputeDur.Observe(elapsed.Seconds())
	m.CandlesComputed.Add(float64(candles))
}

// ObserveOrder counts one order attempt.
func (m *Metrics) ObserveOrder(side, result string) {
	m.OrdersTotal.WithLabelValues(side, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Pinger is anything that can prove connectivity, such as the exchange client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	exchange Pinger
	rdb      *goredis.Client

	ExchangeOK        bool      `json:"exchange_ok"`
	ExchangeLatencyMs float64   `json:"exchange_latency_ms"`
	ExchangeError     string    `json:"exchange_error,omitempty"`
	RedisEnabled      bool      `json:"redis_enabled"`
	RedisConnected    bool      `json:"redis_connected"`
	RedisLatencyMs    float64   `json:"redis_latency_ms"`
	LastCheckAt       time.Time `json:"last_check_at"`
	StartedAt         time.Time `json:"started_at"`
}

// NewHealthStatus returns a health status probing exchange and, when
// non-nil, Redis.
func NewHealthStatus(exchange Pinger, rdb *goredis.Client) *HealthStatus {
	return &HealthStatus{
		exchange:     exchange,
		rdb:          rdb,
		RedisEnabled: rdb != nil,
		StartedAt:    time.Now(),
	}
}

// CheckExchange pings the exchange and records latency + connectivity.
func (h *HealthStatus) CheckExchange(ctx context.Context) {
	if h.exchange == nil {
		return
	}
	start := time.Now()
	err := h.exchange.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.ExchangeOK = err == nil
	h.ExchangeError = ""
	if err != nil {
		h.ExchangeError = err.Error()
	}
	h.ExchangeLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	start := time.Now()
	err := h.rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// Check runs every probe once.
func (h *HealthStatus) Check(ctx context.Context) {
	h.CheckExchange(ctx)
	h.CheckRedis(ctx)
}

// ServeHTTP handles the /healthz endpoint. Probes run on each request since
// the dashboard does no background polling of the exchange.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	probeCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	h.Check(probeCtx)
	cancel()

	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if h.RedisEnabled && !h.RedisConnected {
		overallStatus = "degraded"
	}
	if !h.ExchangeOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status            string  `json:"status"`
		Uptime            string  `json:"uptime"`
		ExchangeOK        bool    `json:"exchange_ok"`
		ExchangeLatencyMs float64 `json:"exchange_latency_ms"`
		ExchangeError     string  `json:"exchange_error,omitempty"`
		RedisEnabled      bool    `json:"redis_enabled"`
		RedisConnected    bool    `json:"redis_connected"`
		RedisLatencyMs    float64 `json:"redis_latency_ms"`
		LastCheckAt       string  `json:"last_check_at"`
	}{
		Status:            overallStatus,
		Uptime:            time.Since(h.StartedAt).Round(time.Second).String(),
		ExchangeOK:        h.ExchangeOK,
		ExchangeLatencyMs: h.ExchangeLatencyMs,
		ExchangeError:     h.ExchangeError,
		RedisEnabled:      h.RedisEnabled,
		RedisConnected:    h.RedisConnected,
		RedisLatencyMs:    h.RedisLatencyMs,
		LastCheckAt:       h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}
