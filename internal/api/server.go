// Package api serves the dashboard's HTML pages, its JSON endpoint and the
// operational endpoints (/healthz, /metrics, /ws).
package api

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"testnet-dashboard/internal/dashboard"
	"testnet-dashboard/internal/metrics"
	"testnet-dashboard/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultTimeout bounds the exchange work done for one request.
const DefaultTimeout = 30 * time.Second

// Dashboard is the service the handlers drive.
type Dashboard interface {
	Balances(ctx context.Context) ([]model.Balance, error)
	Market(ctx context.Context, symbol string) (*dashboard.MarketView, error)
	Series(ctx context.Context, symbol string) (model.IndicatorSeries, error)
	PlaceOrder(ctx context.Context, symbol, side string, qty float64) (*dashboard.OrderResult, error)
	Interval() string
}

// EventStream serves live order events on /ws. Seq is the sequence number
// of the latest event; pages resume from it so a load does not replay old
// orders.
type EventStream interface {
	http.Handler
	Seq() int64
}

// Options wires a Server. Health, Events and Metrics are optional.
type Options struct {
	SecretKey string
	Health    http.Handler // /healthz
	Events    EventStream  // /ws
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Server holds the handler dependencies.
type Server struct {
	svc     Dashboard
	flash   *FlashStore
	tmpl    *template.Template
	health  http.Handler
	events  EventStream
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewServer parses the embedded templates and returns a Server.
func NewServer(svc Dashboard, opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"qty": formatQty,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		svc:     svc,
		flash:   NewFlashStore(opts.SecretKey),
		tmpl:    tmpl,
		health:  opts.Health,
		events:  opts.Events,
		metrics: opts.Metrics,
		logger:  opts.Logger.With(slog.String("component", "http")),
	}, nil
}

// Router configures all routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, s.accessLog, s.recoverer)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet).Name("index")
	r.HandleFunc("/market-select", s.handleMarketSelect).Methods(http.MethodGet)
	r.HandleFunc("/market/{symbol}", s.handleMarket).Methods(http.MethodGet).Name("market")
	r.HandleFunc("/order/{symbol}/{side}", s.handleOrder).Methods(http.MethodPost)
	r.HandleFunc("/api/market/{symbol}", s.handleAPIMarket).Methods(http.MethodGet)

	if s.health != nil {
		r.Handle("/healthz", s.health).Methods(http.MethodGet)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	if s.events != nil {
		r.Handle("/ws", s.events)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	return r
}

// HTTPServer returns an http.Server for addr serving Router.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
