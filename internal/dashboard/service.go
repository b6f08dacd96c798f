// Package dashboard composes the exchange gateway, the lot-size normalizer
// and the indicator pipeline into the operations the pages need.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"testnet-dashboard/internal/indicator"
	"testnet-dashboard/internal/logger"
	"testnet-dashboard/internal/lotsize"
	"testnet-dashboard/internal/metrics"
	"testnet-dashboard/internal/model"
	"testnet-dashboard/internal/notification"
)

// Gateway is the slice of the exchange client the dashboard uses.
type Gateway interface {
	NonZeroBalances(ctx context.Context) ([]model.Balance, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
	LotSizeRule(ctx context.Context, symbol string) (lotsize.Rule, error)
	CreateMarketOrder(ctx context.Context, req model.MarketOrderRequest) (*model.OrderReceipt, error)
}

// Options tune a Service. Zero values take the defaults below.
type Options struct {
	Interval    string  // default "1h"
	Limit       int     // default 100
	DisplayRows int     // default 30
	DefaultQty  float64 // default 0.001

	Pipeline   *indicator.Pipeline   // default windows when nil
	Notifier   notification.Notifier // optional
	Metrics    *metrics.Metrics      // optional
	Logger     *slog.Logger
	NewOrderID func() string // optional client order id source
}

// Service is safe for concurrent use; it keeps no per-request state.
type Service struct {
	gw   Gateway
	opts Options
	log  *slog.Logger
}

// New returns a Service over gw.
func New(gw Gateway, opts Options) *Service {
	if opts.Interval == "" {
		opts.Interval = "1h"
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.DisplayRows <= 0 {
		opts.DisplayRows = 30
	}
	if opts.DefaultQty <= 0 {
		opts.DefaultQty = 0.001
	}
	if opts.Pipeline == nil {
		opts.Pipeline, _ = indicator.NewPipeline(indicator.DefaultConfig())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{gw: gw, opts: opts, log: opts.Logger.With(slog.String("component", "dashboard"))}
}

// Interval is the candle interval in use.
func (s *Service) Interval() string { return s.opts.Interval }

// Balances lists assets with a free or locked amount.
func (s *Service) Balances(ctx context.Context) ([]model.Balance, error) {
	return s.gw.NonZeroBalances(ctx)
}

// NormalizeSymbol upper-cases and trims a user supplied symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Series fetches the configured candle window for symbol and returns the
// full aligned indicator series.
func (s *Service) Series(ctx context.Context, symbol string) (model.IndicatorSeries, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty", model.ErrUnknownSymbol)
	}
	candles, err := s.gw.Klines(ctx, symbol, s.opts.Interval, s.opts.Limit)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	series := s.opts.Pipeline.Compute(candles)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveCompute(len(candles), time.Since(start))
	}
	return series, nil
}

// Row is one formatted market table line.
type Row struct {
	OpenTime   string `json:"open_time"`
	Close      string `json:"close"`
	SMAFast    string `json:"sma_fast"`
	SMASlow    string `json:"sma_slow"`
	RSI        string `json:"rsi"`
	MACD       string `json:"macd"`
	MACDSignal string `json:"macd_signal"`
}

// MarketView is everything the market page renders.
type MarketView struct {
	Symbol     string
	Interval   string
	Rows       []Row // newest first
	DefaultQty float64
}

// Market returns the last DisplayRows records of symbol, newest first.
func (s *Service) Market(ctx context.Context, symbol string) (*MarketView, error) {
	symbol = NormalizeSymbol(symbol)
	view := &MarketView{Symbol: symbol, Interval: s.opts.Interval, DefaultQty: s.opts.DefaultQty}

	series, err := s.Series(ctx, symbol)
	if err != nil {
		return view, err
	}
	view.Rows = FormatRows(series.Tail(s.opts.DisplayRows))
	return view, nil
}

// FormatRows renders records newest first: "dd/mm HH:MM" open time, two
// decimals, "-" for values whose window has not filled.
func FormatRows(series model.IndicatorSeries) []Row {
	rows := make([]Row, 0, len(series))
	for i := len(series) - 1; i >= 0; i-- {
		r := series[i]
		rows = append(rows, Row{
			OpenTime:   r.OpenTime.UTC().Format("02/01 15:04"),
			Close:      fmt.Sprintf("%.2f", r.Close),
			SMAFast:    formatValue(r.SMAFast),
			SMASlow:    formatValue(r.SMASlow),
			RSI:        formatValue(r.RSI),
			MACD:       formatValue(r.MACD),
			MACDSignal: formatValue(r.MACDSignal),
		})
	}
	return rows
}

func formatValue(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

// Normalize fetches symbol's current LOT_SIZE rule and applies it to qty.
func (s *Service) Normalize(ctx context.Context, symbol string, qty float64) (lotsize.Quantity, lotsize.Rule, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return lotsize.Quantity{}, lotsize.Rule{}, fmt.Errorf("%w: empty", model.ErrUnknownSymbol)
	}
	// Rules are fetched on every call so an exchange-side change is
	// picked up immediately.
	rule, err := s.gw.LotSizeRule(ctx, symbol)
	if err != nil {
		return lotsize.Quantity{}, lotsize.Rule{}, err
	}
	q, err := lotsize.Normalize(rule, qty)
	if err != nil {
		return lotsize.Quantity{}, rule, fmt.Errorf("%s %v: %w", symbol, qty, err)
	}
	return q, rule, nil
}

// OrderResult is a submitted order with the quantity actually sent.
type OrderResult struct {
	Symbol    string
	Side      model.Side
	Requested float64
	Quantity  lotsize.Quantity
	Receipt   *model.OrderReceipt
}

// PlaceOrder validates side and quantity, normalizes the quantity against
// a freshly fetched LOT_SIZE rule and submits a market order. Exchange
// errors are returned unmodified apart from wrapping.
func (s *Service) PlaceOrder(ctx context.Context, symbol, side string, qty float64) (res *OrderResult, err error) {
	symbol = NormalizeSymbol(symbol)
	sideLabel := strings.ToUpper(strings.TrimSpace(side))
	defer func() {
		s.observeOrder(sideLabel, err)
	}()

	sd, err := model.ParseSide(side)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(qty) || qty <= 0 {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidQuantity, qty)
	}

	q, _, err := s.Normalize(ctx, symbol, qty)
	if err != nil {
		return nil, err
	}

	req := model.MarketOrderRequest{Symbol: symbol, Side: sd, Quantity: q.String()}
	if s.opts.NewOrderID != nil {
		req.ClientOrderID = s.opts.NewOrderID()
	}
	receipt, err := s.gw.CreateMarketOrder(ctx, req)
	if err != nil {
		s.log.WarnContext(ctx, "order rejected", append(logger.Attrs(ctx),
			slog.String("symbol", symbol),
			slog.String("side", string(sd)),
			slog.String("quantity", req.Quantity),
			slog.String("error", err.Error()),
		)...)
		return nil, err
	}

	res = &OrderResult{Symbol: symbol, Side: sd, Requested: qty, Quantity: q, Receipt: receipt}
	s.log.InfoContext(ctx, "order placed", append(logger.Attrs(ctx),
		slog.String("symbol", symbol),
		slog.String("side", string(sd)),
		slog.String("quantity", req.Quantity),
		slog.Int64("order_id", receipt.OrderID),
		slog.Bool("test_only", receipt.TestOnly),
	)...)
	s.notify(ctx, res)
	return res, nil
}

func (s *Service) notify(ctx context.Context, res *OrderResult) {
	if s.opts.Notifier == nil {
		return
	}
	alert := notification.Alert{
		Level:         notification.AlertInfo,
		Title:         fmt.Sprintf("%s order placed", res.Side),
		Message:       SuccessMessage(res),
		Symbol:        res.Symbol,
		Side:          string(res.Side),
		Quantity:      res.Quantity.String(),
		OrderID:       res.Receipt.OrderID,
		ClientOrderID: res.Receipt.ClientOrderID,
		Time:          time.Now().UTC(),
	}
	// Delivery failures never fail the order; it is already on the exchange.
	if err := s.opts.Notifier.Send(ctx, alert); err != nil {
		s.log.WarnContext(ctx, "order event delivery failed", append(logger.Attrs(ctx), slog.String("error", err.Error()))...)
	}
}

func (s *Service) observeOrder(side string, err error) {
	if s.opts.Metrics == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case IsValidation(err):
		result = "rejected"
	default:
		result = "error"
	}
	s.opts.Metrics.ObserveOrder(side, result)
}

// SuccessMessage is the flash text for a submitted order.
func SuccessMessage(res *OrderResult) string {
	msg := fmt.Sprintf("%s order for %s %s sent successfully (ID %d).",
		res.Side, res.Quantity.String(), res.Symbol, res.Receipt.OrderID)
	if res.Receipt.TestOnly {
		msg = fmt.Sprintf("%s order for %s %s validated by the exchange (test mode, not executed).",
			res.Side, res.Quantity.String(), res.Symbol)
	}
	return msg
}

// IsValidation reports whether err was raised before reaching the exchange
// because the input itself was unusable.
func IsValidation(err error) bool {
	return errors.Is(err, model.ErrInvalidQuantity) ||
		errors.Is(err, model.ErrInvalidSide) ||
		errors.Is(err, model.ErrUnknownSymbol) ||
		errors.Is(err, model.ErrMissingLotSizeRule)
}
