package dashboard

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testnet-dashboard/internal/indicator"
	"testnet-dashboard/internal/lotsize"
	"testnet-dashboard/internal/metrics"
	"testnet-dashboard/internal/model"
	"testnet-dashboard/internal/notification"
)

type fakeGateway struct {
	balances   []model.Balance
	candles    []model.Candle
	rule       lotsize.Rule
	ruleErr    error
	orderErr   error
	klinesErr  error
	ruleCalls  int
	orders     []model.MarketOrderRequest
	lastSymbol string
	lastLimit  int
}

func (f *fakeGateway) NonZeroBalances(context.Context) ([]model.Balance, error) {
	return f.balances, nil
}

func (f *fakeGateway) Klines(_ context.Context, symbol, _ string, limit int) ([]model.Candle, error) {
	f.lastSymbol, f.lastLimit = symbol, limit
	return f.candles, f.klinesErr
}

func (f *fakeGateway) LotSizeRule(_ context.Context, symbol string) (lotsize.Rule, error) {
	f.ruleCalls++
	f.lastSymbol = symbol
	return f.rule, f.ruleErr
}

func (f *fakeGateway) CreateMarketOrder(_ context.Context, req model.MarketOrderRequest) (*model.OrderReceipt, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, req)
	return &model.OrderReceipt{OrderID: 99, ClientOrderID: req.ClientOrderID, Symbol: req.Symbol, Side: req.Side, Status: "FILLED", OrigQty: req.Quantity}, nil
}

type captureNotifier struct {
	alerts []notification.Alert
	err    error
}

func (c *captureNotifier) Send(_ context.Context, a notification.Alert) error {
	c.alerts = append(c.alerts, a)
	return c.err
}

func mustRule(t *testing.T, minQty, step string) lotsize.Rule {
	t.Helper()
	r, err := lotsize.NewRule(minQty, step)
	require.NoError(t, err)
	return r
}

func hourlyCandles(n int) []model.Candle {
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, n)
	for i := range out {
		price := 100 + float64(i)
		out[i] = model.Candle{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			CloseTime: base.Add(time.Duration(i+1)*time.Hour - time.Millisecond),
		}
	}
	return out
}

func TestBalances(t *testing.T) {
	gw := &fakeGateway{balances: []model.Balance{{Asset: "BTC", Free: 1}}}
	got, err := New(gw, Options{}).Balances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gw.balances, got)
}

func TestMarket_NewestFirstAndFormatted(t *testing.T) {
	gw := &fakeGateway{candles: hourlyCandles(100)}
	svc := New(gw, Options{})

	view, err := svc.Market(context.Background(), " btcusdt ")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", view.Symbol)
	assert.Equal(t, "BTCUSDT", gw.lastSymbol)
	assert.Equal(t, 100, gw.lastLimit)
	assert.Equal(t, "1h", view.Interval)
	assert.Equal(t, 0.001, view.DefaultQty)
	require.Len(t, view.Rows, 30)

	newest := view.Rows[0]
	assert.Equal(t, "09/03 03:00", newest.OpenTime) // candle 99 = 5 March + 99h
	assert.Equal(t, "199.00", newest.Close)
	assert.Equal(t, "195.00", newest.SMAFast) // mean of 191..199
	assert.Equal(t, "189.00", newest.SMASlow) // mean of 179..199
	assert.Equal(t, "100.00", newest.RSI)

	assert.Equal(t, "170.00", view.Rows[29].Close)
}

func TestMarket_ShortSeriesShowsDashes(t *testing.T) {
	gw := &fakeGateway{candles: hourlyCandles(5)}
	view, err := New(gw, Options{}).Market(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	require.Len(t, view.Rows, 5)
	for _, r := range view.Rows {
		assert.Equal(t, "-", r.SMAFast)
		assert.Equal(t, "-", r.SMASlow)
		assert.Equal(t, "-", r.RSI)
		assert.NotEqual(t, "-", r.MACD)
		assert.NotEqual(t, "-", r.MACDSignal)
	}
}

func TestMarket_ExchangeErrorKeepsView(t *testing.T) {
	boom := errors.New("connection refused")
	gw := &fakeGateway{klinesErr: boom}
	view, err := New(gw, Options{}).Market(context.Background(), "ethusdt")
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, view)
	assert.Equal(t, "ETHUSDT", view.Symbol)
	assert.Empty(t, view.Rows)
}

func TestSeries_CustomPipelineAndMetrics(t *testing.T) {
	cfg := indicator.DefaultConfig()
	cfg.SMAFast = 2
	p, err := indicator.NewPipeline(cfg)
	require.NoError(t, err)
	m := metrics.NewMetrics(nil)

	gw := &fakeGateway{candles: hourlyCandles(3)}
	series, err := New(gw, Options{Pipeline: p, Metrics: m}).Series(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Nil(t, series[0].SMAFast)
	require.NotNil(t, series[1].SMAFast)
	assert.Equal(t, 100.5, *series[1].SMAFast)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CandlesComputed))
}

func TestFormatRows(t *testing.T) {
	v := 1.005
	nan := math.NaN()
	rows := FormatRows(model.IndicatorSeries{
		{OpenTime: time.Date(2024, 12, 1, 9, 5, 0, 0, time.UTC), Close: 42000.126, RSI: &v, MACD: &nan},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "01/12 09:05", rows[0].OpenTime)
	assert.Equal(t, "42000.13", rows[0].Close)
	assert.Equal(t, "-", rows[0].SMAFast)
	assert.Equal(t, "-", rows[0].MACD)
	assert.Equal(t, []Row{}, FormatRows(nil))
}

func TestPlaceOrder(t *testing.T) {
	gw := &fakeGateway{rule: mustRule(t, "0.00001", "0.00001")}
	n := &captureNotifier{}
	m := metrics.NewMetrics(nil)
	svc := New(gw, Options{Notifier: n, Metrics: m, NewOrderID: func() string { return "dash-1" }})

	res, err := svc.PlaceOrder(context.Background(), "btcusdt", "buy", 0.0015678)
	require.NoError(t, err)

	require.Len(t, gw.orders, 1)
	assert.Equal(t, model.MarketOrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Quantity: "0.00156", ClientOrderID: "dash-1"}, gw.orders[0])
	assert.Equal(t, "0.00156", res.Quantity.String())
	assert.Equal(t, 0.0015678, res.Requested)
	assert.Equal(t, int64(99), res.Receipt.OrderID)

	require.Len(t, n.alerts, 1)
	assert.Equal(t, "BUY", n.alerts[0].Side)
	assert.Equal(t, "0.00156", n.alerts[0].Quantity)
	assert.Equal(t, int64(99), n.alerts[0].OrderID)

	assert.Equal(t, "BUY order for 0.00156 BTCUSDT sent successfully (ID 99).", SuccessMessage(res))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersTotal.WithLabelValues("BUY", "ok")))
}

func TestPlaceOrder_FetchesRuleEveryTime(t *testing.T) {
	gw := &fakeGateway{rule: mustRule(t, "0.01", "0.01")}
	svc := New(gw, Options{})

	_, err := svc.PlaceOrder(context.Background(), "ETHUSDT", "SELL", 0.5)
	require.NoError(t, err)

	gw.rule = mustRule(t, "0.1", "0.1")
	_, err = svc.PlaceOrder(context.Background(), "ETHUSDT", "SELL", 0.55)
	require.NoError(t, err)

	assert.Equal(t, 2, gw.ruleCalls)
	assert.Equal(t, "0.50", gw.orders[0].Quantity)
	assert.Equal(t, "0.5", gw.orders[1].Quantity)
}

func TestPlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		side    string
		qty     float64
		wantErr error
	}{
		{"bad side", "HOLD", 1, model.ErrInvalidSide},
		{"zero qty", "BUY", 0, model.ErrInvalidQuantity},
		{"negative qty", "SELL", -1, model.ErrInvalidQuantity},
		{"nan qty", "BUY", math.NaN(), model.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{rule: mustRule(t, "0.001", "0.001")}
			m := metrics.NewMetrics(nil)
			_, err := New(gw, Options{Metrics: m}).PlaceOrder(context.Background(), "BTCUSDT", tt.side, tt.qty)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidation(err))
			assert.Zero(t, gw.ruleCalls, "validation happens before any exchange call")
			assert.Empty(t, gw.orders)
		})
	}
}

func TestPlaceOrder_RoundsToZero(t *testing.T) {
	gw := &fakeGateway{rule: mustRule(t, "0", "1")}
	_, err := New(gw, Options{}).PlaceOrder(context.Background(), "BTCUSDT", "BUY", 0.4)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	assert.Empty(t, gw.orders)
}

func TestPlaceOrder_RuleErrors(t *testing.T) {
	gw := &fakeGateway{ruleErr: model.ErrMissingLotSizeRule}
	_, err := New(gw, Options{}).PlaceOrder(context.Background(), "BTCUSDT", "BUY", 1)
	assert.ErrorIs(t, err, model.ErrMissingLotSizeRule)
	assert.Empty(t, gw.orders)
}

func TestPlaceOrder_ExchangeErrorPassesThrough(t *testing.T) {
	type apiErr struct{ error }
	rejected := &apiErr{errors.New("Account has insufficient balance")}
	gw := &fakeGateway{rule: mustRule(t, "0.001", "0.001"), orderErr: rejected}
	n := &captureNotifier{}
	m := metrics.NewMetrics(nil)

	_, err := New(gw, Options{Notifier: n, Metrics: m}).PlaceOrder(context.Background(), "BTCUSDT", "BUY", 1)
	assert.Same(t, rejected, err)
	assert.False(t, IsValidation(err))
	assert.Empty(t, n.alerts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersTotal.WithLabelValues("BUY", "error")))
}

func TestPlaceOrder_NotifierFailureDoesNotFailOrder(t *testing.T) {
	gw := &fakeGateway{rule: mustRule(t, "0.001", "0.001")}
	n := &captureNotifier{err: errors.New("webhook down")}
	res, err := New(gw, Options{Notifier: n}).PlaceOrder(context.Background(), "BTCUSDT", "BUY", 1)
	require.NoError(t, err)
	assert.Equal(t, "1.000", res.Quantity.String())
}

func TestSuccessMessage_TestOnly(t *testing.T) {
	q, err := lotsize.Normalize(mustRule(t, "0.001", "0.001"), 0.002)
	require.NoError(t, err)
	msg := SuccessMessage(&OrderResult{Symbol: "BTCUSDT", Side: model.SideSell, Quantity: q, Receipt: &model.OrderReceipt{TestOnly: true}})
	assert.Equal(t, "SELL order for 0.002 BTCUSDT validated by the exchange (test mode, not executed).", msg)
}

func TestNormalize_EmptySymbol(t *testing.T) {
	_, _, err := New(&fakeGateway{}, Options{}).Normalize(context.Background(), "  ", 1)
	assert.ErrorIs(t, err, model.ErrUnknownSymbol)
}
