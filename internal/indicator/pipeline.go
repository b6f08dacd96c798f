package indicator

import (
	"fmt"

	"testnet-dashboard/internal/model"
)

// Config holds the indicator windows applied by a Pipeline.
type Config struct {
	SMAFast    int `yaml:"sma_fast" json:"sma_fast"`
	SMASlow    int `yaml:"sma_slow" json:"sma_slow"`
	RSI        int `yaml:"rsi" json:"rsi"`
	MACDFast   int `yaml:"macd_fast" json:"macd_fast"`
	MACDSlow   int `yaml:"macd_slow" json:"macd_slow"`
	MACDSignal int `yaml:"macd_signal" json:"macd_signal"`
}

// DefaultConfig returns SMA 9/21, RSI 14 and MACD 12/26/9.
func DefaultConfig() Config {
	return Config{
		SMAFast:    9,
		SMASlow:    21,
		RSI:        14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// Validate rejects non-positive windows and a MACD whose fast EMA is not faster.
func (c Config) Validate() error {
	windows := []struct {
		name string
		v    int
	}{
		{"sma_fast", c.SMAFast},
		{"sma_slow", c.SMASlow},
		{"rsi", c.RSI},
		{"macd_fast", c.MACDFast},
		{"macd_slow", c.MACDSlow},
		{"macd_signal", c.MACDSignal},
	}
	for _, w := range windows {
		if w.v <= 0 {
			return fmt.Errorf("indicator: %s window must be positive, got %d", w.name, w.v)
		}
	}
	if c.MACDFast >= c.MACDSlow {
		return fmt.Errorf("indicator: macd_fast (%d) must be below macd_slow (%d)", c.MACDFast, c.MACDSlow)
	}
	return nil
}

// Pipeline computes the dashboard's indicator set over a candle series.
// It holds no per-series state, so one Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg Config
}

// NewPipeline validates cfg and returns a Pipeline.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg}, nil
}

// Compute returns one record per candle, in input order. Windows that have
// not filled yet leave their field nil. The input slice is only read.
func (p *Pipeline) Compute(candles []model.Candle) model.IndicatorSeries {
	smaFast := NewSMA(p.cfg.SMAFast)
	smaSlow := NewSMA(p.cfg.SMASlow)
	rsi := NewRSI(p.cfg.RSI)
	macd := NewMACD(p.cfg.MACDFast, p.cfg.MACDSlow, p.cfg.MACDSignal)

	series := make(model.IndicatorSeries, len(candles))
	for i, c := range candles {
		smaFast.Update(c)
		smaSlow.Update(c)
		rsi.Update(c)
		macd.Update(c)

		series[i] = model.IndicatorRecord{
			OpenTime:   c.OpenTime,
			Close:      c.Close,
			SMAFast:    valueIf(smaFast),
			SMASlow:    valueIf(smaSlow),
			RSI:        valueIf(rsi),
			MACD:       ptr(macd.Value()),
			MACDSignal: ptr(macd.Signal()),
		}
	}
	return series
}

// Compute runs the default pipeline.
func Compute(candles []model.Candle) model.IndicatorSeries {
	p := &Pipeline{cfg: DefaultConfig()}
	return p.Compute(candles)
}

func valueIf(ind Indicator) *float64 {
	if !ind.Ready() {
		return nil
	}
	return ptr(ind.Value())
}

func ptr(v float64) *float64 { return &v }
