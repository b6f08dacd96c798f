package model

import "time"

// IndicatorRecord holds the derived values for the candle at the same index.
// A nil field means the indicator window had not filled yet at that position.
type IndicatorRecord struct {
	OpenTime   time.Time `json:"open_time"`
	Close      float64   `json:"close"`
	SMAFast    *float64  `json:"sma_fast"`
	SMASlow    *float64  `json:"sma_slow"`
	RSI        *float64  `json:"rsi"`
	MACD       *float64  `json:"macd"`
	MACDSignal *float64  `json:"macd_signal"`
}

// IndicatorSeries is positionally aligned with the candle series it was computed from.
type IndicatorSeries []IndicatorRecord

// Tail returns the last n records (all of them if n exceeds the length).
func (s IndicatorSeries) Tail(n int) IndicatorSeries {
	if n <= 0 {
		return IndicatorSeries{}
	}
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}
