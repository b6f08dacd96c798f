package model

import "time"

// Candle is one kline as returned by the exchange, prices converted to float64.
// A candle series is ordered by strictly increasing OpenTime.
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
}
