// Package indicator provides technical indicator calculations over candle data.
//
// The streaming indicators (SMA, EMA, RSI, MACD) consume closed candles one
// at a time. Pipeline drives a fresh set of them over a candle series and
// returns one IndicatorRecord per candle.
package indicator

import "testnet-dashboard/internal/model"

// Indicator is the interface for all streaming technical indicators.
type Indicator interface {
	// Name returns the indicator name with its window (e.g. "SMA_9", "RSI_14").
	Name() string

	// Update feeds the next closed candle.
	Update(candle model.Candle)

	// Value returns the current value. Only meaningful when Ready is true.
	Value() float64

	// Ready reports whether enough candles have been seen for Value.
	Ready() bool

	// Reset clears all state for reuse.
	Reset()
}

func name(kind string, period int) string {
	return kind + "_" + itoa(period)
}

// itoa avoids pulling strconv into every indicator for one call site.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
