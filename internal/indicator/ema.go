package indicator

import "testnet-dashboard/internal/model"

// EMA calculates Exponential Moving Average with multiplier 2/(period+1).
// The first value seeds the average, so Value is defined from the first
// update on; Ready reports when a full period has elapsed and the average
// has converged. O(1) per update.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return name("EMA", e.period) }

func (e *EMA) Update(candle model.Candle) {
	e.Add(candle.Close)
}

// Add feeds a raw value. MACD uses it to smooth its own line.
func (e *EMA) Add(price float64) {
	e.count++
	if e.count == 1 {
		e.current = price
		return
	}
	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
}
