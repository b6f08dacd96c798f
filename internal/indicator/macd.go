package indicator

import "testnet-dashboard/internal/model"

// MACD is the difference between a fast and a slow EMA of closes, with a
// signal line that is an EMA of the MACD line itself.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA

	slowPeriod   int
	signalPeriod int
	count        int
	current      float64
}

// NewMACD creates a MACD with the given fast, slow and signal periods
// (conventionally 12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:         NewEMA(fast),
		slow:         NewEMA(slow),
		signal:       NewEMA(signal),
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

func (m *MACD) Name() string {
	return "MACD_" + itoa(m.fast.period) + "_" + itoa(m.slowPeriod) + "_" + itoa(m.signalPeriod)
}

func (m *MACD) Update(candle model.Candle) {
	m.count++
	m.fast.Add(candle.Close)
	m.slow.Add(candle.Close)
	m.current = m.fast.Value() - m.slow.Value()
	m.signal.Add(m.current)
}

// Value returns the MACD line.
func (m *MACD) Value() float64 { return m.current }

// Signal returns the signal line.
func (m *MACD) Signal() float64 { return m.signal.Value() }

// Ready reports whether both the slow EMA and the signal EMA on top of it
// have seen a full period.
func (m *MACD) Ready() bool { return m.count >= m.slowPeriod+m.signalPeriod-1 }

// Reset clears the MACD state for reuse.
func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
	m.count = 0
	m.current = 0
}
