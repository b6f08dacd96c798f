package model

// SymbolFilter is one entry of a symbol's trading rules as published by the
// exchange. Numeric fields stay as the exchange's strings so their precision
// survives.
type SymbolFilter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty,omitempty"`
	MaxQty      string `json:"maxQty,omitempty"`
	StepSize    string `json:"stepSize,omitempty"`
	TickSize    string `json:"tickSize,omitempty"`
	MinNotional string `json:"minNotional,omitempty"`
}

// SymbolInfo is the subset of exchangeInfo used by the dashboard.
type SymbolInfo struct {
	Symbol     string         `json:"symbol"`
	Status     string         `json:"status"`
	BaseAsset  string         `json:"baseAsset"`
	QuoteAsset string         `json:"quoteAsset"`
	Filters    []SymbolFilter `json:"filters"`
}

// Filter returns the filter of the given type, if present.
func (s *SymbolInfo) Filter(filterType string) (SymbolFilter, bool) {
	for _, f := range s.Filters {
		if f.FilterType == filterType {
			return f, true
		}
	}
	return SymbolFilter{}, false
}
