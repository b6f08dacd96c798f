package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"BUY", SideBuy, false},
		{"sell", SideSell, false},
		{" Buy ", SideBuy, false},
		{"", "", true},
		{"HOLD", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSide) {
				t.Errorf("ParseSide(%q) err = %v, want ErrInvalidSide", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseSide(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestIndicatorSeriesTail(t *testing.T) {
	s := make(IndicatorSeries, 5)
	for i := range s {
		s[i].Close = float64(i)
	}

	if got := s.Tail(2); len(got) != 2 || got[0].Close != 3 || got[1].Close != 4 {
		t.Errorf("Tail(2) = %+v", got)
	}
	if got := s.Tail(10); len(got) != 5 {
		t.Errorf("Tail(10) len = %d, want 5", len(got))
	}
	if got := s.Tail(0); len(got) != 0 {
		t.Errorf("Tail(0) len = %d, want 0", len(got))
	}
}

func TestConfigError(t *testing.T) {
	err := fmt.Errorf("startup: %w", &ConfigError{Field: "BINANCE_API_KEY", Reason: "not set"})
	if !IsConfigError(err) {
		t.Fatal("wrapped ConfigError not detected")
	}
	if IsConfigError(ErrUnknownSymbol) {
		t.Error("sentinel reported as ConfigError")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Error() != "config: BINANCE_API_KEY: not set" {
		t.Errorf("unexpected message %v", err)
	}
}

func TestBalanceNonZero(t *testing.T) {
	if (Balance{Asset: "BTC"}).NonZero() {
		t.Error("empty balance reported non-zero")
	}
	if !(Balance{Asset: "BTC", Locked: 0.1}).NonZero() {
		t.Error("locked-only balance reported zero")
	}
}

func TestSymbolInfoFilter(t *testing.T) {
	info := &SymbolInfo{Symbol: "BTCUSDT", Filters: []SymbolFilter{
		{FilterType: "PRICE_FILTER", TickSize: "0.01"},
		{FilterType: "LOT_SIZE", MinQty: "0.00001", StepSize: "0.00001"},
	}}
	f, ok := info.Filter("LOT_SIZE")
	if !ok || f.StepSize != "0.00001" {
		t.Errorf("Filter(LOT_SIZE) = %+v, %v", f, ok)
	}
	if _, ok := info.Filter("NOTIONAL"); ok {
		t.Error("absent filter found")
	}
}
