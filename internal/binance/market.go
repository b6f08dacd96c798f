package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"testnet-dashboard/internal/lotsize"
	"testnet-dashboard/internal/model"
)

// Kline intervals accepted by the exchange.
var intervals = map[string]bool{
	"1s": true, "1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// MaxLimit is the largest kline page the exchange serves.
const MaxLimit = 1000

// ValidInterval reports whether the exchange accepts interval.
func ValidInterval(interval string) bool {
	return intervals[interval]
}

// Klines fetches the most recent limit candles of symbol, oldest first.
// The series is checked for strictly increasing open times. An unknown
// symbol matches model.ErrUnknownSymbol, as in SymbolInfo.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if !ValidInterval(interval) {
		return nil, fmt.Errorf("binance: unsupported kline interval %q", interval)
	}
	if limit <= 0 || limit > MaxLimit {
		return nil, fmt.Errorf("binance: kline limit must be in 1..%d, got %d", MaxLimit, limit)
	}

	params := url.Values{}
	params.Set("symbol", strings.ToUpper(symbol))
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	raw, err := c.doRequest(ctx, http.MethodGet, "api.klines", params, false)
	if err != nil {
		return nil, unknownSymbol(params.Get("symbol"), err)
	}
	return decodeKlines(raw)
}

// unknownSymbol makes an invalid-symbol rejection also match
// model.ErrUnknownSymbol. The *APIError stays reachable through errors.As.
func unknownSymbol(symbol string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == CodeInvalidSymbol {
		return fmt.Errorf("%w %s: %w", model.ErrUnknownSymbol, symbol, err)
	}
	return err
}

// decodeKlines parses the exchange's positional arrays:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, ...].
func decodeKlines(raw []byte) ([]model.Candle, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var rows [][]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("binance: couldn't parse klines: %w", err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("binance: kline %d has %d fields, want at least 7", i, len(row))
		}
		var (
			c    model.Candle
			errs []error
		)
		c.OpenTime = toTime(row[0], &errs)
		c.Open = toFloat(row[1], &errs)
		c.High = toFloat(row[2], &errs)
		c.Low = toFloat(row[3], &errs)
		c.Close = toFloat(row[4], &errs)
		c.Volume = toFloat(row[5], &errs)
		c.CloseTime = toTime(row[6], &errs)
		if len(errs) > 0 {
			return nil, fmt.Errorf("binance: kline %d: %w", i, errors.Join(errs...))
		}
		if n := len(candles); n > 0 && !c.OpenTime.After(candles[n-1].OpenTime) {
			return nil, fmt.Errorf("binance: kline %d open time %s not after %s",
				i, c.OpenTime.Format(time.RFC3339), candles[n-1].OpenTime.Format(time.RFC3339))
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func toTime(v any, errs *[]error) time.Time {
	n, ok := v.(json.Number)
	if !ok {
		*errs = append(*errs, fmt.Errorf("timestamp %v is %T", v, v))
		return time.Time{}
	}
	ms, err := n.Int64()
	if err != nil {
		*errs = append(*errs, err)
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func toFloat(v any, errs *[]error) float64 {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	default:
		*errs = append(*errs, fmt.Errorf("price %v is %T", v, v))
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*errs = append(*errs, err)
	}
	return f
}

type exchangeInfoResponse struct {
	Symbols []model.SymbolInfo `json:"symbols"`
}

// SymbolInfo fetches the trading rules of one symbol. It is never cached.
// An unknown symbol yields an error matching both model.ErrUnknownSymbol and
// the exchange's *APIError.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (*model.SymbolInfo, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp exchangeInfoResponse
	if err := c.getJSON(ctx, "api.exchange.info", params, false, &resp); err != nil {
		return nil, unknownSymbol(symbol, err)
	}
	for i := range resp.Symbols {
		if resp.Symbols[i].Symbol == symbol {
			return &resp.Symbols[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", model.ErrUnknownSymbol, symbol)
}

// LotSizeRule fetches symbol's current LOT_SIZE rule.
func (c *Client) LotSizeRule(ctx context.Context, symbol string) (lotsize.Rule, error) {
	info, err := c.SymbolInfo(ctx, symbol)
	if err != nil {
		return lotsize.Rule{}, err
	}
	return lotsize.RuleFromSymbol(info.Symbol, info)
}
