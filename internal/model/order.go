package model

import (
	"fmt"
	"strings"
)

// Side is the trade direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide upper-cases s and accepts only BUY or SELL.
func ParseSide(s string) (Side, error) {
	switch side := Side(strings.ToUpper(strings.TrimSpace(s))); side {
	case SideBuy, SideSell:
		return side, nil
	default:
		return "", fmt.Errorf("%w: %q (use BUY or SELL)", ErrInvalidSide, s)
	}
}

// MarketOrderRequest is a market order ready for submission.
// Quantity is already lot-size normalized and rendered fixed-point.
type MarketOrderRequest struct {
	Symbol        string `json:"symbol"`
	Side          Side   `json:"side"`
	Quantity      string `json:"quantity"`
	ClientOrderID string `json:"client_order_id"`
}

// OrderReceipt is the exchange's acknowledgement of a submitted order.
type OrderReceipt struct {
	OrderID       int64  `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Side          Side   `json:"side"`
	Status        string `json:"status"`
	OrigQty       string `json:"orig_qty"`
	ExecutedQty   string `json:"executed_qty"`
	TransactTime  int64  `json:"transact_time"`
	TestOnly      bool   `json:"test_only"`
}
