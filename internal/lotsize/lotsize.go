// Package lotsize maps a requested order quantity onto the exchange's
// LOT_SIZE grid: at least the minimum quantity, floored to a multiple of the
// step size, carried at the precision the step size implies.
//
// All arithmetic is decimal. Quantities leave this package as fixed-point
// strings so the exchange never sees exponent notation or binary float noise.
package lotsize

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"testnet-dashboard/internal/model"
)

// FilterType is the exchange filter that carries the lot-size rule.
const FilterType = "LOT_SIZE"

// Rule is a symbol's lot-size constraint.
type Rule struct {
	MinQty   decimal.Decimal
	StepSize decimal.Decimal
}

// NewRule parses the exchange's string representation of a rule.
func NewRule(minQty, stepSize string) (Rule, error) {
	mq, err := decimal.NewFromString(strings.TrimSpace(minQty))
	if err != nil {
		return Rule{}, fmt.Errorf("%w: minQty %q: %v", model.ErrMissingLotSizeRule, minQty, err)
	}
	step, err := decimal.NewFromString(strings.TrimSpace(stepSize))
	if err != nil {
		return Rule{}, fmt.Errorf("%w: stepSize %q: %v", model.ErrMissingLotSizeRule, stepSize, err)
	}
	if mq.IsNegative() || step.IsNegative() {
		return Rule{}, fmt.Errorf("%w: negative minQty=%s stepSize=%s", model.ErrMissingLotSizeRule, minQty, stepSize)
	}
	return Rule{MinQty: mq, StepSize: step}, nil
}

// RuleFromSymbol extracts the LOT_SIZE rule from a symbol's filters.
// A nil info means the exchange does not know the symbol.
func RuleFromSymbol(symbol string, info *model.SymbolInfo) (Rule, error) {
	if info == nil {
		return Rule{}, fmt.Errorf("%w: %s", model.ErrUnknownSymbol, symbol)
	}
	f, ok := info.Filter(FilterType)
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", model.ErrMissingLotSizeRule, symbol)
	}
	if f.MinQty == "" || f.StepSize == "" {
		return Rule{}, fmt.Errorf("%w: %s has an incomplete %s filter", model.ErrMissingLotSizeRule, symbol, FilterType)
	}
	return NewRule(f.MinQty, f.StepSize)
}

// Precision is the number of fractional digits a normalized quantity carries:
// those of the step size, or of the minimum quantity when there is no step.
func (r Rule) Precision() int32 {
	if r.StepSize.IsPositive() {
		return fractionalDigits(r.StepSize)
	}
	return fractionalDigits(r.MinQty)
}

// Quantity is a normalized, exchange-compliant order quantity.
type Quantity struct {
	value    decimal.Decimal
	decimals int32
}

// String renders the quantity fixed-point at the rule's precision.
func (q Quantity) String() string {
	return q.value.StringFixed(q.decimals)
}

// Normalize clamps requested up to the rule's minimum, floors it to a
// multiple of the step size and fixes it at the rule's precision.
//
// The result never exceeds max(requested, MinQty). When MinQty is not itself
// a multiple of the step size the floored result can fall below it; the
// exchange publishes step-aligned minimums so this does not occur in practice.
func Normalize(rule Rule, requested float64) (Quantity, error) {
	if math.IsNaN(requested) || math.IsInf(requested, 0) || requested <= 0 {
		return Quantity{}, fmt.Errorf("%w: %v must be greater than zero", model.ErrInvalidQuantity, requested)
	}

	q := decimal.NewFromFloat(requested)
	if q.LessThan(rule.MinQty) {
		q = rule.MinQty
	}

	if rule.StepSize.IsPositive() {
		// QuoRem at precision 0 gives the exact integer quotient; for
		// positive operands that is the floor.
		steps, _ := q.QuoRem(rule.StepSize, 0)
		q = steps.Mul(rule.StepSize)
	}

	decimals := rule.Precision()
	q = q.Truncate(decimals)
	if !q.IsPositive() {
		return Quantity{}, fmt.Errorf("%w: %v rounds to zero (minQty=%s stepSize=%s)",
			model.ErrInvalidQuantity, requested, rule.MinQty, rule.StepSize)
	}
	return Quantity{value: q, decimals: decimals}, nil
}

// fractionalDigits counts significant digits after the decimal point.
// decimal.String drops trailing zeros, so "0.00100000" yields 3.
func fractionalDigits(d decimal.Decimal) int32 {
	s := d.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return int32(len(s) - i - 1)
	}
	return 0
}
