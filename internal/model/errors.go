package model

import (
	"errors"
	"fmt"
)

// Runtime errors raised by the order path. They are returned wrapped with
// context; match them with errors.Is.
var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrMissingLotSizeRule = errors.New("missing LOT_SIZE rule")
	ErrInvalidSide        = errors.New("invalid side")
)

// ConfigError reports a setup problem: a required setting is absent or malformed.
// It is never returned for exchange or network failures.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err carries a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
