// Package notification delivers order events to external channels
// (log, webhooks, Telegram, Redis pub/sub, websocket clients).
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const AlertInfo AlertLevel = "INFO"

// Alert is one order event. Order fields are empty for alerts that are not
// about a specific order.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`

	Symbol        string    `json:"symbol,omitempty"`
	Side          string    `json:"side,omitempty"`
	Quantity      string    `json:"quantity,omitempty"`
	OrderID       int64     `json:"order_id,omitempty"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
	Source        string    `json:"source,omitempty"` // instance that placed the order
	Time          time.Time `json:"ts"`
}

// Encode renders the alert as the JSON carried on every wire channel.
func (a Alert) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// DecodeAlert parses an Encode'd alert.
func DecodeAlert(raw []byte) (Alert, error) {
	var a Alert
	err := json.Unmarshal(raw, &a)
	return a, err
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log (useful for development).
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-based notifier; nil means slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.logger.InfoContext(ctx, alert.Title,
		slog.String("level", string(alert.Level)),
		slog.String("message", alert.Message),
		slog.String("symbol", alert.Symbol),
		slog.String("side", alert.Side),
		slog.String("quantity", alert.Quantity),
		slog.Int64("order_id", alert.OrderID),
	)
	return nil
}

// Multi fans an alert out to every notifier. All are tried; their errors are
// joined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
