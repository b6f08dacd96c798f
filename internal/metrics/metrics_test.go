package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestNewMetrics_PrivateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics(nil)
	b := NewMetrics(nil)

	a.ObserveOrder("BUY", "ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.OrdersTotal.WithLabelValues("BUY", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.OrdersTotal.WithLabelValues("BUY", "ok")))
}

func TestObserveExchange(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveExchange("api.klines", 200, 120*time.Millisecond, nil)
	m.ObserveExchange("api.klines", 200, 80*time.Millisecond, nil)
	m.ObserveExchange("api.order", 0, time.Second, errors.New("dial tcp: refused"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExchangeCalls.WithLabelValues("api.klines", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExchangeCalls.WithLabelValues("api.order", "0")))
}

func TestObserveCompute(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveCompute(100, time.Millisecond)
	m.ObserveCompute(50, time.Millisecond)
	assert.Equal(t, 150.0, testutil.ToFloat64(m.CandlesComputed))
}

func TestHandler_Exposition(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveOrder("SELL", "error")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `dashboard_orders_total{result="error",side="SELL"} 1`), string(body))
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		pinger     Pinger
		wantCode   int
		wantStatus string
	}{
		{"exchange up", fakePinger{}, http.StatusOK, "healthy"},
		{"exchange down", fakePinger{err: errors.New("timeout")}, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthStatus(tt.pinger, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, false, body["redis_enabled"])
		})
	}
}
