// Package binance is a REST client for the Binance Spot API, pointed at the
// Spot Testnet by default. It covers the calls the dashboard makes: ping,
// account balances, klines, exchangeInfo and market orders.
//
// Usage example:
//
//	c, err := binance.NewClient(binance.Config{APIKey: key, APISecret: secret})
//	if err != nil { return err }
//	candles, err := c.Klines(ctx, "BTCUSDT", "1h", 100)
//
// Exchange and transport failures are returned as they come: an *APIError for
// an HTTP/API rejection, or the net/http error for connectivity problems.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"testnet-dashboard/internal/model"
)

// ---- Config & client ----

const (
	TestnetURL = "https://testnet.binance.vision"

	defaultTimeout    = 10 * time.Second
	defaultRecvWindow = 5000 * time.Millisecond
)

// Config holds everything needed to talk to the exchange.
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string        // default: TestnetURL
	Timeout    time.Duration // default: 10s
	RecvWindow time.Duration // default: 5s
	TestOnly   bool          // send orders to /api/v3/order/test (validated, never executed)
	Debug      bool

	HTTPClient *http.Client // optional; Timeout is ignored when set
	Logger     *slog.Logger // optional; default slog.Default()
}

// Client is a Binance Spot REST client. It is safe for concurrent use and
// keeps no state between calls besides its configuration.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	recvWindow time.Duration
	testOnly   bool
	debug      bool

	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	// OnRequest, when set, is called after every exchange call with the
	// route name, HTTP status (0 on transport error), latency and error.
	OnRequest func(route string, status int, elapsed time.Duration, err error)
}

var routes = map[string]string{
	"api.ping":          "/api/v3/ping",
	"api.account":       "/api/v3/account",
	"api.klines":        "/api/v3/klines",
	"api.exchange.info": "/api/v3/exchangeInfo",
	"api.order":         "/api/v3/order",
	"api.order.test":    "/api/v3/order/test",
}

// NewClient validates cfg and returns a client. Missing credentials are a
// *model.ConfigError so setup problems surface before the first request.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &model.ConfigError{Field: "BINANCE_API_KEY", Reason: "not set"}
	}
	if strings.TrimSpace(cfg.APISecret) == "" {
		return nil, &model.ConfigError{Field: "BINANCE_API_SECRET", Reason: "not set"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = TestnetURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, &model.ConfigError{Field: "BINANCE_BASE_URL", Reason: err.Error()}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = defaultRecvWindow
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		recvWindow: cfg.RecvWindow,
		testOnly:   cfg.TestOnly,
		debug:      cfg.Debug,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger.With(slog.String("component", "binance")),
		now:        time.Now,
	}, nil
}

// TestOnly reports whether orders are only validated by the exchange.
func (c *Client) TestOnly() bool { return c.testOnly }

// APIError is an error response from the exchange, kept verbatim.
type APIError struct {
	Status int    `json:"-"`
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance: status=%d code=%d msg=%s", e.Status, e.Code, e.Msg)
}

// Exchange error codes the client interprets.
const (
	CodeInvalidSymbol = -1121
)

// ---- Helpers ----

func (c *Client) buildURL(route string) (string, error) {
	uri, ok := routes[route]
	if !ok {
		return "", fmt.Errorf("binance: unknown route: %s", route)
	}
	return c.baseURL + uri, nil
}

// sign appends recvWindow, timestamp and the HMAC-SHA256 signature of the
// resulting query string.
func (c *Client) sign(params url.Values) string {
	params.Set("recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	payload := params.Encode()

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(payload))
	return payload + "&signature=" + hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) doRequest(ctx context.Context, method, route string, params url.Values, signed bool) (raw []byte, err error) {
	fullURL, err := c.buildURL(route)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = url.Values{}
	}

	var query string
	if signed {
		query = c.sign(params)
	} else {
		query = params.Encode()
	}
	if query != "" {
		fullURL += "?" + query
	}

	start := time.Now()
	status := 0
	defer func() {
		if c.OnRequest != nil {
			c.OnRequest(route, status, time.Since(start), err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	if c.debug {
		c.logger.Debug("request", slog.String("method", method), slog.String("route", route), slog.String("path", req.URL.Path))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if c.debug {
		c.logger.Debug("response", slog.String("route", route), slog.Int("status", status), slog.Int("bytes", len(raw)))
	}

	if status >= http.StatusBadRequest {
		apiErr := &APIError{Status: status}
		if jerr := json.Unmarshal(raw, apiErr); jerr != nil || apiErr.Msg == "" {
			apiErr.Msg = strings.TrimSpace(string(raw))
		}
		return nil, apiErr
	}
	return raw, nil
}

func (c *Client) getJSON(ctx context.Context, route string, params url.Values, signed bool, out any) error {
	raw, err := c.doRequest(ctx, http.MethodGet, route, params, signed)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("binance: couldn't parse %s response: %w", route, err)
	}
	return nil
}

// Ping checks connectivity to the REST API.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "api.ping", nil, false)
	return err
}
