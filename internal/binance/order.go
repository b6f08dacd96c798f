package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/oklog/ulid/v2"

	"testnet-dashboard/internal/model"
)

// clientOrderPrefix marks orders placed from the dashboard.
const clientOrderPrefix = "dash-"

// NewClientOrderID returns a unique, time-sortable id accepted by the
// exchange's newClientOrderId field (max 36 chars).
func NewClientOrderID() string {
	return clientOrderPrefix + ulid.Make().String()
}

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	TransactTime  int64  `json:"transactTime"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
	Side          string `json:"side"`
}

// CreateMarketOrder submits a market order. The quantity is sent exactly as
// given; callers pass a lot-size normalized fixed-point string.
// In test-only mode the exchange validates the order without executing it.
func (c *Client) CreateMarketOrder(ctx context.Context, req model.MarketOrderRequest) (*model.OrderReceipt, error) {
	if req.Side != model.SideBuy && req.Side != model.SideSell {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidSide, req.Side)
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = NewClientOrderID()
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", "MARKET")
	params.Set("quantity", req.Quantity)
	params.Set("newClientOrderId", req.ClientOrderID)
	params.Set("newOrderRespType", "RESULT")

	route := "api.order"
	if c.testOnly {
		route = "api.order.test"
	}

	raw, err := c.doRequest(ctx, http.MethodPost, route, params, true)
	if err != nil {
		return nil, err
	}

	if c.testOnly {
		return &model.OrderReceipt{
			ClientOrderID: req.ClientOrderID,
			Symbol:        req.Symbol,
			Side:          req.Side,
			Status:        "TEST",
			OrigQty:       req.Quantity,
			ExecutedQty:   "0",
			TransactTime:  c.now().UnixMilli(),
			TestOnly:      true,
		}, nil
	}

	var resp orderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("binance: couldn't parse order response: %w", err)
	}
	return &model.OrderReceipt{
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Side:          model.Side(resp.Side),
		Status:        resp.Status,
		OrigQty:       resp.OrigQty,
		ExecutedQty:   resp.ExecutedQty,
		TransactTime:  resp.TransactTime,
	}, nil
}
