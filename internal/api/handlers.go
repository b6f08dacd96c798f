package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"testnet-dashboard/internal/dashboard"
	"testnet-dashboard/internal/logger"
	"testnet-dashboard/internal/model"
)

// liveOrders drives the live order list in the page footer.
type liveOrders struct {
	Enabled bool
	Since   int64
}

type indexPage struct {
	Flashes  []Flash
	Error    string
	Balances []model.Balance
	Live     liveOrders
}

type marketPage struct {
	Flashes []Flash
	Error   string
	Live    liveOrders
	*dashboard.MarketView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
	defer cancel()

	page := indexPage{Flashes: s.flash.Pop(w, r), Live: s.liveOrders()}
	balances, err := s.svc.Balances(ctx)
	if err != nil {
		page.Error = errorMessage(err, "Error connecting to Binance Testnet")
		s.logError(r, "load balances", err)
	}
	page.Balances = balances
	s.render(w, r, "index.html", page)
}

func (s *Server) handleMarketSelect(w http.ResponseWriter, r *http.Request) {
	symbol := dashboard.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		s.flash.Add(w, r, FlashDanger, "Enter a trading pair, for example BTCUSDT.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, marketPath(symbol), http.StatusSeeOther)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
	defer cancel()

	symbol := dashboard.NormalizeSymbol(mux.Vars(r)["symbol"])
	page := marketPage{Flashes: s.flash.Pop(w, r), Live: s.liveOrders()}

	view, err := s.svc.Market(ctx, symbol)
	if view == nil {
		view = &dashboard.MarketView{Symbol: symbol, Interval: s.svc.Interval()}
	}
	if err != nil {
		page.Error = errorMessage(err, "Error fetching market data")
		s.logError(r, "load market", err, slog.String("symbol", symbol))
	}
	page.MarketView = view
	s.render(w, r, "market.html", page)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
	defer cancel()

	vars := mux.Vars(r)
	symbol := dashboard.NormalizeSymbol(vars["symbol"])
	side := strings.ToUpper(vars["side"])
	back := marketPath(symbol)

	raw := r.FormValue("quantity")
	if raw == "" {
		raw = "0.0"
	}
	qty, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		s.flash.Add(w, r, FlashDanger, "Invalid quantity.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	res, err := s.svc.PlaceOrder(ctx, symbol, side, qty)
	if err != nil {
		s.flash.Add(w, r, FlashDanger, errorMessage(err, "Error sending order"))
		s.logError(r, "place order", err, slog.String("symbol", symbol), slog.String("side", side))
	} else {
		s.flash.Add(w, r, FlashSuccess, dashboard.SuccessMessage(res))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

type marketResponse struct {
	Symbol   string                `json:"symbol"`
	Interval string                `json:"interval"`
	Series   model.IndicatorSeries `json:"series"`
}

func (s *Server) handleAPIMarket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
	defer cancel()

	symbol := dashboard.NormalizeSymbol(mux.Vars(r)["symbol"])
	series, err := s.svc.Series(ctx, symbol)
	if err != nil {
		s.logError(r, "api market", err, slog.String("symbol", symbol))
		writeJSON(w, statusFor(err), map[string]string{
			"error":      err.Error(),
			"request_id": logger.RequestID(r.Context()),
		})
		return
	}
	writeJSON(w, http.StatusOK, marketResponse{Symbol: symbol, Interval: s.svc.Interval(), Series: series})
}

func (s *Server) liveOrders() liveOrders {
	if s.events == nil {
		return liveOrders{}
	}
	return liveOrders{Enabled: true, Since: s.events.Seq()}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logError(r, "render "+name, err)
	}
}

func (s *Server) logError(r *http.Request, op string, err error, attrs ...any) {
	args := append(logger.Attrs(r.Context()), slog.String("op", op), slog.String("error", err.Error()))
	s.logger.WarnContext(r.Context(), "request failed", append(args, attrs...)...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorMessage is the text shown to the user: configuration problems and
// input validation verbatim, anything else prefixed as an exchange failure.
func errorMessage(err error, prefix string) string {
	var ce *model.ConfigError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	if dashboard.IsValidation(err) {
		return err.Error()
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

func statusFor(err error) int {
	switch {
	case model.IsConfigError(err):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrUnknownSymbol):
		return http.StatusNotFound
	case dashboard.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func marketPath(symbol string) string {
	return "/market/" + url.PathEscape(symbol)
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
