package binance

import (
	"context"
	"fmt"
	"strconv"

	"testnet-dashboard/internal/model"
)

// Account is the signed /api/v3/account payload, balances converted.
type Account struct {
	AccountType string
	CanTrade    bool
	Balances    []model.Balance
}

type accountResponse struct {
	AccountType string `json:"accountType"`
	CanTrade    bool   `json:"canTrade"`
	Balances    []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// Account fetches the account and all of its balances.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var resp accountResponse
	if err := c.getJSON(ctx, "api.account", nil, true, &resp); err != nil {
		return nil, err
	}

	acct := &Account{
		AccountType: resp.AccountType,
		CanTrade:    resp.CanTrade,
		Balances:    make([]model.Balance, 0, len(resp.Balances)),
	}
	for _, b := range resp.Balances {
		free, err := parseAmount(b.Free)
		if err != nil {
			return nil, fmt.Errorf("binance: balance %s free: %w", b.Asset, err)
		}
		locked, err := parseAmount(b.Locked)
		if err != nil {
			return nil, fmt.Errorf("binance: balance %s locked: %w", b.Asset, err)
		}
		acct.Balances = append(acct.Balances, model.Balance{Asset: b.Asset, Free: free, Locked: locked})
	}
	return acct, nil
}

// NonZeroBalances returns only the assets with a free or locked amount.
func (c *Client) NonZeroBalances(ctx context.Context) ([]model.Balance, error) {
	acct, err := c.Account(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Balance, 0, len(acct.Balances))
	for _, b := range acct.Balances {
		if b.NonZero() {
			out = append(out, b)
		}
	}
	return out, nil
}

func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
