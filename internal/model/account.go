package model

// Balance is one asset line of the account.
type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

// NonZero reports whether the asset has a free or locked amount.
func (b Balance) NonZero() bool {
	return b.Free > 0 || b.Locked > 0
}
