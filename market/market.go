// Package market fetches quotes and price history for stocks and crypto
// assets. Stocks are served by Polygon, crypto assets by CoinGecko.
package market

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/everydev1618/fincoach/errdefs"
	"github.com/everydev1618/fincoach/retry"
)

// Quote is the latest known price of a symbol.
type Quote struct {
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	AsOf     time.Time       `json:"as_of"`
	Source   string          `json:"source"`
}

// Bar is one daily price point.
type Bar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume float64         `json:"volume"`
}

// Provider is a source of market data.
type Provider interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
	History(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}

// cryptoIDs maps common tickers to CoinGecko coin ids.
var cryptoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"DOT":  "polkadot",
	"LTC":  "litecoin",
	"USDT": "tether",
	"USDC": "usd-coin",
	"BNB":  "binancecoin",
}

// CoinID returns the CoinGecko id for symbol and whether symbol is a known
// crypto asset. Both tickers ("BTC") and coin ids ("bitcoin") are accepted.
func CoinID(symbol string) (string, bool) {
	s := strings.TrimSpace(symbol)
	if id, ok := cryptoIDs[strings.ToUpper(s)]; ok {
		return id, true
	}
	lower := strings.ToLower(s)
	for _, id := range cryptoIDs {
		if id == lower {
			return id, true
		}
	}
	return "", false
}

// Router sends crypto symbols to one provider and everything else to another.
type Router struct {
	Stocks Provider
	Crypto Provider
}

func (r *Router) pick(symbol string) (Provider, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, errdefs.Invalid("symbol", "is required")
	}
	if _, ok := CoinID(symbol); ok {
		if r.Crypto == nil {
			return nil, errdefs.Invalid("symbol", "no crypto data source configured for %s", symbol)
		}
		return r.Crypto, nil
	}
	if r.Stocks == nil {
		return nil, errdefs.Invalid("symbol", "no stock data source configured for %s", symbol)
	}
	return r.Stocks, nil
}

// Quote returns the latest price of symbol.
func (r *Router) Quote(ctx context.Context, symbol string) (*Quote, error) {
	p, err := r.pick(symbol)
	if err != nil {
		return nil, err
	}
	return p.Quote(ctx, symbol)
}

// History returns daily bars for symbol between from and to inclusive.
func (r *Router) History(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	p, err := r.pick(symbol)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, errdefs.Invalid("end_date", "must not be before start_date")
	}
	return p.History(ctx, symbol, from, to)
}

// Retrying decorates a Provider with a retry policy.
type Retrying struct {
	next   Provider
	policy retry.Policy
}

// WithRetry wraps next so that every call follows policy.
func WithRetry(next Provider, policy retry.Policy) *Retrying {
	return &Retrying{next: next, policy: policy}
}

func (r *Retrying) Quote(ctx context.Context, symbol string) (*Quote, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (*Quote, error) {
		return r.next.Quote(ctx, symbol)
	}, retry.WithName("market.quote"))
}

func (r *Retrying) History(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) ([]Bar, error) {
		return r.next.History(ctx, symbol, from, to)
	}, retry.WithName("market.history"))
}
