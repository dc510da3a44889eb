package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/everydev1618/fincoach/errdefs"
)

// DefaultCoinGeckoURL is the public CoinGecko API root.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGecko serves crypto prices from the CoinGecko REST API.
type CoinGecko struct {
	client   *resty.Client
	currency string
}

// NewCoinGecko creates a CoinGecko client. apiKey may be empty for the
// public tier.
func NewCoinGecko(baseURL, apiKey string, timeout time.Duration) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("x-cg-demo-api-key", apiKey)
	}
	return &CoinGecko{client: client, currency: "usd"}
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

func (c *CoinGecko) get(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("coingecko %s: %w", path, err)
	}
	if resp.IsError() {
		return &errdefs.ExternalServiceError{
			Service: "coingecko",
			Status:  resp.StatusCode(),
			Body:    strings.TrimSpace(resp.String()),
		}
	}
	return nil
}

// Quote returns the current price of a crypto asset.
func (c *CoinGecko) Quote(ctx context.Context, symbol string) (*Quote, error) {
	id, ok := CoinID(symbol)
	if !ok {
		return nil, errdefs.Invalid("symbol", "unknown crypto asset %q", symbol)
	}

	var prices map[string]map[string]float64
	err := c.get(ctx, "/simple/price", map[string]string{
		"ids":           id,
		"vs_currencies": c.currency,
	}, &prices)
	if err != nil {
		return nil, err
	}

	price, ok := prices[id][c.currency]
	if !ok {
		return nil, fmt.Errorf("coingecko: no %s price for %s", c.currency, id)
	}
	log.WithFields(log.Fields{"symbol": symbol, "id": id, "price": price}).Debug("coingecko quote")
	return &Quote{
		Symbol:   strings.ToUpper(symbol),
		Price:    decimal.NewFromFloat(price),
		Currency: strings.ToUpper(c.currency),
		AsOf:     time.Now().UTC(),
		Source:   "coingecko",
	}, nil
}

// History returns one bar per day built from CoinGecko's price series.
// CoinGecko only reports a single price per point, so Open, High, Low and
// Close are derived from the points falling on each day.
func (c *CoinGecko) History(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	id, ok := CoinID(symbol)
	if !ok {
		return nil, errdefs.Invalid("symbol", "unknown crypto asset %q", symbol)
	}

	var chart marketChart
	err := c.get(ctx, "/coins/"+id+"/market_chart/range", map[string]string{
		"vs_currency": c.currency,
		"from":        fmt.Sprint(from.Unix()),
		"to":          fmt.Sprint(to.Add(24*time.Hour - time.Second).Unix()),
	}, &chart)
	if err != nil {
		return nil, err
	}
	return dailyBars(chart.Prices), nil
}

func dailyBars(points [][2]float64) []Bar {
	var bars []Bar
	for _, p := range points {
		day := time.UnixMilli(int64(p[0])).UTC().Truncate(24 * time.Hour)
		price := decimal.NewFromFloat(p[1])
		if n := len(bars); n > 0 && bars[n-1].Date.Equal(day) {
			b := &bars[n-1]
			b.Close = price
			if price.GreaterThan(b.High) {
				b.High = price
			}
			if price.LessThan(b.Low) {
				b.Low = price
			}
			continue
		}
		bars = append(bars, Bar{Date: day, Open: price, High: price, Low: price, Close: price})
	}
	return bars
}
