package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/everydev1618/fincoach/errdefs"
)

// Polygon serves stock prices from the Polygon aggregates API.
type Polygon struct {
	Client *polygon.Client
	now    func() time.Time
}

// NewPolygon creates a Polygon client.
func NewPolygon(apiKey string) *Polygon {
	return &Polygon{
		Client: polygon.New(apiKey),
		now:    time.Now,
	}
}

// History returns adjusted daily bars for a ticker.
func (p *Polygon) History(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	ticker := strings.ToUpper(strings.TrimSpace(symbol))
	log.Debugf("fetching polygon daily aggregates for %s", ticker)

	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithOrder(models.Asc).WithAdjusted(true)

	iter := p.Client.ListAggs(ctx, params)

	var bars []Bar
	for iter.Next() {
		bars = append(bars, barFromAgg(iter.Item()))
	}
	if err := iter.Err(); err != nil {
		return nil, polygonError(err)
	}
	return bars, nil
}

// Quote returns the close of the most recent trading day within the last week.
func (p *Polygon) Quote(ctx context.Context, symbol string) (*Quote, error) {
	now := p.now().UTC()
	bars, err := p.History(ctx, symbol, now.AddDate(0, 0, -7), now)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, errdefs.Invalid("symbol", "no recent prices for %s", symbol)
	}
	last := bars[len(bars)-1]
	return &Quote{
		Symbol:   strings.ToUpper(symbol),
		Price:    last.Close,
		Currency: "USD",
		AsOf:     last.Date,
		Source:   "polygon",
	}, nil
}

func barFromAgg(a models.Agg) Bar {
	return Bar{
		Date:   time.Time(a.Timestamp).UTC(),
		Open:   decimal.NewFromFloat(a.Open),
		High:   decimal.NewFromFloat(a.High),
		Low:    decimal.NewFromFloat(a.Low),
		Close:  decimal.NewFromFloat(a.Close),
		Volume: a.Volume,
	}
}

func polygonError(err error) error {
	var errRes *models.ErrorResponse
	if errors.As(err, &errRes) && errRes.StatusCode != 0 {
		return &errdefs.ExternalServiceError{Service: "polygon", Status: errRes.StatusCode, Err: err}
	}
	return fmt.Errorf("polygon: %w", err)
}
