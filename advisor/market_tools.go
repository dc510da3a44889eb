package advisor

import (
	"context"
	"time"

	"github.com/everydev1618/fincoach/ledger"
	"github.com/everydev1618/fincoach/market"
	"github.com/everydev1618/fincoach/tools"
)

// defaultHistoryDays is the look-back used when no start date is given.
const defaultHistoryDays = 30

// MarketTools returns the quote and price history tools over p.
func MarketTools(p market.Provider, now func() time.Time) []tools.Tool {
	if now == nil {
		now = time.Now
	}
	symbolParam := tools.ParamDef{
		Type:        "string",
		Description: "Ticker (AAPL, VOO) or crypto asset (BTC, ethereum)",
		Required:    true,
	}

	return []tools.Tool{
		{
			Name:        ToolQuote,
			Description: "Get the latest price of a stock, ETF or crypto asset.",
			Params:      map[string]tools.ParamDef{"symbol": symbolParam},
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				q, err := p.Quote(ctx, args.String("symbol"))
				if err != nil {
					return tools.Result{}, err
				}
				return tools.Success(q), nil
			},
		},
		{
			Name:        ToolPriceHistory,
			Description: "Get daily prices of a stock, ETF or crypto asset. Defaults to the last 30 days.",
			Params: map[string]tools.ParamDef{
				"symbol":     symbolParam,
				"start_date": {Type: "string", Description: dateParamDescription},
				"end_date":   {Type: "string", Description: dateParamDescription},
			},
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				end := now().UTC().Truncate(24 * time.Hour)
				if args.Has("end_date") {
					d, err := ledger.ParseDate("end_date", args.String("end_date"))
					if err != nil {
						return tools.Result{}, err
					}
					end = d
				}
				start := end.AddDate(0, 0, -defaultHistoryDays)
				if args.Has("start_date") {
					d, err := ledger.ParseDate("start_date", args.String("start_date"))
					if err != nil {
						return tools.Result{}, err
					}
					start = d
				}

				bars, err := p.History(ctx, args.String("symbol"), start, end)
				if err != nil {
					return tools.Result{}, err
				}
				return tools.Success(map[string]any{
					"symbol":     args.String("symbol"),
					"start_date": start.Format(time.DateOnly),
					"end_date":   end.Format(time.DateOnly),
					"bars":       bars,
				}), nil
			},
		},
	}
}
