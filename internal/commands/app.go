package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/everydev1618/fincoach/config"
	"github.com/everydev1618/fincoach/errdefs"
	"github.com/everydev1618/fincoach/ledger"
	"github.com/everydev1618/fincoach/llm"
	"github.com/everydev1618/fincoach/market"
)

// openStore opens the ledger at cfg.DBPath and makes sure its schema exists.
func openStore(ctx context.Context, cfg *config.Config) (*ledger.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	store, err := ledger.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// newModel builds the configured reasoning engine wrapped in the retry policy.
func newModel(ctx context.Context, cfg *config.Config) (llm.LLM, error) {
	key := cfg.ModelAPIKey()
	if key == "" {
		return nil, errdefs.Invalid(cfg.ModelAPIKeyEnv(), "is not set; add it to your environment or a .env file")
	}

	var model llm.LLM
	switch cfg.Provider {
	case config.ProviderOpenAI:
		opts := []llm.OpenAIOption{llm.WithOpenAIModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, llm.WithOpenAIBaseURL(cfg.BaseURL))
		}
		model = llm.NewOpenAI(key, opts...)
	default:
		g, err := llm.NewGemini(ctx, key, llm.WithGeminiModel(cfg.Model))
		if err != nil {
			return nil, err
		}
		model = g
	}
	return llm.WithRetry(model, cfg.Retry), nil
}

// newMarket builds the market data router. Stocks need a Polygon key;
// crypto works on CoinGecko's public tier.
func newMarket(cfg *config.Config) market.Provider {
	r := &market.Router{
		Crypto: market.WithRetry(
			market.NewCoinGecko(cfg.Market.CryptoBaseURL, cfg.Credentials.CoinGeckoAPIKey, cfg.Market.Timeout),
			cfg.Retry,
		),
	}
	if cfg.Credentials.PolygonAPIKey != "" {
		r.Stocks = market.WithRetry(market.NewPolygon(cfg.Credentials.PolygonAPIKey), cfg.Retry)
	}
	return r
}
