package advisor

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fincoach "github.com/everydev1618/fincoach"
	"github.com/everydev1618/fincoach/errdefs"
	"github.com/everydev1618/fincoach/ledger"
	"github.com/everydev1618/fincoach/llm/llmtest"
	"github.com/everydev1618/fincoach/market"
	"github.com/everydev1618/fincoach/tools"
)

func newStore(t *testing.T) *ledger.Store {
	t.Helper()
	s, err := ledger.Open(filepath.Join(t.TempDir(), "fincoach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

type stubMarket struct {
	err error
}

func (m *stubMarket) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &market.Quote{Symbol: symbol, Price: decimal.NewFromInt(64000), Currency: "USD", Source: "stub"}, nil
}

func (m *stubMarket) History(ctx context.Context, symbol string, from, to time.Time) ([]market.Bar, error) {
	return []market.Bar{{Date: from, Close: decimal.NewFromInt(1)}, {Date: to, Close: decimal.NewFromInt(2)}}, nil
}

func TestLedgerToolsRoundTrip(t *testing.T) {
	ctx := context.Background()
	reg, err := NewLedgerRegistry(newStore(t))
	require.NoError(t, err)

	for _, kind := range []string{"income", "expense"} {
		res := reg.Execute(ctx, ToolAddTransaction, map[string]any{
			"transaction_type":   kind,
			"transaction_amount": 125.5,
		})
		require.True(t, res.OK(), res.Message)
	}

	res := reg.Execute(ctx, ToolListTransactions, nil)
	require.True(t, res.OK(), res.Message)
	txs := res.Data.([]map[string]any)
	require.Len(t, txs, 2)
	kinds := []any{txs[0]["type"], txs[1]["type"]}
	assert.ElementsMatch(t, []any{"income", "expense"}, kinds)
	assert.Equal(t, 125.5, txs[0]["amount"])

	res = reg.Execute(ctx, ToolTransactionsByType, map[string]any{"transaction_type": "expense"})
	require.True(t, res.OK(), res.Message)
	assert.Len(t, res.Data, 1)
}

func TestAddTransactionInvalidKind(t *testing.T) {
	reg, err := NewLedgerRegistry(newStore(t))
	require.NoError(t, err)

	res := reg.Execute(context.Background(), ToolAddTransaction, map[string]any{
		"transaction_type":   "cash",
		"transaction_amount": 10.0,
	})
	assert.Equal(t, tools.StatusError, res.Status)
	assert.Contains(t, res.Message, "transaction_type")
	assert.True(t, errdefs.IsValidation(res.Err))
}

func TestNegativeAmountsAndPastGoalsAccepted(t *testing.T) {
	reg, err := NewLedgerRegistry(newStore(t))
	require.NoError(t, err)
	ctx := context.Background()

	res := reg.Execute(ctx, ToolAddTransaction, map[string]any{"transaction_type": "expense", "transaction_amount": -20.0})
	assert.True(t, res.OK(), res.Message)

	res = reg.Execute(ctx, ToolAddGoal, map[string]any{"note": "old", "date_target": "2001-01-01", "money_target": 5.0})
	assert.True(t, res.OK(), res.Message)
}

func TestGoalToolsEndToEnd(t *testing.T) {
	ctx := context.Background()
	reg, err := NewLedgerRegistry(newStore(t))
	require.NoError(t, err)

	res := reg.Execute(ctx, ToolAddGoal, map[string]any{
		"note":         "Buy car",
		"date_target":  "2026-01-01",
		"money_target": 20000.0,
	})
	require.True(t, res.OK(), res.Message)

	res = reg.Execute(ctx, ToolListGoals, nil)
	require.True(t, res.OK(), res.Message)
	goals := res.Data.([]map[string]any)
	require.Len(t, goals, 1)
	assert.Equal(t, "Buy car", goals[0]["note"])
	assert.Equal(t, "2026-01-01", goals[0]["date_target"])
	assert.Equal(t, int64(20000), goals[0]["money_target"])
	assert.NotZero(t, goals[0]["id"])

	res = reg.Execute(ctx, ToolAddGoal, map[string]any{"note": "x", "date_target": "01/02/2026", "money_target": 1.0})
	assert.False(t, res.OK())
	assert.Contains(t, res.Message, "date_target")
}

func TestInvestmentTools(t *testing.T) {
	ctx := context.Background()
	reg, err := NewLedgerRegistry(newStore(t))
	require.NoError(t, err)

	res := reg.Execute(ctx, ToolAddInvestment, map[string]any{"amount": 0.5, "title": "BTC", "price": 60000.0})
	require.True(t, res.OK(), res.Message)

	res = reg.Execute(ctx, ToolListInvestments, nil)
	require.True(t, res.OK(), res.Message)
	invs := res.Data.([]map[string]any)
	require.Len(t, invs, 1)
	assert.Equal(t, "BTC", invs[0]["title"])
	assert.Equal(t, 0.5, invs[0]["amount"])
}

func TestTransactionTotals(t *testing.T) {
	ctx := context.Background()
	reg, err := NewLedgerRegistry(newStore(t))
	require.NoError(t, err)

	for _, tx := range []struct {
		kind   string
		amount float64
	}{{"income", 100}, {"income", 200}, {"expense", 50}} {
		res := reg.Execute(ctx, ToolAddTransaction, map[string]any{"transaction_type": tx.kind, "transaction_amount": tx.amount})
		require.True(t, res.OK(), res.Message)
	}

	today := time.Now().UTC()
	res := reg.Execute(ctx, ToolTransactionTotals, map[string]any{
		"start_date": today.AddDate(0, 0, -1).Format(time.DateOnly),
		"end_date":   today.AddDate(0, 0, 1).Format(time.DateOnly),
	})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, map[string]float64{"income": 300, "expense": 50}, res.Data)

	res = reg.Execute(ctx, ToolTransactionTotals, map[string]any{"start_date": "2025-02-01", "end_date": "2025-01-01"})
	assert.False(t, res.OK())
}

func TestSummarize(t *testing.T) {
	s := Summarize(
		[]ledger.Transaction{
			{Kind: ledger.KindIncome, Amount: 1000},
			{Kind: ledger.KindExpense, Amount: 100},
			{Kind: ledger.KindExpense, Amount: 200},
			{Kind: ledger.KindExpense, Amount: 600},
		},
		[]ledger.Goal{{TargetAmount: 20000}, {TargetAmount: 5000}},
		[]ledger.Investment{{Quantity: 2, Price: 150.25}, {Quantity: 0.1, Price: 60000}},
	)

	assert.True(t, s.TotalIncome.Equal(decimal.NewFromInt(1000)))
	assert.True(t, s.TotalExpense.Equal(decimal.NewFromInt(900)))
	assert.True(t, s.Net.Equal(decimal.NewFromInt(100)))
	assert.InDelta(t, 300.0, s.MeanExpense, 1e-9)
	assert.InDelta(t, 200.0, s.MedianExpense, 1e-9)
	assert.True(t, s.InvestedValue.Equal(decimal.RequireFromString("6300.5")), s.InvestedValue.String())
	assert.Equal(t, 2, s.GoalCount)
	assert.Equal(t, int64(25000), s.GoalsTotal)

	empty := Summarize(nil, nil, nil)
	assert.Zero(t, empty.MeanExpense)
	assert.True(t, empty.Net.IsZero())
}

func TestProfileTool(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := store.CreateTransaction(ctx, ledger.KindIncome, 500)
	require.NoError(t, err)
	_, err = store.CreateGoal(ctx, "Buy car", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 20000)
	require.NoError(t, err)

	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(ProfileTool(store)))
	res := reg.Execute(ctx, ToolGoalAndInvestment, nil)
	require.True(t, res.OK(), res.Message)

	p := res.Data.(*Profile)
	assert.Len(t, p.Goals, 1)
	assert.Len(t, p.Transactions, 1)
	assert.Empty(t, p.Investments)
	assert.True(t, p.Summary.Net.Equal(decimal.NewFromInt(500)))
}

func TestProfileToolStoreFailure(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Close())

	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(ProfileTool(store)))
	res := reg.Execute(context.Background(), ToolGoalAndInvestment, nil)
	assert.False(t, res.OK())
	assert.True(t, errdefs.IsStore(res.Err))
}

func TestMarketTools(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	reg := tools.NewRegistry()
	for _, tool := range MarketTools(&stubMarket{}, now) {
		require.NoError(t, reg.Register(tool))
	}
	ctx := context.Background()

	res := reg.Execute(ctx, ToolQuote, map[string]any{"symbol": "BTC"})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "BTC", res.Data.(*market.Quote).Symbol)

	res = reg.Execute(ctx, ToolPriceHistory, map[string]any{"symbol": "AAPL"})
	require.True(t, res.OK(), res.Message)
	data := res.Data.(map[string]any)
	assert.Equal(t, "2024-02-14", data["start_date"])
	assert.Equal(t, "2024-03-15", data["end_date"])

	res = reg.Execute(ctx, ToolPriceHistory, map[string]any{"symbol": "AAPL", "start_date": "2024-01-01", "end_date": "2024-01-31"})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "2024-01-01", res.Data.(map[string]any)["start_date"])

	res = reg.Execute(ctx, ToolQuote, map[string]any{})
	assert.False(t, res.OK())
}

func TestAdvisoryPipeline(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := store.CreateGoal(ctx, "Buy car", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 20000)
	require.NoError(t, err)

	model := llmtest.New(
		llmtest.Call("p1", ToolGoalAndInvestment, nil),
		llmtest.Text("Goal: Buy car, 20000 by 2026-01-01."),
		llmtest.Call("m1", ToolQuote, map[string]any{"symbol": "BTC"}),
		llmtest.Text("BTC trades at 64000 USD."),
		llmtest.Text("Invest monthly in an index fund."),
	)
	p, err := NewAdvisoryPipeline(Deps{Ledger: store, Market: &stubMarket{}, Model: model})
	require.NoError(t, err)

	res, err := p.Run(ctx, "How do I reach my car goal?", nil)
	require.NoError(t, err)
	assert.Equal(t, fincoach.Completed, res.State.Kind)
	assert.Equal(t, "Invest monthly in an index fund.", res.Output)
	assert.Equal(t, []string{KeyProfile, KeyMarket, KeyAdvice}, res.Blackboard.Keys())

	adviserPrompt := model.Messages(4)[0].Content
	assert.Contains(t, adviserPrompt, "Goal: Buy car, 20000 by 2026-01-01.")
	assert.Contains(t, adviserPrompt, "BTC trades at 64000 USD.")

	// Only the profile tool is offered to the first stage, and no tools to the last.
	require.Len(t, model.Tools(0), 1)
	assert.Equal(t, ToolGoalAndInvestment, model.Tools(0)[0].Name)
	assert.Empty(t, model.Tools(4))
}

func TestRouterCapabilities(t *testing.T) {
	model := llmtest.New(
		llmtest.Call("c1", ToolAddTransaction, map[string]any{"transaction_type": "cash", "transaction_amount": 5.0}),
		llmtest.Text("Transactions must be income or expense."),
	)
	r, err := NewRouter(Deps{Ledger: newStore(t), Market: &stubMarket{}, Model: model})
	require.NoError(t, err)

	out, err := r.Handle(context.Background(), "I paid 5 in cash")
	require.NoError(t, err)
	assert.Equal(t, "Transactions must be income or expense.", out)

	var names []string
	for _, s := range model.Tools(0) {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolAddTransaction, ToolListTransactions, ToolTransactionsByType, ToolTransactionTotals,
		ToolAddGoal, ToolListGoals, ToolAddInvestment, ToolListInvestments,
		ToolQuote, ToolPriceHistory, ToolAdviser,
	}, names)

	toolMsg := model.Messages(1)[3].ToolResult.Content
	assert.Equal(t, "error", toolMsg["status"])
}

func TestRouterMarketOutageAbortsTurn(t *testing.T) {
	outage := &errdefs.ExhaustedRetryError{Attempts: 5, Err: &errdefs.ExternalServiceError{Service: "coingecko", Status: 429}}
	model := llmtest.New(llmtest.Call("c1", ToolQuote, map[string]any{"symbol": "BTC"}))
	r, err := NewRouter(Deps{Ledger: newStore(t), Market: &stubMarket{err: outage}, Model: model})
	require.NoError(t, err)

	_, err = r.Handle(context.Background(), "price of bitcoin?")
	assert.ErrorIs(t, err, fincoach.ErrStageFailed)
}

func TestCatalog(t *testing.T) {
	store := newStore(t)

	catalog, err := NewCatalog(Deps{Ledger: store})
	require.NoError(t, err)
	assert.Equal(t, sortedCopy(append(slices.Clone(ledgerToolNames), ToolGoalAndInvestment)), catalog.Names())

	catalog, err = NewCatalog(Deps{Ledger: store, Market: &stubMarket{}})
	require.NoError(t, err)
	assert.Contains(t, catalog.Names(), ToolQuote)
	assert.Contains(t, catalog.Names(), ToolPriceHistory)

	ledgerOnly, err := NewLedgerRegistry(store)
	require.NoError(t, err)
	assert.NotContains(t, ledgerOnly.Names(), ToolGoalAndInvestment)
	assert.Len(t, ledgerOnly.Names(), len(ledgerToolNames))
}

func TestCatalogLogsToolCalls(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	r, err := NewRouter(Deps{
		Ledger: newStore(t),
		Model: llmtest.New(
			llmtest.Call("c1", ToolListGoals, nil),
			llmtest.Text("You have no goals yet."),
		),
		Log: log.NewEntry(logger),
	})
	require.NoError(t, err)

	_, err = r.Handle(context.Background(), "What are my goals?")
	require.NoError(t, err)

	var logged []any
	for _, e := range hook.AllEntries() {
		if e.Message == "tool executed" {
			logged = append(logged, e.Data["tool"])
		}
	}
	assert.Equal(t, []any{ToolListGoals}, logged)
}

func sortedCopy(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}
