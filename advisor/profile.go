package advisor

import (
	"context"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/everydev1618/fincoach/ledger"
	"github.com/everydev1618/fincoach/tools"
)

// Summary condenses the ledger into the figures the adviser reasons about.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpense  decimal.Decimal `json:"total_expense"`
	Net           decimal.Decimal `json:"net"`
	MeanExpense   float64         `json:"mean_expense"`
	MedianExpense float64         `json:"median_expense"`
	InvestedValue decimal.Decimal `json:"invested_value"`
	GoalCount     int             `json:"goal_count"`
	GoalsTotal    int64           `json:"goals_total"`
}

// Summarize computes totals over the given records.
func Summarize(txs []ledger.Transaction, goals []ledger.Goal, invs []ledger.Investment) Summary {
	var (
		s        Summary
		expenses stats.Float64Data
	)
	for _, t := range txs {
		amount := decimal.NewFromFloat(t.Amount)
		switch t.Kind {
		case ledger.KindIncome:
			s.TotalIncome = s.TotalIncome.Add(amount)
		case ledger.KindExpense:
			s.TotalExpense = s.TotalExpense.Add(amount)
			expenses = append(expenses, t.Amount)
		}
	}
	s.Net = s.TotalIncome.Sub(s.TotalExpense)

	if len(expenses) > 0 {
		// Errors only occur on empty input.
		s.MeanExpense, _ = expenses.Mean()
		s.MedianExpense, _ = expenses.Median()
	}

	for _, i := range invs {
		s.InvestedValue = s.InvestedValue.Add(decimal.NewFromFloat(i.Quantity).Mul(decimal.NewFromFloat(i.Price)))
	}

	s.GoalCount = len(goals)
	for _, g := range goals {
		s.GoalsTotal += g.TargetAmount
	}
	return s
}

// Profile is the user's full financial picture.
type Profile struct {
	Goals        []map[string]any `json:"goals"`
	Investments  []map[string]any `json:"investments"`
	Transactions []map[string]any `json:"transactions"`
	Summary      Summary          `json:"summary"`
}

// LoadProfile reads goals, investments and transactions. The three reads are
// independent, so a concurrent write may land between them.
func LoadProfile(ctx context.Context, store Ledger) (*Profile, error) {
	goals, err := store.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	invs, err := store.ListInvestments(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Goals:        goalViews(goals),
		Investments:  investmentViews(invs),
		Transactions: transactionViews(txs),
		Summary:      Summarize(txs, goals, invs),
	}, nil
}

// ProfileTool returns the GoalAndInvestment tool.
func ProfileTool(store Ledger) tools.Tool {
	return tools.Tool{
		Name:        ToolGoalAndInvestment,
		Description: "Get the user's goals, investments and transactions together with a summary of income, expenses and invested value.",
		Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
			p, err := LoadProfile(ctx, store)
			if err != nil {
				return tools.Result{}, err
			}
			return tools.Success(p), nil
		},
	}
}
