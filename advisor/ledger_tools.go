// Package advisor assembles the financial assistant: the ledger and market
// tools, the advisory pipeline and the root router that fronts them.
package advisor

import (
	"context"
	"time"

	"github.com/everydev1618/fincoach/ledger"
	"github.com/everydev1618/fincoach/tools"
)

// Ledger is the subset of the ledger store the tools need.
type Ledger interface {
	CreateTransaction(ctx context.Context, kind ledger.TransactionKind, amount float64) (int64, error)
	CreateGoal(ctx context.Context, note string, targetDate time.Time, targetAmount int64) (int64, error)
	CreateInvestment(ctx context.Context, title string, quantity, price float64) (int64, error)
	ListTransactions(ctx context.Context) ([]ledger.Transaction, error)
	ListTransactionsByKind(ctx context.Context, kind ledger.TransactionKind) ([]ledger.Transaction, error)
	ListGoals(ctx context.Context) ([]ledger.Goal, error)
	ListInvestments(ctx context.Context) ([]ledger.Investment, error)
	AggregateByDateRange(ctx context.Context, start, end time.Time) (map[ledger.TransactionKind]float64, error)
}

// Tool names.
const (
	ToolAddTransaction     = "AddNewTransaction"
	ToolListTransactions   = "GetAllTransactions"
	ToolTransactionsByType = "GetTransactionsByType"
	ToolTransactionTotals  = "GetTransactionTotals"
	ToolAddGoal            = "AddNewGoal"
	ToolListGoals          = "GetAllGoals"
	ToolAddInvestment      = "AddNewInvestment"
	ToolListInvestments    = "GetAllInvestments"
	ToolGoalAndInvestment  = "GoalAndInvestment"
	ToolQuote              = "GetQuote"
	ToolPriceHistory       = "GetPriceHistory"
	ToolAdviser            = "adviser_agent"
)

const (
	transactionTypeParam    = "transaction_type"
	transactionTypeDesc     = "Either income or expense"
	transactionAmountParam  = "transaction_amount"
	transactionAmountDesc   = "Amount of money moved"
	investmentQuantityParam = "amount"
	dateParamDescription    = "Calendar date in YYYY-MM-DD format"
)

var kindEnum = []string{string(ledger.KindIncome), string(ledger.KindExpense)}

// LedgerTools returns the ledger CRUD tools.
func LedgerTools(store Ledger) []tools.Tool {
	return []tools.Tool{
		{
			Name:        ToolAddTransaction,
			Description: "Record a new income or expense transaction.",
			Params: map[string]tools.ParamDef{
				transactionTypeParam:   {Type: "string", Description: transactionTypeDesc, Required: true, Enum: kindEnum},
				transactionAmountParam: {Type: "number", Description: transactionAmountDesc, Required: true},
			},
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				kind, err := ledger.ParseKind(args.String(transactionTypeParam))
				if err != nil {
					return tools.Result{}, err
				}
				amount := args.Decimal(transactionAmountParam).InexactFloat64()
				id, err := store.CreateTransaction(ctx, kind, amount)
				if err != nil {
					return tools.Result{}, err
				}
				return tools.Success(map[string]any{
					"id":      id,
					"message": "Transaction added successfully",
				}), nil
			},
		},
		{
			Name:        ToolListTransactions,
			Description: "List every transaction, newest first.",
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				txs, err := store.ListTransactions(ctx)
				if err != nil {
					return tools.Result{}, err
				}
				return tools.Success(transactionViews(txs)), nil
			},
		},
		{
			Name:        ToolTransactionsByType,
			Description: "List transactions of one type, newest first.",
			Params: map[string]tools.ParamDef{
				transactionTypeParam: {Type: "string", Description: transactionTypeDesc, Required: true, Enum: kindEnum},
			},
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				kind, err := ledger.ParseKind(args.String(transactionTypeParam))
				if err != nil {
					return tools.Result{}, err
				}
				txs, err := store.ListTransactionsByKind(ctx, kind)
				if err != nil {
					return tools.Result{}, err
				}
				return tools.Success(transactionViews(txs)), nil
			},
		},
		{
			Name:        ToolTransactionTotals,
			Description: "Sum transaction amounts per type for transactions made between two dates, inclusive.",
			Params: map[string]tools.ParamDef{
				"start_date": {Type: "string", Description: dateParamDescription, Required: true},
				"end_date":   {Type: "string", Description: dateParamDescription, Required: true},
			},
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				start, err := ledger.ParseDate("start_date", args.String("start_date"))
				if err != nil {
					return tools.Result{}, err
				}
				end, err := ledger.ParseDate("end_date", args.String("end_date"))
				if err != nil {
					return tools.Result{}, err
				}
				totals, err := store.AggregateByDateRange(ctx, start, end)
				if err != nil {
					return tools.Result{}, err
				}
				out := make(map[string]float64, len(totals))
				for k, v := range totals {
					out[string(k)] = v
				}
				return tools.Success(out), nil
			},
		},
		{
			Name:        ToolAddGoal,
			Description: "Record a savings goal with a target date and amount.",
			Params: map[string]tools.ParamDef{
				"note":         {Type: "string", Description: "What the goal is for", Required: true},
				"date_target":  {Type: "string", Description: dateParamDescription, Required: true},
				"money_target": {Type: "integer", Description: "Amount of money to reach", Required: true},
			},
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				target, err := ledger.ParseDate("date_target", args.String("date_target"))
				if err != nil {
					return tools.Result{}, err
				}
				id, err := store.CreateGoal(ctx, args.String("note"), target, args.Int("money_target"))
				if err != nil {
					return tools.Result{}, err
				}
				return tools.Success(map[string]any{
					"id":      id,
					"message": "Goal added successfully",
				}), nil
			},
		},
		{
			Name:        ToolListGoals,
			Description: "List every savings goal.",
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				goals, err := store.ListGoals(ctx)
				if err != nil {
					return tools.Result{}, err
				}
				return tools.Success(goalViews(goals)), nil
			},
		},
		{
			Name:        ToolAddInvestment,
			Description: "Record a purchase of an asset.",
			Params: map[string]tools.ParamDef{
				investmentQuantityParam: {Type: "number", Description: "Quantity bought", Required: true},
				"title":                 {Type: "string", Description: "Asset name or symbol", Required: true},
				"price":                 {Type: "number", Description: "Price paid per unit", Required: true},
			},
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				id, err := store.CreateInvestment(ctx,
					args.String("title"),
					args.Decimal(investmentQuantityParam).InexactFloat64(),
					args.Decimal("price").InexactFloat64(),
				)
				if err != nil {
					return tools.Result{}, err
				}
				return tools.Success(map[string]any{
					"id":      id,
					"message": "Investment added successfully",
				}), nil
			},
		},
		{
			Name:        ToolListInvestments,
			Description: "List every investment, newest first.",
			Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
				invs, err := store.ListInvestments(ctx)
				if err != nil {
					return tools.Result{}, err
				}
				return tools.Success(investmentViews(invs)), nil
			},
		},
	}
}

func transactionViews(txs []ledger.Transaction) []map[string]any {
	out := make([]map[string]any, 0, len(txs))
	for _, t := range txs {
		out = append(out, map[string]any{
			"id":         t.ID,
			"type":       string(t.Kind),
			"amount":     t.Amount,
			"created_at": t.CreatedAt.Format(time.DateTime),
		})
	}
	return out
}

func goalViews(goals []ledger.Goal) []map[string]any {
	out := make([]map[string]any, 0, len(goals))
	for _, g := range goals {
		out = append(out, map[string]any{
			"id":           g.ID,
			"note":         g.Note,
			"date_target":  g.TargetDate.Format(time.DateOnly),
			"money_target": g.TargetAmount,
		})
	}
	return out
}

func investmentViews(invs []ledger.Investment) []map[string]any {
	out := make([]map[string]any, 0, len(invs))
	for _, i := range invs {
		out = append(out, map[string]any{
			"id":         i.ID,
			"title":      i.Title,
			"amount":     i.Quantity,
			"price":      i.Price,
			"created_at": i.CreatedAt.Format(time.DateTime),
		})
	}
	return out
}
