package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/everydev1618/fincoach/advisor"
)

func newLedgerCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Record and list transactions, goals and investments",
	}

	// run executes one ledger tool and prints its data.
	run := func(cmd *cobra.Command, tool string, args map[string]any, print func(io.Writer, any)) error {
		cfg, err := flags.loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		reg, err := advisor.NewLedgerRegistry(store)
		if err != nil {
			return err
		}
		res := reg.Execute(cmd.Context(), tool, args)
		if !res.OK() {
			if res.Err != nil {
				return res.Err
			}
			return errors.New(res.Message)
		}
		print(cmd.OutOrStdout(), res.Data)
		return nil
	}

	var (
		kind   string
		amount float64
	)
	addTx := &cobra.Command{
		Use:   "add-transaction",
		Short: "Record an income or expense",
		Example: `  fincoach ledger add-transaction --type income --amount 2500
  fincoach ledger add-transaction --type expense --amount 42.50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, advisor.ToolAddTransaction, map[string]any{
				"transaction_type":   kind,
				"transaction_amount": amount,
			}, printCreated)
		},
	}
	addTx.Flags().StringVar(&kind, "type", "", "income or expense (required)")
	addTx.Flags().Float64Var(&amount, "amount", 0, "amount (required)")
	_ = addTx.MarkFlagRequired("type")
	_ = addTx.MarkFlagRequired("amount")

	var (
		note       string
		targetDate string
		target     int64
	)
	addGoal := &cobra.Command{
		Use:     "add-goal",
		Short:   "Record a savings goal",
		Example: `  fincoach ledger add-goal --note "Buy car" --date 2026-01-01 --target 20000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, advisor.ToolAddGoal, map[string]any{
				"note":         note,
				"date_target":  targetDate,
				"money_target": target,
			}, printCreated)
		},
	}
	addGoal.Flags().StringVar(&note, "note", "", "what the goal is for (required)")
	addGoal.Flags().StringVar(&targetDate, "date", "", "target date, YYYY-MM-DD (required)")
	addGoal.Flags().Int64Var(&target, "target", 0, "target amount (required)")
	_ = addGoal.MarkFlagRequired("note")
	_ = addGoal.MarkFlagRequired("date")
	_ = addGoal.MarkFlagRequired("target")

	var (
		title    string
		quantity float64
		price    float64
	)
	addInv := &cobra.Command{
		Use:     "add-investment",
		Short:   "Record an asset purchase",
		Example: `  fincoach ledger add-investment --title BTC --quantity 0.05 --price 64000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, advisor.ToolAddInvestment, map[string]any{
				"title":  title,
				"amount": quantity,
				"price":  price,
			}, printCreated)
		},
	}
	addInv.Flags().StringVar(&title, "title", "", "asset name or symbol (required)")
	addInv.Flags().Float64Var(&quantity, "quantity", 0, "quantity bought (required)")
	addInv.Flags().Float64Var(&price, "price", 0, "price per unit (required)")
	_ = addInv.MarkFlagRequired("title")
	_ = addInv.MarkFlagRequired("quantity")
	_ = addInv.MarkFlagRequired("price")

	listTools := map[string]string{
		"transactions": advisor.ToolListTransactions,
		"goals":        advisor.ToolListGoals,
		"investments":  advisor.ToolListInvestments,
	}
	list := &cobra.Command{
		Use:       "list <transactions|goals|investments>",
		Short:     "List records",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"transactions", "goals", "investments"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, listTools[args[0]], nil, printRows(listColumns[args[0]]))
		},
	}

	var from, to string
	totals := &cobra.Command{
		Use:     "totals",
		Short:   "Sum income and expenses between two dates, inclusive",
		Example: `  fincoach ledger totals --from 2025-01-01 --to 2025-01-31`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, advisor.ToolTransactionTotals, map[string]any{
				"start_date": from,
				"end_date":   to,
			}, printTotals)
		},
	}
	totals.Flags().StringVar(&from, "from", "", "start date, YYYY-MM-DD (required)")
	totals.Flags().StringVar(&to, "to", "", "end date, YYYY-MM-DD (required)")
	_ = totals.MarkFlagRequired("from")
	_ = totals.MarkFlagRequired("to")

	export := &cobra.Command{
		Use:       "export <transactions|goals|investments>",
		Short:     "Write records as CSV to stdout",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"transactions", "goals", "investments"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var records any
			switch args[0] {
			case "transactions":
				records, err = store.ListTransactions(ctx)
			case "goals":
				records, err = store.ListGoals(ctx)
			case "investments":
				records, err = store.ListInvestments(ctx)
			}
			if err != nil {
				return err
			}
			return gocsv.Marshal(records, cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(addTx, addGoal, addInv, list, totals, export)
	return cmd
}

var listColumns = map[string][]string{
	"transactions": {"id", "type", "amount", "created_at"},
	"goals":        {"id", "note", "date_target", "money_target"},
	"investments":  {"id", "title", "amount", "price", "created_at"},
}

func printCreated(w io.Writer, data any) {
	m, _ := data.(map[string]any)
	fmt.Fprintf(w, "%v (id %v)\n", m["message"], m["id"])
}

func printRows(columns []string) func(io.Writer, any) {
	return func(w io.Writer, data any) {
		rows, _ := data.([]map[string]any)
		if len(rows) == 0 {
			fmt.Fprintln(w, "No records.")
			return
		}
		table := tablewriter.NewWriter(w)
		table.SetHeader(columns)
		for _, row := range rows {
			cells := make([]string, len(columns))
			for i, c := range columns {
				cells[i] = fmt.Sprint(row[c])
			}
			table.Append(cells)
		}
		table.Render()
	}
}

func printTotals(w io.Writer, data any) {
	totals, _ := data.(map[string]float64)
	kinds := make([]string, 0, len(totals))
	for k := range totals {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"type", "total"})
	for _, k := range kinds {
		table.Append([]string{k, money.NewFromFloat(totals[k], money.USD).Display()})
	}
	table.Render()
}
