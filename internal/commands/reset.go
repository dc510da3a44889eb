package commands

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newResetCommand(flags *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every transaction, goal and investment",
		Long: `Reset fincoach to a fresh state by recreating the ledger schema.

This will delete:
  - All transactions
  - All goals
  - All investments`,
		Example: `  fincoach reset
  fincoach reset --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			txs, err := store.ListTransactions(ctx)
			if err != nil {
				return err
			}
			goals, err := store.ListGoals(ctx)
			if err != nil {
				return err
			}
			invs, err := store.ListInvestments(ctx)
			if err != nil {
				return err
			}

			counts := []struct {
				label string
				n     int
			}{
				{"Transactions", len(txs)},
				{"Goals", len(goals)},
				{"Investments", len(invs)},
			}

			total := 0
			fmt.Fprintln(out, "The following data will be deleted:")
			fmt.Fprintln(out)
			for _, c := range counts {
				total += c.n
				if c.n > 0 {
					fmt.Fprintf(out, "  %-14s %d records\n", c.label, c.n)
				}
			}
			dbAbs, _ := filepath.Abs(cfg.DBPath)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Database: %s\n", dbAbs)
			fmt.Fprintln(out)

			if total == 0 {
				fmt.Fprintln(out, "Nothing to reset, already clean.")
				return nil
			}

			if !yes {
				fmt.Fprint(out, "Are you sure you want to delete all of the above? [y/N] ")
				scanner := bufio.NewScanner(cmd.InOrStdin())
				scanner.Scan()
				answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
				if answer != "y" && answer != "yes" {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
				fmt.Fprintln(out)
			}

			if err := store.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Ledger cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "skip confirmation prompt")
	return cmd
}
