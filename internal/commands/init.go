package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/everydev1618/fincoach/config"
)

func newInitCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file and ledger database",
		Long: `Create ~/.fincoach/config.yaml with default settings (unless it exists)
and the ledger schema (unless it exists). Safe to run more than once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if err := config.EnsureHome(); err != nil {
				return fmt.Errorf("create %s: %w", config.Home(), err)
			}

			path := flags.configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if err := config.Default().Save(path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %s\n", path)
			} else if err != nil {
				return fmt.Errorf("checking %s: %w", path, err)
			} else {
				fmt.Fprintf(out, "Config %s already exists\n", path)
			}

			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(out, "Ledger ready at %s\n", cfg.DBPath)
			if cfg.ModelAPIKey() == "" {
				fmt.Fprintf(out, "Set %s in your environment or a .env file before chatting.\n", cfg.ModelAPIKeyEnv())
			}
			return nil
		},
	}
}
