// Package commands implements the fincoach command line.
package commands

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/everydev1618/fincoach/config"
	"github.com/everydev1618/fincoach/errdefs"
	"github.com/everydev1618/fincoach/internal/buildinfo"
)

type globalFlags struct {
	configPath string
	verbose    bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "fincoach",
		Short:   "A financial assistant that tracks your money and advises on investments",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.fincoach/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newChatCommand(flags),
		newInitCommand(flags),
		newResetCommand(flags),
		newLedgerCommand(flags),
	)

	return rootCmd
}

// Exit codes reported by the fincoach binary.
const (
	ExitError   = 1
	ExitInvalid = 2
	ExitStore   = 3
)

// ExitCode maps a command error to the process exit status. Bad input and
// an unusable ledger get their own codes so scripts can tell them apart.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errdefs.IsValidation(err):
		return ExitInvalid
	case errdefs.IsStore(err):
		return ExitStore
	}
	return ExitError
}

// loadConfig reads the configuration and sets up logging from it.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel, f.verbose)
	return cfg, nil
}

func setupLogging(level string, verbose bool) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	log.SetLevel(lvl)
}
