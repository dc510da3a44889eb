package main

import (
	"os"

	"github.com/everydev1618/fincoach/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
