package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/asaskevich/EventBus"
	"github.com/charmbracelet/glamour"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	fincoach "github.com/everydev1618/fincoach"
	"github.com/everydev1618/fincoach/advisor"
)

const banner = `Welcome to fincoach. Tell me about your income, spending and goals,
or ask for investment advice. Type "exit" or "quit" to leave.`

// turnHandler answers one utterance.
type turnHandler func(ctx context.Context, utterance string) (string, error)

func newChatCommand(flags *globalFlags) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Talk to the financial assistant",
		Long: `Start an interactive conversation with the assistant.

If a message is given it is sent as the first turn.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			interrupts := make(chan os.Signal, 1)
			signal.Notify(interrupts, os.Interrupt)
			defer signal.Stop(interrupts)

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			model, err := newModel(ctx, cfg)
			if err != nil {
				return err
			}

			bus := EventBus.New()
			errOut := cmd.ErrOrStderr()
			if err := bus.Subscribe(fincoach.TopicStageStarted, func(ev fincoach.Event) {
				if ev.Pipeline != "root" {
					fmt.Fprintf(errOut, "  ... %s\n", ev.Stage)
				}
			}); err != nil {
				return err
			}
			for _, topic := range fincoach.Topics() {
				if err := bus.Subscribe(topic, logEvent); err != nil {
					return err
				}
			}

			router, err := advisor.NewRouter(advisor.Deps{
				Ledger:        store,
				Market:        newMarket(cfg),
				Model:         model,
				MaxIterations: cfg.MaxIterations,
				Bus:           bus,
			})
			if err != nil {
				return err
			}

			render := plainRender
			if !plain {
				if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80)); err == nil {
					render = r.Render
				}
			}

			return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), router.Handle, render, strings.Join(args, " "), interrupts)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print answers without markdown rendering")
	return cmd
}

func plainRender(s string) (string, error) {
	return s + "\n", nil
}

func logEvent(ev fincoach.Event) {
	entry := log.WithFields(log.Fields{
		"topic":    ev.Topic,
		"run_id":   ev.RunID,
		"pipeline": ev.Pipeline,
	})
	if ev.Stage != "" {
		entry = entry.WithField("stage", ev.Stage)
	}
	if ev.Error != "" {
		entry = entry.WithField("error", ev.Error)
	}
	entry.Debug("pipeline event")
}

// runChat runs the read-answer loop until exit, quit, EOF, an interrupt at
// the prompt, or ctx is done. An interrupt during a turn cancels that turn
// only. A failed turn prints a generic message and the loop continues.
func runChat(ctx context.Context, in io.Reader, out io.Writer, handle turnHandler, render func(string) (string, error), first string, interrupts <-chan os.Signal) error {
	fmt.Fprintln(out, banner)
	fmt.Fprintln(out)

	turn := func(utterance string) {
		turnCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			select {
			case <-interrupts:
				cancel()
			case <-done:
			}
		}()
		answer, err := handle(turnCtx, utterance)
		close(done)
		interrupted := turnCtx.Err() != nil && ctx.Err() == nil
		cancel()

		if err != nil {
			switch {
			case interrupted:
				fmt.Fprintln(out, "Interrupted.")
				fmt.Fprintln(out)
			case errors.Is(err, context.Canceled):
			default:
				log.WithError(err).Error("turn failed")
				fmt.Fprintln(out, fincoach.FailureMessage)
				fmt.Fprintln(out)
			}
			return
		}
		if answer == "" {
			return
		}
		rendered, err := render(answer)
		if err != nil {
			rendered = answer + "\n"
		}
		fmt.Fprint(out, rendered)
		fmt.Fprintln(out)
	}

	if strings.TrimSpace(first) != "" {
		turn(first)
	}

	var scanErr error
	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		scanErr = scanner.Err()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")

		var (
			line string
			ok   bool
		)
		select {
		case line, ok = <-lines:
		case <-interrupts:
			fmt.Fprintln(out)
			return nil
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		}
		if !ok {
			fmt.Fprintln(out)
			return scanErr
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		turn(line)
	}
}
