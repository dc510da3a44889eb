package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fincoach "github.com/everydev1618/fincoach"
	"github.com/everydev1618/fincoach/errdefs"
)

// execute runs the CLI against an isolated home directory.
func execute(t *testing.T, home string, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FINCOACH_HOME", home)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(home, "config.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInitIsIdempotent(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, home, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	assert.FileExists(t, filepath.Join(home, "config.yaml"))
	assert.FileExists(t, filepath.Join(home, "fincoach.db"))

	out, err = execute(t, home, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestInitCreatesHome(t *testing.T) {
	home := filepath.Join(t.TempDir(), "fincoach-home")
	t.Setenv("FINCOACH_HOME", home)
	t.Setenv("GOOGLE_API_KEY", "")

	cfgPath := filepath.Join(t.TempDir(), "elsewhere", "config.yaml")
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "init"})
	require.NoError(t, cmd.Execute())

	assert.DirExists(t, home)
	assert.FileExists(t, cfgPath)
}

func TestLedgerCommands(t *testing.T) {
	home := t.TempDir()

	_, err := execute(t, home, "", "ledger", "add-transaction", "--type", "income", "--amount", "100")
	require.NoError(t, err)
	_, err = execute(t, home, "", "ledger", "add-transaction", "--type", "income", "--amount", "200")
	require.NoError(t, err)
	out, err := execute(t, home, "", "ledger", "add-transaction", "--type", "expense", "--amount", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction added successfully")

	out, err = execute(t, home, "", "ledger", "list", "transactions")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "income")
	assert.Contains(t, out, "expense")
	assert.Contains(t, out, "200")

	out, err = execute(t, home, "", "ledger", "totals", "--from", "2000-01-01", "--to", "2999-12-31")
	require.NoError(t, err)
	assert.Contains(t, out, "$300.00")
	assert.Contains(t, out, "$50.00")

	_, err = execute(t, home, "", "ledger", "add-goal", "--note", "Buy car", "--date", "2026-01-01", "--target", "20000")
	require.NoError(t, err)
	out, err = execute(t, home, "", "ledger", "list", "goals")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy car")
	assert.Contains(t, out, "2026-01-01")

	out, err = execute(t, home, "", "ledger", "list", "investments")
	require.NoError(t, err)
	assert.Contains(t, out, "No records.")

	out, err = execute(t, home, "", "ledger", "export", "goals")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,note,date_target,money_target", lines[0])
	assert.Contains(t, lines[1], "Buy car")
	assert.Contains(t, lines[1], ",20000")
}

func TestLedgerCommandRejectsInvalidKind(t *testing.T) {
	home := t.TempDir()
	out, err := execute(t, home, "", "ledger", "add-transaction", "--type", "cash", "--amount", "10")
	require.Error(t, err)
	assert.Contains(t, out, "transaction_type")
	assert.Equal(t, ExitInvalid, ExitCode(err))

	_, err = execute(t, home, "", "ledger", "add-goal", "--note", "Trip", "--date", "next year", "--target", "100")
	require.Error(t, err)
	assert.Equal(t, ExitInvalid, ExitCode(err))

	_, err = execute(t, home, "", "ledger", "list", "budgets")
	assert.Error(t, err)
}

func TestResetCommand(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, home, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to reset")

	_, err = execute(t, home, "", "ledger", "add-goal", "--note", "Trip", "--date", "2027-05-01", "--target", "3000")
	require.NoError(t, err)

	out, err = execute(t, home, "n\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")

	out, err = execute(t, home, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Goals")
	assert.Contains(t, out, "Ledger cleared.")

	out, err = execute(t, home, "", "ledger", "list", "goals")
	require.NoError(t, err)
	assert.Contains(t, out, "No records.")
}

func TestChatRequiresModelKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GOOGLE_API_KEY", "")
	os.Unsetenv("GOOGLE_API_KEY")

	_, err := execute(t, home, "exit\n", "chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")
}

func TestRunChat(t *testing.T) {
	var seen []string
	handle := func(ctx context.Context, utterance string) (string, error) {
		seen = append(seen, utterance)
		if utterance == "advise me" {
			return "", &fincoach.StageError{Pipeline: "root", Stage: "root", Err: errors.New("boom")}
		}
		return "echo: " + utterance, nil
	}

	var out bytes.Buffer
	in := strings.NewReader("hello\n\nadvise me\nstill here?\nquit\nnever read\n")
	err := runChat(context.Background(), in, &out, handle, plainRender, "first words", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"first words", "hello", "advise me", "still here?"}, seen)
	text := out.String()
	assert.Contains(t, text, "Welcome to fincoach")
	assert.Contains(t, text, "echo: hello")
	assert.Contains(t, text, fincoach.FailureMessage)
	assert.Contains(t, text, "echo: still here?")
	assert.Contains(t, text, "Goodbye!")
	assert.NotContains(t, text, "boom")
}

func TestRunChatEOF(t *testing.T) {
	calls := 0
	handle := func(ctx context.Context, utterance string) (string, error) {
		calls++
		return "ok", nil
	}

	var out bytes.Buffer
	err := runChat(context.Background(), strings.NewReader("one"), &out, handle, plainRender, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunChatInterruptCancelsTurnOnly(t *testing.T) {
	interrupts := make(chan os.Signal, 1)
	var seen []string
	handle := func(ctx context.Context, utterance string) (string, error) {
		seen = append(seen, utterance)
		if utterance == "slow question" {
			interrupts <- os.Interrupt
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "echo: " + utterance, nil
	}

	var out bytes.Buffer
	in := strings.NewReader("slow question\nnext\nquit\n")
	err := runChat(context.Background(), in, &out, handle, plainRender, "", interrupts)
	require.NoError(t, err)

	assert.Equal(t, []string{"slow question", "next"}, seen)
	text := out.String()
	assert.Contains(t, text, "Interrupted.")
	assert.NotContains(t, text, fincoach.FailureMessage)
	assert.Contains(t, text, "echo: next")
	assert.Contains(t, text, "Goodbye!")
}

func TestRunChatInterruptAtPromptExits(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()

	interrupts := make(chan os.Signal, 1)
	interrupts <- os.Interrupt

	var out bytes.Buffer
	err := runChat(context.Background(), in, &out, func(ctx context.Context, utterance string) (string, error) {
		t.Fatalf("unexpected turn %q", utterance)
		return "", nil
	}, plainRender, "", interrupts)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "> ")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, ExitError, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitInvalid, ExitCode(fmt.Errorf("wrapped: %w", errdefs.Invalid("amount", "is required"))))
	assert.Equal(t, ExitStore, ExitCode(&errdefs.StoreError{Op: "open", Err: errors.New("disk full")}))
}
