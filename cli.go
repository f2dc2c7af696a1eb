package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/raktchain/raktchain/ledger"
)

var (
	errUsage        = errors.New("usage")
	errChainInvalid = errors.New("chain failed verification")
)

// CLI runs one command against a ledger.
type CLI struct {
	cfg         Config
	ledger      *ledger.Ledger
	log         *slog.Logger
	out         io.Writer
	in          io.Reader
	interactive bool // stdin and stdout are terminals

	// confirm asks a yes/no question; replaced in tests.
	confirm func(prompt string) (bool, error)
}

// NewCLI creates a CLI writing to stdout and reading from stdin.
func NewCLI(cfg Config, l *ledger.Ledger, logger *slog.Logger) *CLI {
	return &CLI{
		cfg:         cfg,
		ledger:      l,
		log:         logger,
		out:         os.Stdout,
		in:          os.Stdin,
		interactive: isTerminal(os.Stdin) && isTerminal(os.Stdout),
		confirm:     promptConfirm,
	}
}

// Run executes the command named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "serve":
		return c.cmdServe(ctx)
	case "add":
		return c.cmdAdd(ctx, rest)
	case "chain":
		return c.cmdChain(ctx)
	case "verify":
		return c.cmdVerify(ctx, rest)
	case "summary":
		return c.cmdSummary(ctx)
	case "export":
		return c.cmdExport(ctx, rest)
	case "reset":
		return c.cmdReset(ctx)
	case "token":
		return c.cmdToken()
	case "version":
		c.cmdVersion()
		return nil
	case "help":
		c.cmdHelp(rest)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (c *CLI) sectionHead(title string) string {
	return pterm.LightGreen("# " + title)
}

// spin shows a spinner while a long operation runs on a terminal. The
// returned func stops it, reporting err if non-nil.
func (c *CLI) spin(text string) func(err error) {
	if !c.interactive {
		return func(error) {}
	}
	spinner, err := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start(text)
	if err != nil {
		return func(error) {}
	}
	return func(err error) {
		if err != nil {
			spinner.Fail(err.Error())
			return
		}
		spinner.Stop()
	}
}

func promptConfirm(prompt string) (bool, error) {
	return pterm.DefaultInteractiveConfirm.
		WithDefaultText(prompt).
		WithDefaultValue(false).
		Show()
}
