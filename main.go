package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/raktchain/raktchain/ledger"
)

const Version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, rest, err := parseConfig(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	configureColor(cfg.NoColor)
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch rest[0] {
	case "version", "help", "token":
		// No ledger needed.
		if err := NewCLI(cfg, nil, logger).Run(ctx, rest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	l, err := openLedger(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer l.Close()

	cli := NewCLI(cfg, l, logger)
	if err := cli.Run(ctx, rest); err != nil {
		switch {
		case errors.Is(err, errUsage):
			fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", err, usageText)
			return 2
		case errors.Is(err, errChainInvalid):
			return 1
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

// openLedger opens the configured store and wraps it in a ledger. Nothing is
// read until the first command touches the chain.
func openLedger(cfg Config, logger *slog.Logger) (*ledger.Ledger, error) {
	hasher, err := ledger.ParseHasher(cfg.Hash)
	if err != nil {
		return nil, err
	}
	store, err := ledger.OpenStore(cfg.Store, cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	l, err := ledger.New(ledger.Config{
		Store:      store,
		Difficulty: cfg.Difficulty,
		Hasher:     hasher,
		Logger:     logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return l, nil
}
