package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"

	"github.com/raktchain/raktchain/ledger"
)

// cmdAdd mines a JSON object or array into a new block. "-" reads the
// payload from stdin.
func (c *CLI) cmdAdd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: add <json|->", errUsage)
	}

	raw := []byte(args[0])
	if args[0] == "-" {
		var err error
		if raw, err = io.ReadAll(c.in); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}

	done := c.spin(fmt.Sprintf("Mining block at difficulty %d...", c.ledger.Difficulty()))
	block, err := c.ledger.AddBlock(ctx, data)
	done(err)
	if err != nil {
		return err
	}

	stats := c.ledger.MinerStats()
	fmt.Fprintf(c.out, "\n%s\n", c.sectionHead("Block added"))
	fmt.Fprintf(c.out, "  Index:     %d\n", block.Index)
	fmt.Fprintf(c.out, "  Hash:      %s\n", block.Hash)
	fmt.Fprintf(c.out, "  Previous:  %s\n", block.PreviousHash)
	fmt.Fprintf(c.out, "  Nonce:     %d\n", block.Nonce)
	fmt.Fprintf(c.out, "  Timestamp: %s\n", block.Timestamp)
	fmt.Fprintf(c.out, "  Mined in:  %s\n", stats.LastDuration.Round(time.Microsecond))
	return nil
}

// cmdChain prints the whole chain in the persisted format.
func (c *CLI) cmdChain(ctx context.Context) error {
	chain, err := c.ledger.GetChain(ctx)
	if err != nil {
		return err
	}
	data, err := ledger.EncodeChain(chain)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s\n", data)
	return nil
}

// cmdVerify checks the live chain, or the chain stored in a file when one is
// named. The file is only read.
func (c *CLI) cmdVerify(ctx context.Context, args []string) error {
	var (
		v      ledger.Verification
		blocks int
		source string
	)

	switch len(args) {
	case 0:
		summary, err := c.ledger.Summary(ctx)
		if err != nil {
			return err
		}
		if v, err = c.ledger.VerifyChain(ctx); err != nil {
			return err
		}
		blocks = summary.TotalTransactions + 1
		source = c.ledger.Location()
	case 1:
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		chain, err := ledger.DecodeChain(raw)
		if err != nil {
			return fmt.Errorf("%s is not a ledger file: %w", args[0], err)
		}
		v = c.ledger.VerifyCandidate(chain)
		blocks = len(chain)
		source = args[0]
	default:
		return fmt.Errorf("%w: verify [file]", errUsage)
	}

	fmt.Fprintf(c.out, "\n%s\n", c.sectionHead("Verify"))
	fmt.Fprintf(c.out, "  Source:     %s\n", source)
	fmt.Fprintf(c.out, "  Blocks:     %d\n", blocks)
	fmt.Fprintf(c.out, "  Difficulty: %d\n", c.ledger.Difficulty())
	if v.IsValid {
		fmt.Fprintf(c.out, "  Result:     %s\n", pterm.LightGreen("valid"))
		return nil
	}
	fmt.Fprintf(c.out, "  Result:     %s at block %d: %s\n", pterm.LightRed("INVALID"), *v.InvalidIndex, v.Reason)
	return errChainInvalid
}

// cmdSummary prints the record count, difficulty and newest record.
func (c *CLI) cmdSummary(ctx context.Context) error {
	summary, err := c.ledger.Summary(ctx)
	if err != nil {
		return err
	}

	rows := pterm.TableData{
		{"Field", "Value"},
		{"Records", fmt.Sprint(summary.TotalTransactions)},
		{"Difficulty", fmt.Sprint(summary.Difficulty)},
		{"Store", c.cfg.Store + " " + c.ledger.Location()},
	}
	if last := summary.LastTransaction; last != nil {
		rows = append(rows,
			[]string{"Last index", fmt.Sprint(last.Index)},
			[]string{"Last hash", last.Hash},
			[]string{"Last timestamp", last.Timestamp},
		)
	} else {
		rows = append(rows, []string{"Last record", "none (genesis only)"})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "\n%s\n%s\n", c.sectionHead("Summary"), table)
	return nil
}

// cmdExport writes the chain to path in the persisted format, so it can be
// checked later with verify <file>.
func (c *CLI) cmdExport(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: export <file>", errUsage)
	}
	path := args[0]

	chain, err := c.ledger.GetChain(ctx)
	if err != nil {
		return err
	}
	data, err := ledger.EncodeChain(chain)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintln(c.out, pterm.Success.Sprintf("Exported %d blocks to %s", len(chain), path))
	return nil
}

// cmdReset discards every record. Without --yes it asks first, and refuses
// when there is no terminal to ask on.
func (c *CLI) cmdReset(ctx context.Context) error {
	if !c.cfg.Yes {
		if !c.interactive {
			return errors.New("refusing to reset without confirmation; rerun with --yes")
		}
		fmt.Fprintf(c.out, "\nWARNING: This will delete every record in %s\n", c.ledger.Location())
		fmt.Fprintln(c.out, "This action CANNOT be undone.")
		ok, err := c.confirm("Reset the ledger to its genesis block?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "Cancelled")
			return nil
		}
	}

	chain, err := c.ledger.ResetChain(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, pterm.Success.Sprintf("Ledger reset; genesis %s", chain[0].Hash))
	return nil
}

func (c *CLI) cmdVersion() {
	fmt.Fprintf(c.out, "raktchain %s\n", Version)
}

// cmdToken prints the API token of a running serve, for use in an
// Authorization: Bearer header.
func (c *CLI) cmdToken() error {
	token, err := readCookie(c.cfg.DataDir)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no API token in %s; is serve running?", c.cfg.DataDir)
	}
	if err != nil {
		return fmt.Errorf("failed to read API token: %w", err)
	}
	fmt.Fprintln(c.out, token)
	return nil
}
