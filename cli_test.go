package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raktchain/raktchain/ledger"
)

func mustRunCLI(t *testing.T, c *CLI, args ...string) {
	t.Helper()
	if err := c.Run(t.Context(), args); err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
}

func TestCLI_AddAndChain(t *testing.T) {
	l, _ := mustCreateTestLedger(t, 1)
	c, out := newTestCLI(t, l)

	mustRunCLI(t, c, "add", `{"donor":"Alice","recipient":"Bob","units":2,"verifiedBy":"Nurse Joy"}`)
	if !strings.Contains(out.String(), "Index:     1") {
		t.Fatalf("add output missing block index:\n%s", out.String())
	}

	out.Reset()
	c.in = strings.NewReader(`["a", "b"]`)
	mustRunCLI(t, c, "add", "-")

	out.Reset()
	mustRunCLI(t, c, "chain")
	chain, err := ledger.DecodeChain(out.Bytes())
	if err != nil {
		t.Fatalf("chain output is not a ledger document: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
}

func TestCLI_AddRejectsScalars(t *testing.T) {
	l, _ := mustCreateTestLedger(t, 1)
	c, _ := newTestCLI(t, l)

	err := c.Run(t.Context(), []string{"add", `"just a string"`})
	if !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := c.Run(t.Context(), []string{"add", `{"donor":`}); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if err := c.Run(t.Context(), []string{"add"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected errUsage, got %v", err)
	}
}

func TestCLI_VerifyLiveAndExportedFile(t *testing.T) {
	l, _ := mustCreateTestLedger(t, 1)
	c, out := newTestCLI(t, l)
	mustRunCLI(t, c, "add", `{"donor":"Alice","recipient":"Bob","units":2,"verifiedBy":"Nurse Joy"}`)

	out.Reset()
	mustRunCLI(t, c, "verify")
	if !strings.Contains(out.String(), "valid") || !strings.Contains(out.String(), "Blocks:     2") {
		t.Fatalf("unexpected verify output:\n%s", out.String())
	}

	exported := filepath.Join(t.TempDir(), "backup", "chain.json")
	out.Reset()
	mustRunCLI(t, c, "export", exported)
	if !strings.Contains(out.String(), "Exported 2 blocks") {
		t.Fatalf("unexpected export output:\n%s", out.String())
	}
	mustRunCLI(t, c, "verify", exported)

	raw, err := os.ReadFile(exported)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(raw), `"units": 2`, `"units": 50`, 1)
	if tampered == string(raw) {
		t.Fatalf("export did not contain units field:\n%s", raw)
	}
	if err := os.WriteFile(exported, []byte(tampered), 0o644); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	err = c.Run(t.Context(), []string{"verify", exported})
	if !errors.Is(err, errChainInvalid) {
		t.Fatalf("expected errChainInvalid, got %v", err)
	}
	if !strings.Contains(out.String(), "INVALID at block 1: hash mismatch") {
		t.Fatalf("unexpected verify output:\n%s", out.String())
	}

	// The live ledger is untouched by verifying a file.
	if v, err := l.VerifyChain(t.Context()); err != nil || !v.IsValid {
		t.Fatalf("live chain affected: %+v %v", v, err)
	}
}

func TestCLI_VerifyRejectsNonLedgerFile(t *testing.T) {
	l, _ := mustCreateTestLedger(t, 1)
	c, _ := newTestCLI(t, l)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := c.Run(t.Context(), []string{"verify", path})
	if err == nil || !strings.Contains(err.Error(), "is not a ledger file") {
		t.Fatalf("expected not-a-ledger error, got %v", err)
	}

	// A valid export with data appended is not a ledger file either.
	exported := filepath.Join(t.TempDir(), "chain.json")
	mustRunCLI(t, c, "export", exported)
	raw, err := os.ReadFile(exported)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(exported, append(raw, "\n}{ garbage"...), 0o644); err != nil {
		t.Fatal(err)
	}
	err = c.Run(t.Context(), []string{"verify", exported})
	if err == nil || !strings.Contains(err.Error(), "is not a ledger file") {
		t.Fatalf("expected not-a-ledger error for trailing data, got %v", err)
	}
}

func TestCLI_Summary(t *testing.T) {
	l, _ := mustCreateTestLedger(t, 1)
	c, out := newTestCLI(t, l)

	mustRunCLI(t, c, "summary")
	if !strings.Contains(out.String(), "none (genesis only)") {
		t.Fatalf("unexpected empty summary:\n%s", out.String())
	}

	mustRunCLI(t, c, "add", `{"donor":"Alice","recipient":"Bob","verifiedBy":"Nurse Joy"}`)
	out.Reset()
	mustRunCLI(t, c, "summary")
	chain, _ := l.GetChain(t.Context())
	if !strings.Contains(out.String(), chain[1].Hash) {
		t.Fatalf("summary missing newest hash:\n%s", out.String())
	}
}

func TestCLI_ResetRequiresConfirmation(t *testing.T) {
	l, _ := mustCreateTestLedger(t, 1)
	c, out := newTestCLI(t, l)
	mustRunCLI(t, c, "add", `{"donor":"Alice","recipient":"Bob","verifiedBy":"Nurse Joy"}`)

	err := c.Run(t.Context(), []string{"reset"})
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected refusal without --yes, got %v", err)
	}
	if chain, _ := l.GetChain(t.Context()); len(chain) != 2 {
		t.Fatalf("refused reset changed the chain: %d blocks", len(chain))
	}

	// Interactive and declined.
	c.interactive = true
	c.confirm = func(string) (bool, error) { return false, nil }
	mustRunCLI(t, c, "reset")
	if !strings.Contains(out.String(), "Cancelled") {
		t.Fatalf("expected cancellation:\n%s", out.String())
	}

	c.interactive = false
	c.cfg.Yes = true
	out.Reset()
	mustRunCLI(t, c, "reset")
	chain, _ := l.GetChain(t.Context())
	if len(chain) != 1 || !strings.Contains(out.String(), chain[0].Hash) {
		t.Fatalf("reset did not leave genesis only: %d blocks\n%s", len(chain), out.String())
	}
}

func TestCLI_HelpVersionAndUnknown(t *testing.T) {
	c, out := newTestCLI(t, nil)

	mustRunCLI(t, c, "version")
	if out.String() != "raktchain "+Version+"\n" {
		t.Fatalf("unexpected version output: %q", out.String())
	}

	out.Reset()
	mustRunCLI(t, c, "help", "record")
	if !strings.Contains(out.String(), "Help: add") || !strings.Contains(out.String(), "raktchain add -") {
		t.Fatalf("unexpected help output:\n%s", out.String())
	}

	out.Reset()
	mustRunCLI(t, c, "help", "bogus")
	if !strings.Contains(out.String(), "Unknown command: bogus") {
		t.Fatalf("unexpected help output:\n%s", out.String())
	}

	if err := c.Run(t.Context(), []string{"mine-forever"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected errUsage, got %v", err)
	}
	if err := c.Run(t.Context(), nil); !errors.Is(err, errUsage) {
		t.Fatalf("expected errUsage for no command, got %v", err)
	}
}
