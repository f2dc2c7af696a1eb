package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/raktchain/raktchain/ledger"
	"github.com/raktchain/raktchain/protocol/params"
)

// Config holds everything the binary reads from flags and the environment.
type Config struct {
	DataDir    string
	LedgerPath string
	Store      string // file|bolt
	Difficulty int
	Hash       string // sha256|sha3-256
	APIAddr    string
	LogLevel   string // debug|info|warn|error
	LogFormat  string // pretty|json
	NoColor    bool
	Yes        bool
}

// parseConfig parses args. Every flag falls back to an environment variable
// and then to a built-in default. The remaining positional arguments are
// returned for command dispatch.
func parseConfig(args []string, output io.Writer) (Config, []string, error) {
	fs := flag.NewFlagSet("raktchain", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usageText)
		fmt.Fprintln(output, "\nFlags:")
		fs.PrintDefaults()
	}

	var (
		dataDir    = fs.String("data", envOr("RAKTCHAIN_DATA_DIR", DefaultDataDir), "Data directory")
		ledgerPath = fs.String("ledger", envOr("BLOCKCHAIN_LEDGER_PATH", ""), "Ledger file path (default <data>/"+params.DefaultLedgerFilename+")")
		store      = fs.String("store", envOr("RAKTCHAIN_STORE", DefaultStore), "Storage backend: file|bolt")
		difficulty = fs.Int("difficulty", envOrPositiveInt("BLOCKCHAIN_DIFFICULTY", params.DefaultDifficulty), "Leading zero hex characters required in block hashes")
		hash       = fs.String("hash", envOr("RAKTCHAIN_HASH", DefaultHash), "Block hash algorithm: sha256|sha3-256")
		apiAddr    = fs.String("api", envOr("RAKTCHAIN_API_ADDR", DefaultAPIAddr), "API listen address for serve")
		logLevel   = fs.String("log-level", envOr("RAKTCHAIN_LOG_LEVEL", DefaultLogLevel), "Log level: debug|info|warn|error")
		logFormat  = fs.String("log-format", envOr("RAKTCHAIN_LOG_FORMAT", DefaultLogFormat), "Log format: pretty|json")
		noColor    = fs.Bool("nocolor", os.Getenv("NO_COLOR") != "", "Disable colored output")
		yes        = fs.Bool("yes", false, "Skip confirmation prompts")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	cfg := Config{
		DataDir:    strings.TrimSpace(*dataDir),
		LedgerPath: strings.TrimSpace(*ledgerPath),
		Store:      strings.ToLower(strings.TrimSpace(*store)),
		Difficulty: *difficulty,
		Hash:       strings.ToLower(strings.TrimSpace(*hash)),
		APIAddr:    strings.TrimSpace(*apiAddr),
		LogLevel:   strings.ToLower(strings.TrimSpace(*logLevel)),
		LogFormat:  strings.ToLower(strings.TrimSpace(*logFormat)),
		NoColor:    *noColor,
		Yes:        *yes,
	}

	if cfg.LedgerPath == "" && cfg.DataDir != "" {
		name := params.DefaultLedgerFilename
		if cfg.Store == ledger.BackendBolt {
			name = params.DefaultBoltFilename
		}
		cfg.LedgerPath = filepath.Join(cfg.DataDir, name)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, fs.Args(), nil
}

func (c Config) validate() error {
	if c.DataDir == "" {
		return errors.New("data directory must not be empty")
	}
	if c.LedgerPath == "" {
		return errors.New("ledger path must not be empty")
	}
	switch c.Store {
	case ledger.BackendFile, ledger.BackendBolt:
	default:
		return fmt.Errorf("unknown store %q (want file or bolt)", c.Store)
	}
	if _, err := ledger.ParseHasher(c.Hash); err != nil {
		return fmt.Errorf("unknown hash %q (want sha256 or sha3-256)", c.Hash)
	}
	if c.Difficulty > params.MaxDifficulty {
		return fmt.Errorf("difficulty %d exceeds maximum %d", c.Difficulty, params.MaxDifficulty)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "pretty", "json":
	default:
		return fmt.Errorf("unknown log format %q (want pretty or json)", c.LogFormat)
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envOrPositiveInt treats unset, non-numeric and non-positive values as def.
func envOrPositiveInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
