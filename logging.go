package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// newLogger builds the process logger. "pretty" renders through pterm for
// people at a terminal; "json" emits one object per line for collectors.
func newLogger(cfg Config, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	logger := pterm.DefaultLogger.WithWriter(w).WithLevel(ptermLevel(level))
	return slog.New(pterm.NewSlogHandler(logger))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}

// configureColor turns off pterm styling when asked to, or when stdout is
// not a terminal.
func configureColor(noColor bool) {
	if noColor || !isTerminal(os.Stdout) {
		pterm.DisableStyling()
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
