// Package logging builds the structured slog.Logger used across the
// market-maker, rotating file output through lumberjack the same way the
// teacher's application logger does.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger's level, destination, and rotation.
type Options struct {
	Level      string // debug, info, warn, error
	Dir        string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Stdout additionally mirrors output to stdout; disable for quieter
	// supervised/daemonized runs.
	Stdout bool
}

// DefaultOptions matches the teacher's rotation tuning: 10MB files, 3
// backups, 28 day retention, compressed.
func DefaultOptions() Options {
	return Options{
		Level:      "info",
		Dir:        "logs",
		FileName:   "marketmaker.log",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
		Stdout:     true,
	}
}

// New builds a JSON slog.Logger writing to a rotated file (and optionally
// stdout). Falls back to stderr-only if the log directory can't be created.
func New(opts Options) *slog.Logger {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, opts.FileName),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}

	var writer io.Writer = fileLogger
	if opts.Stdout {
		writer = io.MultiWriter(os.Stdout, fileLogger)
	}

	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	return slog.New(slog.NewJSONHandler(writer, handlerOpts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
