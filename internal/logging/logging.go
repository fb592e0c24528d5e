// Package logging builds the structured logger the Facade installs: JSON
// records via the standard library's log/slog, rotated through
// gopkg.in/natefinch/lumberjack.v2 when a log file path is configured.
// Grounded on SPEC_FULL.md's ambient logging section — the teacher's own
// command files log with ad hoc fmt.Fprintf(os.Stderr, ...) and never
// exercise the lumberjack dependency it carries from non-test code, so
// this is the owner that dependency was missing.
package logging

import (
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/andromedus24/ledgerstore/internal/config"
)

// New builds a slog.Logger per cfg.LogLevel/LogFilePath/LogMaxSizeMB/
// LogMaxBackups. An empty LogFilePath logs to stderr.
func New(cfg *config.Config) *slog.Logger {
	var writer = os.Stderr
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	if cfg.LogFilePath == "" {
		return slog.New(slog.NewJSONHandler(writer, handlerOpts))
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(rotator, handlerOpts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
