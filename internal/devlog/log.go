// Package devlog centralizes the slog setup supergraph-dev uses for every
// core component, mirroring the teacher's gateway/server startup
// (server/gateway.go:Run: slog.New(slog.NewJSONHandler(os.Stdout, nil));
// slog.SetDefault(logger)).
package devlog

import (
	"log/slog"
	"os"
)

// Setup installs the process-wide default logger. json selects a
// slog.JSONHandler (for headless/CI use); otherwise a slog.TextHandler is
// used, which reads better in an interactive terminal session.
func Setup(json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
