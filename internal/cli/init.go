// Package cli holds the process bootstrap shared by the conti commands.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"conti/internal/config"
	clog "conti/internal/log"
)

// SetupLogger builds the text logger and installs it as the slog default,
// so package-level slog calls share its level. One-shot commands log to
// stderr to keep stdout for their output.
func SetupLogger(level slog.Level, out io.Writer) *clog.Logger {
	logger := clog.New(clog.Config{Level: level, Component: clog.ComponentApp, Output: out})
	clog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadAndValidateConfig reads the environment and rejects invalid settings.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
