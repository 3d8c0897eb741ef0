package main

import (
	"log/slog"
	"os"

	"github.com/pevans/papersync/config"
)

// newLogger builds the stderr logger at the configured level, or at debug
// when verbose is set.
func newLogger(cfg *config.FileConfig, verbose bool) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}
