package main

import (
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/partygames/bingo/internal/server"
)

// setupLogger configures structured console logging. The debug flag wins over
// the configured level.
func setupLogger(level string, debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	if debug {
		logger.SetLevel(log.DebugLevel)
		return logger
	}

	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}

func tokenTTL(cfg *server.ServerConfig) time.Duration {
	return time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
}
