// Package logging provides structured logging configuration for imposd.
//
// This package wraps log/slog to provide consistent logging across all
// imposd components. It supports configurable log levels and output formats,
// and can retain recent records in memory for the admin API's GET /logs.
//
// # Usage
//
// Create a logger with desired configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("imposter started", "protocol", "http", "port", 4545)
//	logger.Error("proxy call failed", "error", err)
//
// # Integration
//
// Components accept a *slog.Logger in their constructor or via a functional
// option. If no logger is provided, they fall back to logging.Nop().
package logging
