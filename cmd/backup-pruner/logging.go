package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

func setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", cfg.LogLevel)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "pretty":
		handler = log.NewWithOptions(os.Stderr, log.Options{
			Level:           log.Level(level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		})
	default:
		return fmt.Errorf("invalid log format %q (expected text, json or pretty)", cfg.LogFormat)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
