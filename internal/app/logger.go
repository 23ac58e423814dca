package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger: JSON in production, text elsewhere.
func NewLogger(env string) *slog.Logger {
	if env == "production" || env == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
