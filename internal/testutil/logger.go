package testutil

import (
	"log/slog"
)

// DiscardLogger returns a slog.Logger that drops all output, keeping
// test logs readable. log.NewNop returns the same thing; prefer that
// when the internal/log package is already imported.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
