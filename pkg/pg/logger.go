package pg

import "context"

// logger is the subset of slog this package needs. Migrate routes goose
// output through it instead of writing to stdout.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
