// Package logging defines the minimal structured-logging interface used
// across the service. The variadic args are key/value pairs.
package logging

import "context"

// Logger is a context-aware, structured logger.
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key/value pairs.
	With(args ...any) Logger
}
