// Package logging defines the structured logger used across the service.
// The variadic args are key-value pairs, e.g.:
//
//	log.Info(ctx, "visitor checked in", "visitor_id", id, "society_id", sid)
package logging

import "context"

type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
