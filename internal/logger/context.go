package logger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds session-scoped logging context: one decode or
// encode session over a capture or connection.
type LogContext struct {
	SessionID string    // Unique id for this codec session
	Source    string    // Capture path or peer address
	StartTime time.Time // For duration calculation
}

// NewLogContext creates a LogContext for a session over source with a
// fresh session id.
func NewLogContext(source string) *LogContext {
	return &LogContext{
		SessionID: uuid.NewString(),
		Source:    source,
		StartTime: time.Now(),
	}
}

// WithContext returns a new context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}

// appendContextFields appends the session fields from ctx to args.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}
	if lc.SessionID != "" {
		args = append(args, KeySessionID, lc.SessionID)
	}
	if lc.Source != "" {
		args = append(args, KeySource, lc.Source)
	}
	return args
}
