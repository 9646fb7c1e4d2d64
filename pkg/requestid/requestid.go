package requestid

import (
	"context"

	"github.com/google/uuid"
)

const (
	// Header carries a per-request id on outgoing API calls.
	Header = "X-Request-Id"
	// RunHeader carries the id of the run a request belongs to.
	RunHeader = "X-Run-Id"
)

type contextKey string

const runIDKey contextKey = "run_id"

// Generate creates a new unique id.
func Generate() string {
	return uuid.New().String()
}

// WithRunID stores the run id in ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID returns the run id of ctx, or an empty string.
func RunID(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}
