package platform

import (
	"context"
	"fmt"
)

// ProgressFunc receives human-readable progress lines from long checks.
type ProgressFunc func(msg string)

type progressKey struct{}

// WithProgress returns a context carrying the given progress callback.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress formats a message and hands it to the callback in ctx.
// Without a callback (MCP, batch runs) it does nothing.
func ReportProgress(ctx context.Context, format string, args ...any) {
	fn, ok := ctx.Value(progressKey{}).(ProgressFunc)
	if !ok || fn == nil {
		return
	}
	fn(fmt.Sprintf(format, args...))
}
