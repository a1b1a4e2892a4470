// Package progress carries an optional progress callback through a context
// so long-running operations can report what they are doing without
// knowing whether a terminal, an MCP client or nobody is listening.
package progress

import (
	"context"
	"fmt"
)

// Func receives progress messages.
type Func func(msg string)

type key struct{}

// With returns a context carrying fn.
func With(ctx context.Context, fn Func) context.Context {
	return context.WithValue(ctx, key{}, fn)
}

// Report calls the callback in ctx, if any.
func Report(ctx context.Context, msg string) {
	if fn, ok := ctx.Value(key{}).(Func); ok && fn != nil {
		fn(msg)
	}
}

// Reportf formats msg and reports it.
func Reportf(ctx context.Context, format string, args ...any) {
	if fn, ok := ctx.Value(key{}).(Func); ok && fn != nil {
		fn(fmt.Sprintf(format, args...))
	}
}
