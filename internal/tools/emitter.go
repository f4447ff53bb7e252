package tools

import (
	"context"
)

// emitterKey uses an empty struct for a zero-allocation context key.
type emitterKey struct{}

// ToolEventEmitter receives tool lifecycle events. The interface is
// minimal, only the tool name, so the CLI decides how to present
// activity.
//
// Usage:
//  1. The REPL creates an emitter bound to its output.
//  2. The REPL stores it in the context via ContextWithEmitter.
//  3. Wrapped tools retrieve it via EmitterFromContext and call
//     OnToolStart/Complete/Error around execution.
type ToolEventEmitter interface {
	// OnToolStart signals that a tool has started execution.
	OnToolStart(name string)

	// OnToolComplete signals that a tool completed successfully.
	OnToolComplete(name string)

	// OnToolError signals that a tool execution failed.
	OnToolError(name string)
}

// EmitterFromContext retrieves the ToolEventEmitter from the context.
// Returns nil when none is set; callers treat that as "no events".
func EmitterFromContext(ctx context.Context) ToolEventEmitter {
	emitter, _ := ctx.Value(emitterKey{}).(ToolEventEmitter)
	return emitter
}

// ContextWithEmitter stores a ToolEventEmitter in the context.
func ContextWithEmitter(ctx context.Context, emitter ToolEventEmitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, emitter)
}
