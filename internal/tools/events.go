package tools

import (
	"github.com/firebase/genkit/go/ai"
)

// WithEvents wraps a typed tool handler to emit lifecycle events.
//
// The wrapper retrieves the emitter from the context (nil for
// non-streaming calls), emits OnToolStart before the handler runs, and
// OnToolComplete or OnToolError after. Without an emitter it passes
// straight through to the handler.
func WithEvents[In, Out any](name string, fn func(*ai.ToolContext, In) (Out, error)) func(*ai.ToolContext, In) (Out, error) {
	return func(ctx *ai.ToolContext, input In) (Out, error) {
		emitter := EmitterFromContext(ctx.Context)

		if emitter != nil {
			emitter.OnToolStart(name)
		}

		result, err := fn(ctx, input)

		if emitter != nil {
			if err != nil {
				emitter.OnToolError(name)
			} else {
				emitter.OnToolComplete(name)
			}
		}

		return result, err
	}
}
