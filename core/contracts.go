package core

import "context"

// Reasoner is the external text-completion provider. Implementations block
// until a completion is available and may fail; callers isolate failures.
type Reasoner interface {
	Complete(ctx context.Context, systemPrompt, history string) (string, error)
}

// ReasonerFunc adapts a plain function to the Reasoner interface.
type ReasonerFunc func(ctx context.Context, systemPrompt, history string) (string, error)

// Complete implements Reasoner.
func (f ReasonerFunc) Complete(ctx context.Context, systemPrompt, history string) (string, error) {
	return f(ctx, systemPrompt, history)
}

// Tool is a capability exposed to the agent through a uniform invoke contract.
//
// Implementations should:
//   - Provide a stable snake_case name
//   - Describe parameters with a minimal JSON schema (type, properties, required, default)
//   - Return errors instead of panicking; the dispatcher converts them to observations
//   - Respect ctx for any host I/O
type Tool interface {
	// Name returns the unique identifier used in action expressions.
	Name() string
	// Description is rendered into the system prompt.
	Description() string
	// Parameters returns a JSON schema describing accepted params.
	Parameters() map[string]any
	// Call executes the tool with resolved params.
	Call(ctx context.Context, params map[string]any) (string, error)
}
