package tool

import (
	"context"
	"errors"

	"github.com/hupe1980/sovereign/internal/util"
)

// FunctionTool exposes a plain Go function as a Tool.
//
// Call validates params against the declared schema before invoking the
// function. Errors are normalized to *ToolError:
//
//	*ToolError (returned directly)  -> forwarded unchanged
//	validation failure              -> *ToolError{Code: "VALIDATION_ERROR"}
//	other error                     -> *ToolError{Code: "EXECUTION_ERROR"}
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, params map[string]any) (string, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	echo := NewFunctionTool(
//	  "echo",
//	  "Echo the given text",
//	  map[string]any{
//	    "type":       "object",
//	    "properties": map[string]any{"text": map[string]any{"type": "string"}},
//	    "required":   []string{"text"},
//	  },
//	  func(ctx context.Context, p map[string]any) (string, error) {
//	    return p["text"].(string), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, params map[string]any) (string, error),
) *FunctionTool {
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection (see util.CreateSchema).
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, params map[string]any) (string, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the description exposed to the reasoner.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected params.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates params and invokes the underlying function.
func (t *FunctionTool) Call(ctx context.Context, params map[string]any) (string, error) {
	if err := util.ValidateParameters(params, t.parameters); err != nil {
		return "", &ToolError{
			Tool:    t.name,
			Message: "parameter validation failed: " + err.Error(),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(ctx, params)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return "", toolErr
		}
		return "", &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecution}
	}
	return result, nil
}
