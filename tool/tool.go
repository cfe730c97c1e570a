// Package tool implements the capability subsystem: a registry mapping stable
// action names (and name families such as pc_control_*) to tools, and a
// dispatcher that resolves parameters, invokes a tool under a bounded wait and
// converts every outcome into a core.Observation.
package tool

import (
	"fmt"

	"github.com/hupe1980/sovereign/core"
	"github.com/hupe1980/sovereign/internal/util"
)

// Tool is the capability contract consumed by the dispatcher.
type Tool = core.Tool

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeTimeout    = "TIMEOUT"
	CodePanic      = "PANIC"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Definition describes a tool for prompt rendering.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Signature renders the definition as name(param, ...).
func (d Definition) Signature() string {
	props, _ := d.Parameters["properties"].(map[string]any)
	names := append([]string(nil), util.RequiredFields(d.Parameters)...)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range sortedKeys(props) {
		if !seen[n] {
			names = append(names, n)
		}
	}
	sig := d.Name + "("
	for i, n := range names {
		if i > 0 {
			sig += ", "
		}
		sig += n
	}
	return sig + ")"
}
