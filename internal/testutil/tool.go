package testutil

import (
	"context"
	"sync"
)

// RecordingTool is a core.Tool that records the params of every call and
// returns a configurable result.
type RecordingTool struct {
	ToolName string
	Schema   map[string]any
	Result   string
	Err      error

	// Fn overrides Result/Err when set.
	Fn func(ctx context.Context, params map[string]any) (string, error)

	mu    sync.Mutex
	calls []map[string]any
}

// NewRecordingTool creates a tool named name returning result. The schema
// declares the given required string params.
func NewRecordingTool(name, result string, required ...string) *RecordingTool {
	props := make(map[string]any, len(required))
	for _, r := range required {
		props[r] = map[string]any{"type": "string"}
	}
	return &RecordingTool{
		ToolName: name,
		Result:   result,
		Schema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// Name implements core.Tool.
func (t *RecordingTool) Name() string { return t.ToolName }

// Description implements core.Tool.
func (t *RecordingTool) Description() string { return "test tool " + t.ToolName }

// Parameters implements core.Tool.
func (t *RecordingTool) Parameters() map[string]any { return t.Schema }

// Call implements core.Tool.
func (t *RecordingTool) Call(ctx context.Context, params map[string]any) (string, error) {
	t.mu.Lock()
	cp := make(map[string]any, len(params))
	for k, v := range params {
		cp[k] = v
	}
	t.calls = append(t.calls, cp)
	t.mu.Unlock()

	if t.Fn != nil {
		return t.Fn(ctx, params)
	}
	return t.Result, t.Err
}

// Calls returns the params of every call in order.
func (t *RecordingTool) Calls() []map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]map[string]any, len(t.calls))
	copy(out, t.calls)
	return out
}
