package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hupe1980/sovereign/core"
	"github.com/hupe1980/sovereign/internal/util"
	"github.com/hupe1980/sovereign/logging"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 30 * time.Second

// DispatchOptions configures a Dispatcher.
type DispatchOptions struct {
	// Strict rejects actions with missing required params instead of
	// filling defaults.
	Strict bool
	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	Logger  logging.Logger
}

// Dispatcher validates and invokes actions against a Registry.
//
// Dispatch never returns an error and never panics: unknown names,
// parameter problems, tool errors, panics and timeouts all become
// observations with IsError set.
type Dispatcher struct {
	registry *Registry
	opts     DispatchOptions
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, optFns ...func(o *DispatchOptions)) *Dispatcher {
	opts := DispatchOptions{Timeout: DefaultTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Dispatcher{registry: registry, opts: opts}
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch executes action and reports the outcome as an Observation.
func (d *Dispatcher) Dispatch(ctx context.Context, action core.Action) core.Observation {
	logger := d.opts.Logger

	t, ok := d.registry.Lookup(action.Name)
	if !ok {
		logger.Warn("tool.call.unknown", "tool", action.Name)
		return core.NewErrorObservation(action, d.unknownMessage(action.Name), false)
	}

	schema := t.Parameters()
	params, err := util.ResolveParameters(aliasPositional(action.Params, schema), schema, d.opts.Strict)
	if err != nil {
		logger.Warn("tool.call.validation_failed", "tool", action.Name, "error", err.Error())
		return core.NewErrorObservation(action, errorText(action.Name, &ToolError{
			Tool: action.Name, Message: err.Error(), Code: CodeValidation, Details: err,
		}), false)
	}

	logger.Debug("tool.call.start", "tool", action.Name)
	start := time.Now()
	out, err := d.invoke(ctx, t, params)
	logging.LogToolCall(logger, action.Name, time.Since(start), err)

	var obs core.Observation
	if err != nil {
		obs = core.NewErrorObservation(action, errorText(action.Name, err), true)
	} else {
		obs = core.NewObservation(action, out)
	}
	obs.Params = params
	return obs
}

type outcome struct {
	out string
	err error
}

// invoke runs the tool on its own goroutine so that a bounded wait can be
// applied even when the tool ignores ctx.
func (d *Dispatcher) invoke(ctx context.Context, t Tool, params map[string]any) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.opts.Logger.Error("tool.call.panic", "tool", t.Name(), "recover", r, "stack", string(debug.Stack()))
				done <- outcome{err: &ToolError{Tool: t.Name(), Message: fmt.Sprintf("panic: %v", r), Code: CodePanic}}
			}
		}()
		out, err := t.Call(callCtx, params)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", &ToolError{Tool: t.Name(), Message: fmt.Sprintf("timed out after %s", d.opts.Timeout), Code: CodeTimeout}
		}
		return "", &ToolError{Tool: t.Name(), Message: callCtx.Err().Error(), Code: CodeExecution}
	}
}

func (d *Dispatcher) unknownMessage(name string) string {
	msg := "unknown action: " + name
	if f, ok := d.registry.FamilyFor(name); ok {
		msg += fmt.Sprintf(" (%s supports: %s)", f.Name(), strings.Join(f.Operations(), ", "))
	}
	return msg
}

// aliasPositional maps a positional or raw argument onto the tool's first
// required property when the tool does not declare that key itself.
func aliasPositional(params map[string]any, schema map[string]any) map[string]any {
	required := util.RequiredFields(schema)
	if len(required) == 0 {
		return params
	}
	target := required[0]
	if _, ok := params[target]; ok {
		return params
	}
	for _, key := range []string{core.PositionalKey, core.RawKey} {
		v, ok := params[key]
		if !ok || util.PropertyType(schema, key) != "" {
			continue
		}
		out := make(map[string]any, len(params))
		for k, val := range params {
			if k != key {
				out[k] = val
			}
		}
		out[target] = v
		return out
	}
	return params
}

func errorText(name string, err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return fmt.Sprintf("Error executing %s: %s", name, toolErr.Message)
	}
	return fmt.Sprintf("Error executing %s: %v", name, err)
}
