package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sovereign/core"
	"github.com/hupe1980/sovereign/internal/testutil"
)

var clickSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"x": map[string]any{"type": "integer"},
		"y": map[string]any{"type": "integer"},
	},
	"required": []string{"x", "y"},
}

func newClickFamily(t *testing.T) (*Family, *testutil.RecordingTool) {
	t.Helper()
	click := &testutil.RecordingTool{ToolName: "pc_control_click", Result: "clicked", Schema: clickSchema}
	typ := testutil.NewRecordingTool("pc_control_type", "typed", "text")
	f := NewFamily("pc_control", "pc_control_", "desktop control")
	require.NoError(t, f.Add(click, typ))
	return f, click
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	echo := NewFunctionTool("echo", "Echo text", map[string]any{
		"type":       "object",
		"properties": map[string]any{"text": map[string]any{"type": "string"}},
		"required":   []string{"text"},
	}, func(_ context.Context, p map[string]any) (string, error) {
		return p["text"].(string), nil
	})

	out, err := echo.Call(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestFunctionTool_ErrorCodes(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"n": map[string]any{"type": "integer"}},
		"required":   []string{"n"},
	}

	t.Run("validation", func(t *testing.T) {
		ft := NewFunctionTool("f", "", schema, func(context.Context, map[string]any) (string, error) { return "", nil })
		_, err := ft.Call(context.Background(), map[string]any{})
		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, CodeValidation, te.Code)
	})

	t.Run("execution", func(t *testing.T) {
		ft := NewFunctionTool("f", "", schema, func(context.Context, map[string]any) (string, error) {
			return "", errors.New("boom")
		})
		_, err := ft.Call(context.Background(), map[string]any{"n": 1})
		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, CodeExecution, te.Code)
		assert.Equal(t, "boom", te.Message)
	})

	t.Run("forwarded", func(t *testing.T) {
		ft := NewFunctionTool("f", "", schema, func(context.Context, map[string]any) (string, error) {
			return "", NewToolError("f", "custom", "CUSTOM")
		})
		_, err := ft.Call(context.Background(), map[string]any{"n": 1})
		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "CUSTOM", te.Code)
	})
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	type args struct {
		Path string `json:"path" description:"file path"`
	}
	ft := NewFunctionToolFromStruct("read", "Read a file", args{}, func(context.Context, map[string]any) (string, error) {
		return "ok", nil
	})
	assert.Equal(t, []string{"path"}, ft.Parameters()["required"])
}

// -------------------- Registry Tests --------------------

func TestRegistry_LookupExactAndFamily(t *testing.T) {
	r := NewRegistry()
	shell := testutil.NewRecordingTool("execute_shell", "ok", "command")
	require.NoError(t, r.Register(shell))

	fam, click := newClickFamily(t)
	require.NoError(t, r.RegisterFamily(fam))

	got, ok := r.Lookup("execute_shell")
	require.True(t, ok)
	assert.Same(t, shell, got)

	got, ok = r.Lookup("pc_control_click")
	require.True(t, ok)
	assert.Same(t, click, got)

	_, ok = r.Lookup("pc_control_scroll")
	assert.False(t, ok)

	_, ok = r.Lookup("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"execute_shell", "pc_control_click", "pc_control_type"}, r.Names())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testutil.NewRecordingTool("a", "")))
	assert.Error(t, r.Register(testutil.NewRecordingTool("a", "")))

	fam, _ := newClickFamily(t)
	require.NoError(t, r.RegisterFamily(fam))
	assert.Error(t, r.RegisterFamily(NewFamily("other", "pc_control_", "")))
}

func TestRegistry_Declares(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testutil.NewRecordingTool("execute_shell", "", "command")))
	fam, _ := newClickFamily(t)
	require.NoError(t, r.RegisterFamily(fam))

	assert.True(t, r.Declares("execute_shell", "command"))
	assert.False(t, r.Declares("execute_shell", "FOO"))
	assert.True(t, r.Declares("pc_control_click", "y"))
	assert.False(t, r.Declares("launch_rocket", "x"))
}

func TestFamily_RejectsForeignPrefix(t *testing.T) {
	f := NewFamily("pc_control", "pc_control_", "")
	assert.Error(t, f.Add(testutil.NewRecordingTool("execute_shell", "")))
}

func TestRegistry_Definitions(t *testing.T) {
	r := NewRegistry()
	fam, _ := newClickFamily(t)
	require.NoError(t, r.RegisterFamily(fam))

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "pc_control_click(x, y)", defs[0].Signature())
	assert.Equal(t, "pc_control_type(text)", defs[1].Signature())
}

// -------------------- Dispatcher Tests --------------------

func TestDispatcher_UnknownAction(t *testing.T) {
	d := NewDispatcher(NewRegistry())

	obs := d.Dispatch(context.Background(), core.Action{Name: "launch_rocket"})

	assert.True(t, obs.IsError)
	assert.False(t, obs.Recovered)
	assert.Contains(t, obs.Result, "launch_rocket")
}

func TestDispatcher_UnknownFamilyMember(t *testing.T) {
	r := NewRegistry()
	fam, _ := newClickFamily(t)
	require.NoError(t, r.RegisterFamily(fam))

	obs := NewDispatcher(r).Dispatch(context.Background(), core.Action{Name: "pc_control_scroll"})

	assert.True(t, obs.IsError)
	assert.Contains(t, obs.Result, "unknown action: pc_control_scroll")
	assert.Contains(t, obs.Result, "pc_control_click")
}

func TestDispatcher_PositionalAlias(t *testing.T) {
	r := NewRegistry()
	shell := testutil.NewRecordingTool("execute_shell", "hi", "command")
	require.NoError(t, r.Register(shell))

	obs := NewDispatcher(r).Dispatch(context.Background(), core.Action{
		Name:   "execute_shell",
		Params: map[string]any{core.PositionalKey: "echo hi"},
	})

	require.False(t, obs.IsError, obs.Result)
	assert.Equal(t, "hi", obs.Result)
	assert.Equal(t, []map[string]any{{"command": "echo hi"}}, shell.Calls())
	assert.Equal(t, map[string]any{"command": "echo hi"}, obs.Params)
	assert.Equal(t, map[string]any{core.PositionalKey: "echo hi"}, obs.Action.Params)
}

func TestDispatcher_InvokedParams(t *testing.T) {
	r := NewRegistry()
	fam, _ := newClickFamily(t)
	require.NoError(t, r.RegisterFamily(fam))
	d := NewDispatcher(r)

	obs := d.Dispatch(context.Background(), core.Action{Name: "pc_control_click", Params: map[string]any{"x": "7"}})
	require.False(t, obs.IsError, obs.Result)
	assert.Equal(t, map[string]any{"x": 7, "y": 0}, obs.InvokedParams())

	unknown := core.Action{Name: "launch_rocket", Params: map[string]any{core.PositionalKey: "now"}}
	obs = d.Dispatch(context.Background(), unknown)
	assert.Nil(t, obs.Params)
	assert.Equal(t, unknown.Params, obs.InvokedParams())
}

func TestDispatcher_LenientDefaults(t *testing.T) {
	r := NewRegistry()
	fam, click := newClickFamily(t)
	require.NoError(t, r.RegisterFamily(fam))

	obs := NewDispatcher(r).Dispatch(context.Background(), core.Action{
		Name:   "pc_control_click",
		Params: map[string]any{"x": "12"},
	})

	require.False(t, obs.IsError, obs.Result)
	assert.Equal(t, []map[string]any{{"x": 12, "y": 0}}, click.Calls())
}

func TestDispatcher_StrictRejectsMissingParams(t *testing.T) {
	r := NewRegistry()
	fam, click := newClickFamily(t)
	require.NoError(t, r.RegisterFamily(fam))

	d := NewDispatcher(r, func(o *DispatchOptions) { o.Strict = true })
	obs := d.Dispatch(context.Background(), core.Action{Name: "pc_control_click", Params: map[string]any{"x": 1}})

	assert.True(t, obs.IsError)
	assert.False(t, obs.Recovered)
	assert.Contains(t, obs.Result, "y")
	assert.Empty(t, click.Calls())
}

func TestDispatcher_ToolErrorIsRecovered(t *testing.T) {
	r := NewRegistry()
	failing := testutil.NewRecordingTool("execute_shell", "", "command")
	failing.Err = errors.New("exit status 1")
	require.NoError(t, r.Register(failing))

	obs := NewDispatcher(r).Dispatch(context.Background(), core.Action{
		Name:   "execute_shell",
		Params: map[string]any{"command": "false"},
	})

	assert.True(t, obs.IsError)
	assert.True(t, obs.Recovered)
	assert.Equal(t, "Error executing execute_shell: exit status 1", obs.Result)
}

func TestDispatcher_PanicIsRecovered(t *testing.T) {
	r := NewRegistry()
	bad := testutil.NewRecordingTool("bad", "")
	bad.Fn = func(context.Context, map[string]any) (string, error) { panic("kaboom") }
	require.NoError(t, r.Register(bad))

	var obs core.Observation
	assert.NotPanics(t, func() {
		obs = NewDispatcher(r).Dispatch(context.Background(), core.Action{Name: "bad"})
	})
	assert.True(t, obs.IsError)
	assert.True(t, obs.Recovered)
	assert.Contains(t, obs.Result, "kaboom")
}

func TestDispatcher_Timeout(t *testing.T) {
	r := NewRegistry()
	release := make(chan struct{})
	defer close(release)

	slow := testutil.NewRecordingTool("slow", "")
	slow.Fn = func(context.Context, map[string]any) (string, error) {
		<-release // ignores ctx on purpose
		return "late", nil
	}
	require.NoError(t, r.Register(slow))

	d := NewDispatcher(r, func(o *DispatchOptions) { o.Timeout = 20 * time.Millisecond })
	start := time.Now()
	obs := d.Dispatch(context.Background(), core.Action{Name: "slow"})

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, obs.IsError)
	assert.True(t, obs.Recovered)
	assert.Contains(t, obs.Result, "timed out")
}

func TestFamily_AddWhileRouting(t *testing.T) {
	r := NewRegistry()
	fam, _ := newClickFamily(t)
	require.NoError(t, r.RegisterFamily(fam))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, ok := r.Lookup("pc_control_click")
			assert.True(t, ok)
			r.Names()
		}()
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("pc_control_op%d", i)
			assert.NoError(t, fam.Add(testutil.NewRecordingTool(name, "")))
		}(i)
	}
	wg.Wait()

	assert.Len(t, fam.Operations(), 12)
}

func TestDispatcher_ConcurrentSafe(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testutil.NewRecordingTool("noop", "ok")))
	d := NewDispatcher(r)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs := d.Dispatch(context.Background(), core.Action{Name: "noop"})
			assert.False(t, obs.IsError)
		}()
	}
	wg.Wait()
}
