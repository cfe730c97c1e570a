package action

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/sovereign/core"
)

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want core.Action
	}{
		{
			name: "no marker is final answer",
			text: "The disk is 40% full.",
			want: core.NewFinalAnswer("The disk is 40% full."),
		},
		{
			name: "single quoted positional",
			text: "Thought: list files\nAction: execute_shell('ls -la')",
			want: core.Action{Name: "execute_shell", Params: map[string]any{"cmd": "ls -la"}},
		},
		{
			name: "bare positional",
			text: "Action: execute_shell(uptime)",
			want: core.Action{Name: "execute_shell", Params: map[string]any{"cmd": "uptime"}},
		},
		{
			name: "json object with double quotes",
			text: `Action: pc_control_click({"x": 10, "y": 20})`,
			want: core.Action{Name: "pc_control_click", Params: map[string]any{"x": float64(10), "y": float64(20)}},
		},
		{
			name: "json object with single quotes",
			text: "Action: pc_control_type({'text': 'hello'})",
			want: core.Action{Name: "pc_control_type", Params: map[string]any{"text": "hello"}},
		},
		{
			name: "keyword list",
			text: "Action: pc_control_click(x=10, y: 20, button='right')",
			want: core.Action{Name: "pc_control_click", Params: map[string]any{"x": float64(10), "y": float64(20), "button": "right"}},
		},
		{
			name: "empty body",
			text: "Action: take_screenshot()",
			want: core.Action{Name: "take_screenshot"},
		},
		{
			name: "missing closing paren",
			text: "Action: execute_shell('df -h'",
			want: core.Action{Name: "execute_shell", Params: map[string]any{"cmd": "df -h"}},
		},
		{
			name: "only first line after marker",
			text: "Action: execute_shell('whoami')\nObservation: root",
			want: core.Action{Name: "execute_shell", Params: map[string]any{"cmd": "whoami"}},
		},
		{
			name: "first marker wins",
			text: "Action: execute_shell('a')\nAction: execute_shell('b')",
			want: core.Action{Name: "execute_shell", Params: map[string]any{"cmd": "a"}},
		},
		{
			name: "final answer positional",
			text: "Action: final_answer('done')",
			want: core.NewFinalAnswer("done"),
		},
		{
			name: "final answer object",
			text: `Action: final_answer({"content": "all good"})`,
			want: core.NewFinalAnswer("all good"),
		},
		{
			name: "trailing note in parentheses",
			text: "Action: execute_shell('ls -la') (list the files)",
			want: core.Action{Name: "execute_shell", Params: map[string]any{"cmd": "ls -la"}},
		},
		{
			name: "parenthesis inside quotes",
			text: "Action: execute_shell('echo (hi)')",
			want: core.Action{Name: "execute_shell", Params: map[string]any{"cmd": "echo (hi)"}},
		},
		{
			name: "nested parentheses",
			text: "Action: execute_shell(echo $(date)) to check the clock",
			want: core.Action{Name: "execute_shell", Params: map[string]any{"cmd": "echo $(date)"}},
		},
		{
			name: "apostrophe in bare text",
			text: "Action: final_answer(It's done) (really)",
			want: core.NewFinalAnswer("It's done"),
		},
		{
			name: "final answer keeps colon text",
			text: "Action: final_answer(Result: 42)",
			want: core.NewFinalAnswer("Result: 42"),
		},
		{
			name: "final answer content keyword",
			text: "Action: final_answer(content='done')",
			want: core.NewFinalAnswer("done"),
		},
		{
			name: "marker without parens",
			text: "Thought: I know it\nAction: respond with 42",
			want: core.NewFinalAnswer("Thought: I know it\nAction: respond with 42"),
		},
		{
			name: "empty name",
			text: "Action: ('x')",
			want: core.NewFinalAnswer("Action: ('x')"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parser{}.Parse(tt.text))
		})
	}
}

func TestParser_MalformedDegradesToRaw(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
	}{
		{"unbalanced quote", "Action: execute_shell('echo hi)", map[string]any{"raw": "'echo hi"}},
		{"broken object", "Action: pc_control_click({x: 1,)", map[string]any{"raw": "{x: 1,"}},
		{"unbalanced keyword", "Action: pc_control_type(text='oops)", map[string]any{"raw": "text='oops"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got core.Action
			assert.NotPanics(t, func() { got = Parser{}.Parse(tt.text) })
			assert.Equal(t, tt.want, got.Params)
			assert.False(t, got.IsFinal())
		})
	}
}

func TestParser_Idempotent(t *testing.T) {
	inputs := []string{
		"Action: execute_shell('echo hi')",
		"Action: pc_control_click({'x': 1, 'y': 2})",
		"Action: pc_control_click(x=1, y=2)",
		"Action: execute_shell('broken",
		"plain text answer",
	}
	p := Parser{}
	for _, in := range inputs {
		assert.Equal(t, p.Parse(in), p.Parse(in), in)
	}
}

func TestParser_Unmarked(t *testing.T) {
	t.Run("permissive", func(t *testing.T) {
		a := Parser{}.Unmarked("just text")
		assert.True(t, a.IsFinal())
		assert.Equal(t, "just text", a.Answer())
	})

	t.Run("strict", func(t *testing.T) {
		a := Parser{Strict: true}.Unmarked("just text")
		assert.Equal(t, core.ActionMalformed, a.Name)
		assert.Equal(t, "just text", a.Params[core.RawKey])
		assert.False(t, a.IsFinal())
	})

	t.Run("strict still parses marked text", func(t *testing.T) {
		a := Parser{Strict: true}.Parse("Action: look around")
		assert.Equal(t, core.ActionMalformed, a.Name)

		a = Parser{Strict: true}.Parse("Action: final_answer('ok')")
		assert.True(t, a.IsFinal())
		assert.Equal(t, "ok", a.Answer())
	})
}

func TestParser_DeclaredKeywords(t *testing.T) {
	p := Parser{Declared: func(tool, key string) bool {
		return tool == "pc_control_click" && (key == "x" || key == "y")
	}}

	tests := []struct {
		name string
		text string
		want map[string]any
	}{
		{"declared keywords", "Action: pc_control_click(x=1, y: 2)", map[string]any{"x": float64(1), "y": float64(2)}},
		{"env assignment stays one command", "Action: execute_shell(FOO=bar env)", map[string]any{"cmd": "FOO=bar env"}},
		{"undeclared key on known tool", "Action: pc_control_click(button=left)", map[string]any{"cmd": "button=left"}},
		{"json object ignores declarations", `Action: execute_shell({"command": "ls"})`, map[string]any{"command": "ls"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Parse(tt.text).Params)
		})
	}
}

func TestParseParams_Scalars(t *testing.T) {
	got := ParseParams(`n=3, ok=true, none=null, word=hello`)
	assert.Equal(t, map[string]any{"n": float64(3), "ok": true, "none": nil, "word": "hello"}, got)
}
