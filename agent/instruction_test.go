package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(PromptData) (string, error) { return m.text, m.err }

func testPromptData() PromptData {
	return PromptData{
		Name:    "Atlas",
		Version: "2.0",
		Tools: []ToolInfo{
			{Name: "execute_shell", Signature: "execute_shell(command, timeout_seconds)", Description: "Run a command"},
		},
	}
}

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	assert.True(t, inst.IsStatic())
	assert.False(t, inst.IsZero())

	got, err := inst.Resolve(testPromptData())
	require.NoError(t, err)
	assert.Equal(t, "static instruction", got)
}

func TestInstruction_Template(t *testing.T) {
	inst := NewInstructionFromText("You are {{.Name}} v{{.Version}} with {{len .Tools}} tool(s).")

	got, err := inst.Resolve(testPromptData())
	require.NoError(t, err)
	assert.Equal(t, "You are Atlas v2.0 with 1 tool(s).", got)
}

func TestInstruction_Default(t *testing.T) {
	got, err := NewInstructionFromText(DefaultInstruction).Resolve(testPromptData())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "You are Atlas,"))
	assert.Contains(t, got, "- execute_shell(command, timeout_seconds): Run a command\n")
	assert.Contains(t, got, "- final_answer(content)")
	assert.Contains(t, got, "Action: <tool_name>(<params>)")
}

func TestInstruction_Provider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "dynamic"})
	assert.False(t, inst.IsStatic())

	got, err := inst.Resolve(testPromptData())
	require.NoError(t, err)
	assert.Equal(t, "dynamic", got)

	_, err = NewInstructionFromProvider(mockProvider{err: errors.New("boom")}).Resolve(testPromptData())
	assert.EqualError(t, err, "boom")
}

func TestInstruction_Func(t *testing.T) {
	inst := NewInstructionFromFunc(func(d PromptData) (string, error) { return "hello " + d.Name, nil })

	got, err := inst.Resolve(testPromptData())
	require.NoError(t, err)
	assert.Equal(t, "hello Atlas", got)
}

func TestInstruction_BadTemplate(t *testing.T) {
	_, err := NewInstructionFromText("{{.Missing").Resolve(testPromptData())
	assert.Error(t, err)
	assert.True(t, NewInstructionFromText("").IsZero())
}
