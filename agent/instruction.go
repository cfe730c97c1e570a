package agent

import (
	"github.com/hupe1980/sovereign/internal/util"
)

// DefaultInstruction is the system prompt template used when none is configured.
const DefaultInstruction = `You are {{.Name}}, an autonomous sovereign agent.
Your goal is to complete user tasks efficiently and without relying on centralized services.

You have access to the following capabilities:
{{range .Tools}}- {{.Signature}}: {{.Description}}
{{end}}- final_answer(content): Provide the final result

Always think step by step: plan one action, execute it and observe the result.
Respond in exactly this format:
Thought: <your reasoning>
Action: <tool_name>(<params>)

Params are empty, a single quoted string or a JSON object, for example:
Action: final_answer('The disk is 42% full.')
Action: tool_name({"key": "value"})
`

// ToolInfo describes one capability for prompt rendering.
type ToolInfo struct {
	Name        string
	Signature   string
	Description string
}

// PromptData is the data a system prompt is rendered from.
type PromptData struct {
	Name    string
	Version string
	Tools   []ToolInfo
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(PromptData) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(PromptData) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(d PromptData) (string, error) { return f(d) }

// Instruction represents either a text/template string or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a template string.
// Text without template actions is used verbatim.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(PromptData) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a template string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether the instruction is unset.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(data PromptData) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(data)
	}
	return util.RenderTemplate(i.text, data)
}
