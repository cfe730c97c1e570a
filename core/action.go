package core

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// ActionFinalAnswer is the terminal sentinel action name.
	ActionFinalAnswer = "final_answer"
	// ActionMalformed is produced by a strict parser for reasoning text that
	// carries no recognizable action. It is never dispatched.
	ActionMalformed = "malformed_action"

	// AnswerKey is the reserved parameter key holding final answer text.
	AnswerKey = "content"
	// PositionalKey holds a single unnamed argument, e.g. execute_shell('ls').
	PositionalKey = "cmd"
	// RawKey holds parameter text that could not be parsed as a structure.
	RawKey = "raw"
)

// Action is a structured tool invocation request extracted from reasoning text.
type Action struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// NewFinalAnswer wraps text as a terminal final_answer Action.
func NewFinalAnswer(text string) Action {
	return Action{Name: ActionFinalAnswer, Params: map[string]any{AnswerKey: text}}
}

// IsFinal reports whether the action terminates the loop.
func (a Action) IsFinal() bool { return a.Name == ActionFinalAnswer }

// Answer returns the final answer text. Structured variants such as
// final_answer({"text": "..."}) are accepted as well.
func (a Action) Answer() string {
	for _, key := range []string{AnswerKey, "text", RawKey, PositionalKey} {
		if s, ok := a.Params[key].(string); ok {
			return s
		}
	}
	if len(a.Params) == 1 {
		for _, v := range a.Params {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// String renders the action in the same mini-language it was parsed from.
func (a Action) String() string {
	if len(a.Params) == 0 {
		return a.Name + "()"
	}
	keys := make([]string, 0, len(a.Params))
	for k := range a.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, a.Params[k]))
	}
	return a.Name + "(" + strings.Join(parts, ", ") + ")"
}
