package testutil

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned once a ScriptedReasoner has no replies left
// and no repeat reply is configured.
var ErrScriptExhausted = errors.New("testutil: script exhausted")

// ScriptedReasoner replays a fixed sequence of completions and records every
// prompt it receives.
//
// Example:
//
//	r := NewScriptedReasoner("Action: execute_shell('ls')").Repeat("Action: final_answer('done')")
type ScriptedReasoner struct {
	mu      sync.Mutex
	replies []Reply
	repeat  *Reply
	calls   []Call
}

// Reply is a single scripted completion.
type Reply struct {
	Text string
	Err  error
}

// Call records the inputs of one Complete invocation.
type Call struct {
	SystemPrompt string
	History      string
}

// NewScriptedReasoner creates a reasoner replaying texts in order.
func NewScriptedReasoner(texts ...string) *ScriptedReasoner {
	r := &ScriptedReasoner{}
	for _, t := range texts {
		r.replies = append(r.replies, Reply{Text: t})
	}
	return r
}

// Then appends a reply (chainable).
func (r *ScriptedReasoner) Then(text string) *ScriptedReasoner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, Reply{Text: text})
	return r
}

// Fail appends a failing reply (chainable).
func (r *ScriptedReasoner) Fail(err error) *ScriptedReasoner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, Reply{Err: err})
	return r
}

// Repeat sets the reply returned once the script is exhausted (chainable).
func (r *ScriptedReasoner) Repeat(text string) *ScriptedReasoner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repeat = &Reply{Text: text}
	return r
}

// Complete implements core.Reasoner.
func (r *ScriptedReasoner) Complete(ctx context.Context, systemPrompt, history string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{SystemPrompt: systemPrompt, History: history})

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(r.replies) > 0 {
		next := r.replies[0]
		r.replies = r.replies[1:]
		return next.Text, next.Err
	}
	if r.repeat != nil {
		return r.repeat.Text, r.repeat.Err
	}
	return "", ErrScriptExhausted
}

// Calls returns a copy of the recorded invocations.
func (r *ScriptedReasoner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}
