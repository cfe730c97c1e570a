package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/sovereign/core"
	"github.com/hupe1980/sovereign/logging"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 60 * time.Second

// Thought is the outcome of one reasoning step. Err is set when the provider
// failed; Text then holds the configured fallback.
type Thought struct {
	Text string
	Err  error
}

// Usable reports whether the thought carries non-blank text.
func (t Thought) Usable() bool { return strings.TrimSpace(t.Text) != "" }

// Options configures an Adapter.
type Options struct {
	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	Retry   RetryPolicy
	// FallbackText is returned when the provider fails. Blank text makes the
	// controller terminate with no thought.
	FallbackText string
	Logger       logging.Logger
}

// Adapter wraps a provider and never propagates its failures.
type Adapter struct {
	provider core.Reasoner
	opts     Options
	model    string
}

// NewAdapter creates an adapter over provider.
func NewAdapter(provider core.Reasoner, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Timeout: DefaultTimeout,
		Retry:   DefaultRetryPolicy(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	name := fmt.Sprintf("%T", provider)
	if d, ok := provider.(Describer); ok {
		name = d.Info().Name
	}
	return &Adapter{provider: provider, opts: opts, model: name}
}

// Model returns the provider's model name (or its Go type when unknown).
func (a *Adapter) Model() string { return a.model }

// Complete asks the provider for the next reasoning step.
func (a *Adapter) Complete(ctx context.Context, systemPrompt, history string) Thought {
	start := time.Now()
	text, err := Retry(ctx, a.retryPolicy(), func(ctx context.Context) (string, error) {
		return a.attempt(ctx, systemPrompt, history)
	})
	logging.LogReasonerCall(a.opts.Logger, a.model, time.Since(start), err)

	if err != nil {
		return Thought{Text: a.opts.FallbackText, Err: err}
	}
	return Thought{Text: text}
}

func (a *Adapter) retryPolicy() RetryPolicy {
	p := a.opts.Retry
	if p.OnRetry == nil {
		p.OnRetry = func(err error, attempt int, delay time.Duration) {
			a.opts.Logger.Warn("reasoner.call.retry", "model", a.model, "attempt", attempt, "delay", delay.String(), "error", err.Error())
		}
	}
	return p
}

type completion struct {
	text string
	err  error
}

// attempt runs one provider call on its own goroutine so the bounded wait
// holds even for providers that ignore ctx.
func (a *Adapter) attempt(ctx context.Context, systemPrompt, history string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		text, err := a.provider.Complete(ctx, systemPrompt, history)
		done <- completion{text: text, err: err}
	}()

	select {
	case c := <-done:
		if c.err != nil {
			return "", c.err
		}
		if strings.TrimSpace(c.text) == "" {
			return "", ErrEmptyCompletion
		}
		return c.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("reasoner call: %w", ctx.Err())
	}
}
