// Package gollm provides a core.Reasoner backed by the teilomillet/gollm
// multi-provider client (OpenAI, Anthropic, Groq, Ollama, Mistral, ...).
package gollm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teilomillet/gollm"

	"github.com/hupe1980/sovereign/model"
)

// Options configure the gollm reasoner.
type Options struct {
	// Provider is the gollm provider id, e.g. openai, anthropic or ollama.
	Provider    string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	// Extra is appended to the generated gollm configuration.
	Extra []gollm.ConfigOption
}

// Model adapts a gollm.LLM to core.Reasoner.
type Model struct {
	provider string
	model    string
	generate func(ctx context.Context, prompt *gollm.Prompt) (string, error)
}

// NewModel creates a gollm backed reasoner. When APIKey is empty gollm reads
// the provider's conventional environment variable.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Provider:    "openai",
		Temperature: model.DefaultTemperature,
		MaxTokens:   model.DefaultMaxTokens,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		opts.Model = defaultModel(opts.Provider)
	}

	cfg := []gollm.ConfigOption{
		gollm.SetProvider(opts.Provider),
		gollm.SetModel(opts.Model),
		gollm.SetMaxTokens(opts.MaxTokens),
		gollm.SetTemperature(opts.Temperature),
		gollm.SetMaxRetries(0), // retries are owned by model.Adapter
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if opts.APIKey != "" {
		cfg = append(cfg, gollm.SetAPIKey(opts.APIKey))
	}
	cfg = append(cfg, opts.Extra...)

	llm, err := gollm.NewLLM(cfg...)
	if err != nil {
		return nil, fmt.Errorf("create gollm client for provider %s: %w", opts.Provider, err)
	}
	return NewModelFromLLM(opts.Provider, opts.Model, llm), nil
}

// NewModelFromLLM wraps an existing gollm.LLM.
func NewModelFromLLM(provider, modelName string, llm gollm.LLM) *Model {
	return &Model{
		provider: provider,
		model:    modelName,
		generate: func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
			return llm.Generate(ctx, prompt)
		},
	}
}

// Complete implements core.Reasoner.
func (m *Model) Complete(ctx context.Context, systemPrompt, history string) (string, error) {
	var promptOpts []gollm.PromptOption
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(systemPrompt, gollm.CacheTypeEphemeral))
	}
	text, err := m.generate(ctx, gollm.NewPrompt(history, promptOpts...))
	if err != nil {
		return "", m.translateError(err)
	}
	return text, nil
}

// Info implements model.Describer.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.model, Provider: "gollm/" + m.provider}
}

// translateError classifies gollm errors, which carry no typed status, by
// their message.
func (m *Model) translateError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	status := 0
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		status = 401
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden"):
		status = 403
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		status = 404
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		status = 429
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "internal server"):
		status = 500
	}
	return model.NewProviderError("gollm/"+m.provider, status, err)
}

func defaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-3-5-sonnet-20241022"
	case "ollama":
		return "llama3.1"
	default:
		return "gpt-4o-mini"
	}
}
