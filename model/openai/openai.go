// Package openai provides a core.Reasoner backed by the OpenAI Chat
// Completions API. Any OpenAI compatible endpoint can be targeted through
// Options.BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/sovereign/model"
)

const providerName = "openai"

// Options configure the OpenAI reasoner.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	BaseURL             string
}

// Model wraps the OpenAI Chat Completions API behind core.Reasoner.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI reasoner using the official client. The API
// key falls back to OPENAI_API_KEY when Options.APIKey is empty.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	// Retries are owned by model.Adapter.
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI reasoner from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         model.DefaultTemperature,
		MaxCompletionTokens: model.DefaultMaxTokens,
	}
}

// Complete implements core.Reasoner.
func (m *Model) Complete(ctx context.Context, systemPrompt, history string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(history))

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &model.ProviderError{Provider: providerName, Message: "no choices returned", Retryable: true}
	}
	return resp.Choices[0].Message.Content, nil
}

// Info implements model.Describer.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: providerName}
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return model.NewProviderError(providerName, apiErr.StatusCode, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("openai api error: %w", err)
	}
	return model.NewProviderError(providerName, 0, err)
}
