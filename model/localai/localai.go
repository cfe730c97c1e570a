// Package localai provides a core.Reasoner for self-hosted OpenAI compatible
// inference servers such as vLLM, Ollama or LocalAI.
package localai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hupe1980/sovereign/model"
)

const providerName = "localai"

// DefaultBaseURL is the conventional address of a local inference server.
const DefaultBaseURL = "http://localhost:8000/v1"

// DefaultModel is requested when no model is configured.
const DefaultModel = "Llama-3.3-70B"

// Options configure the local reasoner.
type Options struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
}

// Model talks to an OpenAI compatible endpoint.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a local reasoner.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Temperature: model.DefaultTemperature,
		MaxTokens:   model.DefaultMaxTokens,
		HTTPTimeout: 150 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		// local servers usually ignore the key but the header must be present
		apiKey = "sk-local"
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = opts.BaseURL
	config.HTTPClient = &http.Client{Timeout: opts.HTTPTimeout}

	return &Model{client: openai.NewClientWithConfig(config), opts: opts}
}

// Complete implements core.Reasoner.
func (m *Model) Complete(ctx context.Context, systemPrompt, history string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: history})

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.opts.Model,
		Messages:    messages,
		Temperature: m.opts.Temperature,
		MaxTokens:   m.opts.MaxTokens,
	})
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &model.ProviderError{Provider: providerName, Message: "no response from inference server", Retryable: true}
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the model ids served by the endpoint, sorted.
func (m *Model) ListModels(ctx context.Context) ([]string, error) {
	list, err := m.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models at %s: %w", m.opts.BaseURL, wrapError(err))
	}
	ids := make([]string, 0, len(list.Models))
	for _, mdl := range list.Models {
		ids = append(ids, mdl.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// Info implements model.Describer.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: providerName}
}

func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return model.NewProviderError(providerName, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return model.NewProviderError(providerName, reqErr.HTTPStatusCode, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return model.NewProviderError(providerName, 0, err)
}
