package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sovereign/core"
	"github.com/hupe1980/sovereign/model"
)

var _ core.Reasoner = (*Model)(nil)

func newServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestModel_Complete(t *testing.T) {
	var req map[string]any
	srv := newServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1,
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Action: final_answer('hi')"}}]
	}`, &req)

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/"
		o.Model = "gpt-4o-mini"
	})

	out, err := m.Complete(context.Background(), "you are an agent", "USER: say hi\n")
	require.NoError(t, err)
	assert.Equal(t, "Action: final_answer('hi')", out)

	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "gpt-4o-mini", req["model"])
	assert.InDelta(t, 0.7, req["temperature"], 1e-9)
	assert.Equal(t, model.Info{Name: "gpt-4o-mini", Provider: "openai"}, m.Info())
}

func TestModel_ErrorStatus(t *testing.T) {
	srv := newServer(t, http.StatusUnauthorized, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`, nil)

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/"
	})

	_, err := m.Complete(context.Background(), "", "h")
	require.Error(t, err)

	var pe *model.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.False(t, pe.Retryable)
}

func TestModel_NoChoices(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`, nil)

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/"
	})

	_, err := m.Complete(context.Background(), "", "h")
	assert.ErrorContains(t, err, "no choices")
}
