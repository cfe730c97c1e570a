package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, 5, cfg.Agent.HistoryWindow)
	assert.Equal(t, 500*time.Millisecond, cfg.Agent.Interval.Std())
	assert.Equal(t, ProviderRuleBased, cfg.Reasoner.Provider)
	assert.InDelta(t, 0.7, cfg.Reasoner.Temperature, 1e-9)
	assert.Equal(t, 2048, cfg.Reasoner.MaxTokens)
	assert.True(t, cfg.Tools.Shell.Enabled)
	assert.False(t, cfg.Tools.Desktop.Enabled)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
agent:
  name: Atlas
  max_iterations: 3
  interval: 0s
reasoner:
  provider: localai
  model: Llama-3.3-70B
  timeout: 15
  rules:
    - contains: disk
      response: "Action: system_info()"
tools:
  shell:
    enabled: true
    timeout: 2s
`))
	require.NoError(t, err)

	assert.Equal(t, "Atlas", cfg.Agent.Name)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, 5, cfg.Agent.HistoryWindow)
	assert.Equal(t, time.Duration(0), cfg.Agent.Interval.Std())
	assert.Equal(t, ProviderLocalAI, cfg.Reasoner.Provider)
	assert.Equal(t, 15*time.Second, cfg.Reasoner.Timeout.Std())
	require.Len(t, cfg.Reasoner.Rules, 1)
	assert.Equal(t, "Action: system_info()", cfg.Reasoner.Rules[0].Response)
	assert.Equal(t, 2*time.Second, cfg.Tools.Shell.Timeout.Std())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad duration", "agent:\n  interval: soon\n"},
		{"zero iterations", "agent:\n  max_iterations: 0\n"},
		{"unknown provider", "reasoner:\n  provider: telepathy\n"},
		{"empty rule", "reasoner:\n  rules:\n    - response: x\n"},
		{"bad log format", "log:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SOVEREIGN_PROVIDER": "openai",
		"SOVEREIGN_MODEL":    "gpt-4o",
		"SOVEREIGN_BASE_URL": "http://localhost:9000/v1",
		"SOVEREIGN_API_KEY":  "secret",
		"LOG_LEVEL":          "debug",
		"LOG_FORMAT":         "  ",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, ProviderOpenAI, cfg.Reasoner.Provider)
	assert.Equal(t, "gpt-4o", cfg.Reasoner.Model)
	assert.Equal(t, "http://localhost:9000/v1", cfg.Reasoner.BaseURL)
	assert.Equal(t, "secret", cfg.Reasoner.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
}

func TestLoad(t *testing.T) {
	t.Setenv("SOVEREIGN_PROVIDER", "")
	t.Setenv("SOVEREIGN_MODEL", "from-env")

	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  max_iterations: 4\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Agent.MaxIterations)
	assert.Equal(t, "from-env", cfg.Reasoner.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
