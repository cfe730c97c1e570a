// Package config loads the YAML configuration of a sovereign agent.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/sovereign/model"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "sovereign.yaml"

// Supported reasoner providers.
const (
	ProviderRuleBased = "rulebased"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderLocalAI   = "localai"
	ProviderGollm     = "gollm"
)

// Duration is a time.Duration written as a Go duration string ("10s").
// Plain integers are read as seconds.
type Duration time.Duration

// Std returns the value as time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	s := strings.TrimSpace(value.Value)
	if secs, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Config is the root configuration.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Reasoner  ReasonerConfig  `yaml:"reasoner"`
	Tools     ToolsConfig     `yaml:"tools"`
	Live      LiveConfig      `yaml:"live"`
	Journal   JournalConfig   `yaml:"journal"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Log       LogConfig       `yaml:"log"`
}

// AgentConfig configures the loop controller.
type AgentConfig struct {
	Name           string   `yaml:"name"`
	Version        string   `yaml:"version"`
	MaxIterations  int      `yaml:"max_iterations"`
	HistoryWindow  int      `yaml:"history_window"`
	Interval       Duration `yaml:"interval"`
	ParserStrict   bool     `yaml:"parser_strict"`
	DispatchStrict bool     `yaml:"dispatch_strict"`
}

// ReasonerConfig selects and configures the reasoning provider.
type ReasonerConfig struct {
	Provider string `yaml:"provider"`
	// Backend is the gollm provider id (openai, anthropic, ollama, ...).
	Backend      string   `yaml:"backend,omitempty"`
	Model        string   `yaml:"model,omitempty"`
	BaseURL      string   `yaml:"base_url,omitempty"`
	APIKey       string   `yaml:"api_key,omitempty"`
	Temperature  float64  `yaml:"temperature"`
	MaxTokens    int      `yaml:"max_tokens"`
	Timeout      Duration `yaml:"timeout"`
	MaxRetries   int      `yaml:"max_retries"`
	FallbackText string   `yaml:"fallback_text,omitempty"`

	// Rules and DefaultResponse configure the rulebased provider.
	Rules           []model.Rule `yaml:"rules,omitempty"`
	DefaultResponse string       `yaml:"default_response,omitempty"`
}

// ToolsConfig configures the registered capabilities.
type ToolsConfig struct {
	Timeout Duration      `yaml:"timeout"`
	Shell   ShellConfig   `yaml:"shell"`
	Desktop DesktopConfig `yaml:"desktop"`
	SysInfo SysInfoConfig `yaml:"sysinfo"`
}

// ShellConfig configures execute_shell.
type ShellConfig struct {
	Enabled bool     `yaml:"enabled"`
	Dir     string   `yaml:"dir,omitempty"`
	Timeout Duration `yaml:"timeout"`
}

// DesktopConfig configures the pc_control family and take_screenshot.
type DesktopConfig struct {
	Enabled     bool `yaml:"enabled"`
	TypeDelayMs int  `yaml:"type_delay_ms"`
}

// SysInfoConfig configures system_info.
type SysInfoConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// LiveConfig configures the live session. An empty URL keeps the session local.
type LiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
}

// JournalConfig configures the execution journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// EvolutionConfig configures self-analysis.
type EvolutionConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseDir     string `yaml:"base_dir,omitempty"`
	TestCommand string `yaml:"test_command,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:          "Sovereign",
			Version:       "2.0",
			MaxIterations: 10,
			HistoryWindow: 5,
			Interval:      Duration(500 * time.Millisecond),
		},
		Reasoner: ReasonerConfig{
			Provider:    ProviderRuleBased,
			Temperature: model.DefaultTemperature,
			MaxTokens:   model.DefaultMaxTokens,
			Timeout:     Duration(model.DefaultTimeout),
			MaxRetries:  1,
		},
		Tools: ToolsConfig{
			Timeout: Duration(30 * time.Second),
			Shell:   ShellConfig{Enabled: true, Timeout: Duration(10 * time.Second)},
			SysInfo: SysInfoConfig{Enabled: true},
		},
		Evolution: EvolutionConfig{Enabled: true, BaseDir: ".", TestCommand: "go test ./..."},
		Log:       LogConfig{Level: "info", Format: "auto"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is tolerated only for DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without reading the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Reasoner.Provider, "SOVEREIGN_PROVIDER")
	set(&c.Reasoner.Model, "SOVEREIGN_MODEL")
	set(&c.Reasoner.BaseURL, "SOVEREIGN_BASE_URL")
	set(&c.Reasoner.APIKey, "SOVEREIGN_API_KEY")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Log.Format, "LOG_FORMAT")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be >= 1, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.HistoryWindow < 1 {
		return fmt.Errorf("agent.history_window must be >= 1, got %d", c.Agent.HistoryWindow)
	}
	if c.Agent.Interval < 0 {
		return errors.New("agent.interval must not be negative")
	}
	switch c.Reasoner.Provider {
	case ProviderRuleBased, ProviderOpenAI, ProviderAnthropic, ProviderLocalAI, ProviderGollm:
	default:
		return fmt.Errorf("reasoner.provider %q is not supported", c.Reasoner.Provider)
	}
	if c.Reasoner.MaxRetries < 0 {
		return errors.New("reasoner.max_retries must not be negative")
	}
	for i, r := range c.Reasoner.Rules {
		if strings.TrimSpace(r.Contains) == "" {
			return fmt.Errorf("reasoner.rules[%d].contains is empty", i)
		}
	}
	switch c.Log.Format {
	case "", "auto", "json", "text":
	default:
		return fmt.Errorf("log.format %q is not supported", c.Log.Format)
	}
	return nil
}
