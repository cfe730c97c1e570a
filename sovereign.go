// Package sovereign wires a bounded Think-Act-Observe agent from a
// configuration. Most applications interact with this package by:
//  1. Loading a config.Config (config.Load)
//  2. Creating a Sovereign via New, optionally overriding the reasoner or tools
//  3. Calling Execute and reading Status
//
// The façade selects the reasoning provider by configuration, registers the
// host capabilities (shell, desktop control, system info) and attaches the
// optional live session, journal and evolution collaborators.
package sovereign

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/sovereign/agent"
	"github.com/hupe1980/sovereign/config"
	"github.com/hupe1980/sovereign/core"
	"github.com/hupe1980/sovereign/evolution"
	"github.com/hupe1980/sovereign/journal"
	"github.com/hupe1980/sovereign/live"
	"github.com/hupe1980/sovereign/logging"
	"github.com/hupe1980/sovereign/model"
	"github.com/hupe1980/sovereign/model/anthropic"
	"github.com/hupe1980/sovereign/model/gollm"
	"github.com/hupe1980/sovereign/model/localai"
	"github.com/hupe1980/sovereign/model/openai"
	"github.com/hupe1980/sovereign/tool"
	"github.com/hupe1980/sovereign/tool/desktop"
	"github.com/hupe1980/sovereign/tool/shell"
	"github.com/hupe1980/sovereign/tool/sysinfo"
)

// Version is the release of this module.
const Version = "2.0.0"

// DefaultRuleResponse answers tasks no rule matches when the rule-based
// reasoner is used.
const DefaultRuleResponse = "Thought: No rule matches this task.\nAction: final_answer('I cannot handle this task without a live reasoner.')"

// Options configures the façade.
type Options struct {
	// Reasoner overrides the provider selected by configuration.
	Reasoner core.Reasoner
	// Driver overrides the desktop driver (xdotool).
	Driver desktop.Driver
	// Tools are registered in addition to the configured capabilities.
	Tools []core.Tool
	// LiveHandler receives inbound live-session messages.
	LiveHandler live.Handler
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Sovereign is a configured agent plus the resources it owns.
type Sovereign struct {
	*agent.Agent
	journal *journal.Journal
}

// New builds an agent from cfg. Close must be called to release the journal.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Sovereign, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	reasoner := opts.Reasoner
	if reasoner == nil {
		r, err := NewReasoner(cfg.Reasoner)
		if err != nil {
			return nil, err
		}
		reasoner = r
	}

	registry, err := NewRegistry(cfg.Tools, opts.Driver)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(opts.Tools...); err != nil {
		return nil, err
	}

	s := &Sovereign{}
	agentOpts := func(o *agent.Options) {
		o.Version = cfg.Agent.Version
		o.Model = cfg.Reasoner.Model
		o.MaxIterations = cfg.Agent.MaxIterations
		o.HistoryWindow = cfg.Agent.HistoryWindow
		o.Interval = cfg.Agent.Interval.Std()
		o.ParserStrict = cfg.Agent.ParserStrict
		o.DispatchStrict = cfg.Agent.DispatchStrict
		o.ToolTimeout = cfg.Tools.Timeout.Std()
		o.ReasonerTimeout = cfg.Reasoner.Timeout.Std()
		o.ReasonerRetry.MaxRetries = cfg.Reasoner.MaxRetries
		o.FallbackText = cfg.Reasoner.FallbackText
		o.Logger = opts.Logger
	}

	var extra []func(o *agent.Options)
	if cfg.Live.Enabled {
		session := live.NewSession(cfg.Live.URL, func(o *live.Options) {
			o.Handler = opts.LiveHandler
			o.Logger = opts.Logger
		})
		extra = append(extra, func(o *agent.Options) { o.Live = session })
	}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		s.journal = j
		extra = append(extra, func(o *agent.Options) { o.Journal = j })
	}
	if cfg.Evolution.Enabled {
		m, err := evolution.New(cfg.Evolution.BaseDir, func(o *evolution.Options) {
			if cfg.Evolution.TestCommand != "" {
				o.TestCommand = cfg.Evolution.TestCommand
			}
			o.Logger = opts.Logger
		})
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		extra = append(extra, func(o *agent.Options) { o.Evolution = m })
	}

	s.Agent = agent.New(cfg.Agent.Name, reasoner, registry, append([]func(o *agent.Options){agentOpts}, extra...)...)
	return s, nil
}

// Journal returns the execution journal, nil when disabled.
func (s *Sovereign) Journal() *journal.Journal { return s.journal }

// Close releases owned resources.
func (s *Sovereign) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

// NewReasoner creates the provider selected by cfg.Provider.
func NewReasoner(cfg config.ReasonerConfig) (core.Reasoner, error) {
	switch cfg.Provider {
	case config.ProviderRuleBased, "":
		rules := cfg.Rules
		if len(rules) == 0 {
			rules = model.DefaultRules()
		}
		def := cfg.DefaultResponse
		if def == "" {
			def = DefaultRuleResponse
		}
		return model.NewRuleBased(def, rules...), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderLocalAI:
		return newLocalAI(cfg), nil
	case config.ProviderGollm:
		return gollm.NewModel(func(o *gollm.Options) {
			if cfg.Backend != "" {
				o.Provider = cfg.Backend
			}
			o.Model = cfg.Model
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
		})
	default:
		return nil, fmt.Errorf("unsupported reasoner provider %q", cfg.Provider)
	}
}

func newLocalAI(cfg config.ReasonerConfig) *localai.Model {
	return localai.NewModel(func(o *localai.Options) {
		if cfg.BaseURL != "" {
			o.BaseURL = cfg.BaseURL
		}
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
		if cfg.APIKey != "" {
			o.APIKey = cfg.APIKey
		}
		o.Temperature = float32(cfg.Temperature)
		o.MaxTokens = cfg.MaxTokens
	})
}

// ErrNoModelListing is returned by ListModels for providers without a
// model listing endpoint.
var ErrNoModelListing = errors.New("provider does not list models")

// ListModels lists the models served by an OpenAI-compatible local server.
func ListModels(ctx context.Context, cfg config.ReasonerConfig) ([]string, error) {
	if cfg.Provider != config.ProviderLocalAI {
		return nil, fmt.Errorf("%w: %s", ErrNoModelListing, cfg.Provider)
	}
	return newLocalAI(cfg).ListModels(ctx)
}

// NewRegistry registers the capabilities enabled in cfg. A nil driver
// selects xdotool.
func NewRegistry(cfg config.ToolsConfig, driver desktop.Driver) (*tool.Registry, error) {
	registry := tool.NewRegistry()

	if cfg.Shell.Enabled {
		runner := shell.NewRunner()
		runner.Dir = cfg.Shell.Dir
		if t := cfg.Shell.Timeout.Std(); t > 0 {
			runner.Timeout = t
		}
		if err := registry.Register(shell.NewTool(runner)); err != nil {
			return nil, err
		}
	}
	if cfg.SysInfo.Enabled {
		if err := registry.Register(sysinfo.NewTool(cfg.SysInfo.Path)); err != nil {
			return nil, err
		}
	}
	if cfg.Desktop.Enabled {
		if driver == nil {
			x := desktop.NewXDoTool()
			if cfg.Desktop.TypeDelayMs > 0 {
				x.TypeDelayMs = cfg.Desktop.TypeDelayMs
			}
			driver = x
		}
		if err := registry.RegisterFamily(desktop.NewFamily(driver)); err != nil {
			return nil, err
		}
		if err := registry.Register(desktop.NewScreenshotTool(driver)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
