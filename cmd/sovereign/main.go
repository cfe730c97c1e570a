package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hupe1980/sovereign"
	"github.com/hupe1980/sovereign/config"
	"github.com/hupe1980/sovereign/journal"
	"github.com/hupe1980/sovereign/logging"
)

var (
	// Commit is set via -ldflags at build time.
	Commit = "unknown"
	// BuildTime is set via -ldflags at build time.
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "models":
		err = modelsCmd(ctx, os.Args[2:])
	case "analyze":
		err = analyzeCmd(ctx, os.Args[2:])
	case "self-test":
		err = selfTestCmd(ctx, os.Args[2:])
	case "history":
		err = historyCmd(ctx, os.Args[2:])
	case "version":
		fmt.Printf("sovereign %s (%s) %s\n", sovereign.Version, Commit, BuildTime)
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sovereign %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `sovereign

Usage:
  sovereign run -task "..." [flags]
  sovereign models [flags]
  sovereign analyze [flags]
  sovereign self-test [flags]
  sovereign history [flags]
  sovereign version

Commands:
  run         Execute a task with the Think-Act-Observe loop and print the result and status.
  models      List the models served by the local OpenAI-compatible server.
  analyze     Report potential optimizations in the configured code base.
  self-test   Run the configured test command.
  history     Print recent executions from the journal.
  version     Print build information.

`)
}

type common struct {
	configPath string
	logLevel   string
	logFormat  string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug|info|warn|error (empty: from config)")
	fs.StringVar(&c.logFormat, "log-format", "", "Log format: json|text|auto (empty: from config)")
}

// setup loads the configuration and builds the logger.
func (c *common) setup() (*config.Config, logging.Logger, io.Closer, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	logger, closer, err := logging.New(logging.Config{
		Level:     logging.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		File:      cfg.Log.File,
		Component: "sovereign",
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, logger, closer, nil
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var c common
	c.register(fs)
	task := fs.String("task", "", "Task to execute (default: remaining arguments)")
	enableLive := fs.Bool("live", false, "Stream actions to the configured live session")
	maxIterations := fs.Int("max-iterations", 0, "Override agent.max_iterations")
	_ = fs.Parse(args)

	if *task == "" {
		*task = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(*task) == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg, logger, closer, err := c.setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	if *maxIterations > 0 {
		cfg.Agent.MaxIterations = *maxIterations
	}
	if *enableLive {
		cfg.Live.Enabled = true
	}

	s, err := sovereign.New(cfg, func(o *sovereign.Options) {
		o.Logger = logger
		o.LiveHandler = func(msg any) { logger.Info("live.message", "message", msg) }
	})
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Println(s.Execute(ctx, *task, *enableLive))
	return printJSON(s.Status())
}

func modelsCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	var c common
	c.register(fs)
	baseURL := fs.String("base-url", "", "Override reasoner.base_url")
	_ = fs.Parse(args)

	cfg, _, closer, err := c.setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	rc := cfg.Reasoner
	rc.Provider = config.ProviderLocalAI
	if *baseURL != "" {
		rc.BaseURL = *baseURL
	}
	models, err := sovereign.ListModels(ctx, rc)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Println(m)
	}
	return nil
}

func analyzeCmd(ctx context.Context, args []string) error {
	s, closer, err := evolutionAgent("analyze", args)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer s.Close()

	out, err := s.Analyze(ctx)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func selfTestCmd(ctx context.Context, args []string) error {
	s, closer, err := evolutionAgent("self-test", args)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer s.Close()

	out, err := s.SelfTest(ctx)
	fmt.Println(out)
	return err
}

func evolutionAgent(name string, args []string) (*sovereign.Sovereign, io.Closer, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var c common
	c.register(fs)
	baseDir := fs.String("dir", "", "Override evolution.base_dir")
	_ = fs.Parse(args)

	cfg, logger, closer, err := c.setup()
	if err != nil {
		return nil, nil, err
	}
	cfg.Evolution.Enabled = true
	if *baseDir != "" {
		cfg.Evolution.BaseDir = *baseDir
	}
	s, err := sovereign.New(cfg, func(o *sovereign.Options) { o.Logger = logger })
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return s, closer, nil
}

func historyCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	var c common
	c.register(fs)
	limit := fs.Int("n", 10, "Number of executions")
	steps := fs.Bool("steps", false, "Include the steps of each execution")
	_ = fs.Parse(args)

	cfg, _, closer, err := c.setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	if cfg.Journal.Path == "" {
		return errors.New("journal.path is not configured")
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	execs, err := j.Executions(ctx, *limit)
	if err != nil {
		return err
	}
	if !*steps {
		return printJSON(execs)
	}

	type entry struct {
		journal.Execution
		Steps []journal.Step `json:"steps"`
	}
	out := make([]entry, 0, len(execs))
	for _, e := range execs {
		st, err := j.Steps(ctx, e.ID)
		if err != nil {
			return err
		}
		out = append(out, entry{Execution: e, Steps: st})
	}
	return printJSON(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
