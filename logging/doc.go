// Package logging provides a minimal logging interface and slog based adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn,
// Error) that the agent, dispatcher and providers use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - New, which fans records out to the console and an optional log file
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger, closer, err := logging.New(logging.Config{Level: logging.LogLevelInfo, Format: "auto"})
//	if err != nil { ... }
//	defer closer.Close()
//	ag := agent.New("sovereign", reasoner, registry, func(o *agent.Options) { o.Logger = logger })
//
// Messages are dotted event names (agent.iteration.start, tool.call.error)
// followed by key/value attributes.
package logging
