package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/term"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps debug|info|warn|error (case insensitive) to a LogLevel.
// Unknown values yield LogLevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger defines the minimal logging interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{Logger: logger}
}

// Config configures New.
type Config struct {
	Level LogLevel
	// Format is json, text or auto. auto selects text when Output is a terminal.
	Format string
	// Output receives console records. Defaults to os.Stdout.
	Output io.Writer
	// File, when set, additionally receives JSON records (appended).
	File      string
	AddSource bool
	// Component is attached to every record when set.
	Component string
}

// New builds a slog logger fanning out to the console and an optional log
// file. The returned closer releases the file and must be called on shutdown.
func New(cfg Config) (*SlogAdapter, io.Closer, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level.slog(), AddSource: cfg.AddSource}

	handlers := []slog.Handler{consoleHandler(out, cfg.Format, opts)}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closer = f
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	if cfg.Component != "" {
		logger = logger.With("component", cfg.Component)
	}
	return NewSlogAdapter(logger), closer, nil
}

func consoleHandler(out io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	switch format {
	case "text":
		return slog.NewTextHandler(out, opts)
	case "json", "":
		return slog.NewJSONHandler(out, opts)
	default: // auto
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return slog.NewTextHandler(out, opts)
		}
		return slog.NewJSONHandler(out, opts)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LogToolCall records execution details for a tool invocation.
func LogToolCall(l Logger, tool string, dur time.Duration, err error) {
	if err != nil {
		l.Error("tool.call.error", "tool", tool, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	l.Info("tool.call.success", "tool", tool, "duration_ms", dur.Milliseconds())
}

// LogReasonerCall records completion latency and success.
func LogReasonerCall(l Logger, model string, dur time.Duration, err error) {
	if err != nil {
		l.Warn("reasoner.call.error", "model", model, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	l.Debug("reasoner.call.success", "model", model, "duration_ms", dur.Milliseconds())
}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
