// Package shell exposes host command execution as the execute_shell tool.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// DefaultTimeout bounds a single command.
const DefaultTimeout = 10 * time.Second

// sensitiveEnvSuffixes are case-insensitive suffixes for environment
// variables never passed to child processes.
var sensitiveEnvSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// ExecResult is the outcome of a command.
type ExecResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
}

// Runner executes commands through the platform shell.
type Runner struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is appended to the filtered host environment.
	Env map[string]string
	// Timeout bounds each command. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewRunner creates a Runner with the default timeout.
func NewRunner() *Runner {
	return &Runner{Timeout: DefaultTimeout}
}

// Run executes command and waits at most timeout (Runner.Timeout when zero).
// A non-zero exit or a timeout is reported through ExecResult; the error is
// reserved for failures to start the process.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout <= 0 {
		timeout = r.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sh, flag := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		sh, flag = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, sh, flag, command)
	cmd.Dir = r.Dir
	cmd.Env = r.environment()
	// Grandchildren may keep the pipes open after the shell is killed.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	res := &ExecResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err == nil {
		return res, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return nil, fmt.Errorf("exec %q: %w", command, err)
}

func (r *Runner) environment() []string {
	env := FilterEnvironment(os.Environ())
	for k, v := range r.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// FilterEnvironment drops variables that look like credentials.
func FilterEnvironment(environ []string) []string {
	filtered := make([]string, 0, len(environ))
	for _, kv := range environ {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || isSensitive(name) {
			continue
		}
		filtered = append(filtered, kv)
	}
	return filtered
}

func isSensitive(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveEnvSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}
