package shell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/sovereign/internal/util"
	"github.com/hupe1980/sovereign/tool"
)

// ToolName is the action name of the shell tool.
const ToolName = "execute_shell"

type params struct {
	Command        string `json:"command" description:"Shell command to run"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" description:"Optional timeout override in seconds"`
}

// NewTool exposes runner as the execute_shell tool.
//
// The observation is stdout, followed by stderr when present. A non-zero exit
// status or a timeout is returned as an error so the dispatcher records a
// failed observation.
func NewTool(runner *Runner) *tool.FunctionTool {
	return tool.NewFunctionToolFromStruct(
		ToolName,
		"Run a terminal command on the host and return its output.",
		params{},
		func(ctx context.Context, p map[string]any) (string, error) {
			command := strings.TrimSpace(util.String(p, "command"))
			if command == "" {
				return "", fmt.Errorf("empty command")
			}
			timeout := time.Duration(util.Int(p, "timeout_seconds")) * time.Second

			res, err := runner.Run(ctx, command, timeout)
			if err != nil {
				return "", err
			}
			if res.TimedOut {
				return "", fmt.Errorf("command timed out")
			}
			if res.ExitCode != 0 {
				return "", fmt.Errorf("exit status %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
			}
			return FormatOutput(res), nil
		},
	)
}

// FormatOutput renders a successful result as observation text.
func FormatOutput(res *ExecResult) string {
	out := strings.TrimRight(res.Stdout, "\n")
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		if out != "" {
			out += "\n"
		}
		out += "STDERR: " + errOut
	}
	if out == "" {
		return "(no output)"
	}
	return out
}
