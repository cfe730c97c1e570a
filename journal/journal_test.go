package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "data", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_Lifecycle(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	id, err := j.Begin(ctx, "check disk")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, j.RecordStep(ctx, Step{
		ExecutionID: id,
		Iteration:   0,
		Thought:     "Action: system_info()",
		Action:      "system_info",
		Observation: "disk: 10 GiB free",
	}))
	require.NoError(t, j.RecordStep(ctx, Step{
		ExecutionID: id,
		Iteration:   1,
		Thought:     "Action: execute_shell(cmd='df -h')",
		Action:      "execute_shell",
		Params:      map[string]any{"command": "df -h"},
		Observation: "Error executing execute_shell: boom",
		IsError:     true,
	}))
	require.NoError(t, j.Finish(ctx, id, "final_answer", "done", 2))

	execs, err := j.Executions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "check disk", execs[0].Task)
	assert.Equal(t, "final_answer", execs[0].State)
	assert.Equal(t, "done", execs[0].Result)
	assert.Equal(t, 2, execs[0].Iterations)
	assert.NotZero(t, execs[0].FinishedAtMs)

	steps, err := j.Steps(ctx, id)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "system_info", steps[0].Action)
	assert.Nil(t, steps[0].Params)
	assert.False(t, steps[0].IsError)
	assert.Equal(t, map[string]any{"command": "df -h"}, steps[1].Params)
	assert.True(t, steps[1].IsError)
}

func TestJournal_FinishUnknown(t *testing.T) {
	j := openTemp(t)
	assert.Error(t, j.Finish(context.Background(), "nope", "final_answer", "", 0))
}

func TestJournal_Nil(t *testing.T) {
	var j *Journal
	_, err := j.Begin(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, j.Close())
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
