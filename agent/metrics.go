package agent

import (
	"sync/atomic"

	"github.com/hupe1980/sovereign/core"
)

// metrics holds the agent's monotonic counters. Fields are only incremented,
// and snapshots may be taken concurrently with a running loop.
type metrics struct {
	tasksCompleted  atomic.Int64
	actionsExecuted atomic.Int64
	errorsRecovered atomic.Int64
}

func (m *metrics) snapshot() core.MetricsSnapshot {
	return core.MetricsSnapshot{
		TasksCompleted:  m.tasksCompleted.Load(),
		ActionsExecuted: m.actionsExecuted.Load(),
		ErrorsRecovered: m.errorsRecovered.Load(),
	}
}
