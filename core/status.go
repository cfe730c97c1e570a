package core

// MetricsSnapshot is a point-in-time copy of the agent's monotonic counters.
type MetricsSnapshot struct {
	TasksCompleted  int64 `json:"tasks_completed"`
	ActionsExecuted int64 `json:"actions_executed"`
	ErrorsRecovered int64 `json:"errors_recovered"`
}

// Status is the read-only snapshot returned by Agent.Status.
type Status struct {
	Name          string          `json:"name"`
	Version       string          `json:"version"`
	Model         string          `json:"model"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Metrics       MetricsSnapshot `json:"metrics"`
	MemorySize    int             `json:"memory_size"`
	Timestamp     string          `json:"timestamp"`
}
