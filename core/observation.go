package core

// Observation is the textual result of dispatching an Action.
//
// Recovered distinguishes failures that originated from a fault (tool error,
// panic, timeout) from ordinary negative results such as an unknown tool name.
// The control loop counts recovered failures in Metrics.ErrorsRecovered.
//
// Params holds the parameters the tool was invoked with after positional
// aliasing and defaulting. It is nil when no tool was invoked.
type Observation struct {
	Action    Action         `json:"action"`
	Params    map[string]any `json:"params,omitempty"`
	Result    string         `json:"result"`
	IsError   bool           `json:"is_error"`
	Recovered bool           `json:"recovered,omitempty"`
}

// NewObservation creates a successful observation for action.
func NewObservation(action Action, result string) Observation {
	return Observation{Action: action, Result: result}
}

// NewErrorObservation creates a failed observation for action.
func NewErrorObservation(action Action, msg string, recovered bool) Observation {
	return Observation{Action: action, Result: msg, IsError: true, Recovered: recovered}
}

// InvokedParams returns Params, or the action's own params when no tool was
// invoked.
func (o Observation) InvokedParams() map[string]any {
	if o.Params != nil {
		return o.Params
	}
	return o.Action.Params
}

// MemoryText is the content appended to memory for this observation.
func (o Observation) MemoryText() string { return "Observation: " + o.Result }
