package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/sovereign/action"
	"github.com/hupe1980/sovereign/core"
	"github.com/hupe1980/sovereign/journal"
	"github.com/hupe1980/sovereign/live"
	"github.com/hupe1980/sovereign/logging"
	"github.com/hupe1980/sovereign/memory"
	"github.com/hupe1980/sovereign/model"
	"github.com/hupe1980/sovereign/tool"
)

// State is the state of the Think-Act-Observe state machine.
type State string

const (
	StateRunning       State = "running"
	StateFinalAnswer   State = "final_answer"
	StateMaxIterations State = "max_iterations"
	StateNoThought     State = "no_thought"
)

const (
	DefaultName          = "Sovereign"
	DefaultVersion       = "2.0"
	DefaultMaxIterations = 10

	// MaxIterationsResult is returned when the iteration budget is exhausted.
	MaxIterationsResult = "Task completed (max iterations reached)"
	// NoThoughtResult is returned when the reasoner produced no usable text.
	NoThoughtResult = "Task aborted (no reasoning available)"

	malformedMessage = "malformed action: expected 'Action: <tool_name>(<params>)'"
)

// ErrNoEvolution is returned by the self-improvement methods when no
// evolution collaborator is configured.
var ErrNoEvolution = errors.New("self-improvement not configured")

// LiveSession is the optional live-session hook.
type LiveSession interface {
	Start(ctx context.Context) error
	Broadcast(v any) error
	Stop() error
}

// Recorder persists executions. *journal.Journal satisfies it.
type Recorder interface {
	Begin(ctx context.Context, task string) (string, error)
	RecordStep(ctx context.Context, step journal.Step) error
	Finish(ctx context.Context, id, state, result string, iterations int) error
}

// Evolver analyzes, tests and patches the agent's own code.
// *evolution.Module satisfies it.
type Evolver interface {
	AnalyzeCodebase(ctx context.Context) (string, error)
	RunSelfTest(ctx context.Context) (string, error)
	ApplyImprovement(path, content string) error
}

// Options configures an Agent.
type Options struct {
	Version string
	// Model overrides the model name reported by Status.
	Model         string
	MaxIterations int
	// HistoryWindow is the number of memory entries rendered per step.
	HistoryWindow int
	// Interval pauses between iterations.
	Interval time.Duration

	// ParserStrict turns reasoning without an action marker into a
	// malformed_action observation instead of a final answer.
	ParserStrict bool
	// DispatchStrict rejects actions with missing required params.
	DispatchStrict bool
	ToolTimeout    time.Duration

	ReasonerTimeout time.Duration
	ReasonerRetry   model.RetryPolicy
	// FallbackText replaces the reasoning when the provider fails. Blank
	// text terminates the loop with StateNoThought.
	FallbackText string

	Instruction Instruction
	Live        LiveSession
	Journal     Recorder
	Evolution   Evolver
	Logger      logging.Logger
}

// Result is the outcome of a Run.
type Result struct {
	Output     string `json:"output"`
	State      State  `json:"state"`
	Iterations int    `json:"iterations"`
}

// Agent runs the bounded Think-Act-Observe loop.
//
// Run and Execute are serialised per instance. Status, Metrics and Memory
// may be called concurrently, including while a loop is running.
type Agent struct {
	name       string
	opts       Options
	adapter    *model.Adapter
	parser     action.Parser
	dispatcher *tool.Dispatcher
	memory     *memory.Buffer
	metrics    metrics
	started    time.Time

	mu sync.Mutex
}

// New creates an agent reasoning with reasoner and acting through registry.
//
// Defaults: 10 iterations, a history window of 5 entries, no interval,
// permissive parsing and dispatch, one reasoner retry.
func New(name string, reasoner core.Reasoner, registry *tool.Registry, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Version:         DefaultVersion,
		MaxIterations:   DefaultMaxIterations,
		HistoryWindow:   memory.DefaultWindow,
		ToolTimeout:     tool.DefaultTimeout,
		ReasonerTimeout: model.DefaultTimeout,
		ReasonerRetry:   model.DefaultRetryPolicy(),
		Instruction:     NewInstructionFromText(DefaultInstruction),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if name == "" {
		name = DefaultName
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.HistoryWindow < 1 {
		opts.HistoryWindow = memory.DefaultWindow
	}
	if opts.Instruction.IsZero() {
		opts.Instruction = NewInstructionFromText(DefaultInstruction)
	}
	if registry == nil {
		registry = tool.NewRegistry()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Agent{
		name: name,
		opts: opts,
		adapter: model.NewAdapter(reasoner, func(o *model.Options) {
			o.Timeout = opts.ReasonerTimeout
			o.Retry = opts.ReasonerRetry
			o.FallbackText = opts.FallbackText
			o.Logger = opts.Logger
		}),
		parser: action.Parser{Strict: opts.ParserStrict, Declared: registry.Declares},
		dispatcher: tool.NewDispatcher(registry, func(o *tool.DispatchOptions) {
			o.Strict = opts.DispatchStrict
			o.Timeout = opts.ToolTimeout
			o.Logger = opts.Logger
		}),
		memory:  memory.NewBuffer(),
		started: time.Now(),
	}
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Registry returns the tool registry.
func (a *Agent) Registry() *tool.Registry { return a.dispatcher.Registry() }

// Execute runs task and returns the textual result. It never fails.
func (a *Agent) Execute(ctx context.Context, task string, enableLive bool) string {
	return a.Run(ctx, task, enableLive).Output
}

// Run resets memory to task and iterates think, act and observe until a
// final answer, a missing thought or the iteration budget ends the loop.
func (a *Agent) Run(ctx context.Context, task string, enableLive bool) (res Result) {
	a.mu.Lock()
	defer a.mu.Unlock()

	logger := a.opts.Logger
	logger.Info("agent.execute.start", "agent", a.name, "task", task, "max_iterations", a.opts.MaxIterations)

	a.memory.Reset(task)
	systemPrompt := a.systemPrompt()

	execID := a.begin(ctx, task)
	defer func() {
		a.finish(ctx, execID, res)
		logger.Info("agent.execute.end", "agent", a.name, "state", string(res.State), "iterations", res.Iterations)
	}()

	var session LiveSession
	if enableLive && a.opts.Live != nil {
		session = a.opts.Live
		if err := session.Start(ctx); err != nil {
			logger.Warn("agent.live.start.error", "error", err.Error())
		}
		defer func() {
			if err := session.Stop(); err != nil {
				logger.Warn("agent.live.stop.error", "error", err.Error())
			}
		}()
	}

	for i := 0; i < a.opts.MaxIterations; i++ {
		logger.Debug("agent.iteration.start", "iteration", i)

		thought := a.adapter.Complete(ctx, systemPrompt, a.memory.RenderWindow(a.opts.HistoryWindow))
		if thought.Err != nil {
			a.metrics.errorsRecovered.Add(1)
			logger.Warn("agent.reasoner.failure", "iteration", i, "error", thought.Err.Error())
		}
		if !thought.Usable() {
			return Result{Output: NoThoughtResult, State: StateNoThought, Iterations: i + 1}
		}

		act := a.parser.Parse(thought.Text)
		if act.IsFinal() {
			answer := act.Answer()
			if answer == "" {
				answer = thought.Text
			}
			a.memory.Append(core.RoleAssistant, answer)
			a.metrics.tasksCompleted.Add(1)

			a.record(ctx, execID, journal.Step{Iteration: i, Thought: thought.Text, Action: act.Name, Observation: answer})
			a.broadcast(session, live.NewEvent(live.EventFinalAnswer, act.Name, nil, answer))
			return Result{Output: answer, State: StateFinalAnswer, Iterations: i + 1}
		}

		obs := a.act(ctx, act)
		a.memory.Append(core.RoleAssistant, thought.Text)
		a.memory.Append(core.RoleSystem, obs.MemoryText())
		a.metrics.actionsExecuted.Add(1)
		if obs.Recovered {
			a.metrics.errorsRecovered.Add(1)
		}
		logger.Info("agent.action", "iteration", i, "action", act.Name, "is_error", obs.IsError)

		a.record(ctx, execID, journal.Step{
			Iteration:   i,
			Thought:     thought.Text,
			Action:      act.Name,
			Params:      obs.InvokedParams(),
			Observation: obs.Result,
			IsError:     obs.IsError,
		})
		a.broadcast(session, live.NewEvent(live.EventAction, act.Name, obs.InvokedParams(), obs.Result))

		if i < a.opts.MaxIterations-1 {
			a.pause(ctx)
		}
	}

	return Result{Output: MaxIterationsResult, State: StateMaxIterations, Iterations: a.opts.MaxIterations}
}

func (a *Agent) act(ctx context.Context, act core.Action) core.Observation {
	if act.Name == core.ActionMalformed {
		return core.NewErrorObservation(act, malformedMessage, false)
	}
	return a.dispatcher.Dispatch(ctx, act)
}

func (a *Agent) pause(ctx context.Context) {
	if a.opts.Interval <= 0 {
		return
	}
	timer := time.NewTimer(a.opts.Interval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (a *Agent) systemPrompt() string {
	data := PromptData{Name: a.name, Version: a.opts.Version}
	for _, d := range a.dispatcher.Registry().Definitions() {
		data.Tools = append(data.Tools, ToolInfo{Name: d.Name, Signature: d.Signature(), Description: d.Description})
	}
	text, err := a.opts.Instruction.Resolve(data)
	if err == nil {
		return text
	}
	a.opts.Logger.Warn("agent.instruction.error", "error", err.Error())
	text, _ = NewInstructionFromText(DefaultInstruction).Resolve(data)
	return text
}

func (a *Agent) begin(ctx context.Context, task string) string {
	if a.opts.Journal == nil {
		return ""
	}
	id, err := a.opts.Journal.Begin(ctx, task)
	if err != nil {
		a.opts.Logger.Warn("agent.journal.error", "op", "begin", "error", err.Error())
		return ""
	}
	return id
}

func (a *Agent) record(ctx context.Context, id string, step journal.Step) {
	if id == "" {
		return
	}
	step.ExecutionID = id
	if err := a.opts.Journal.RecordStep(ctx, step); err != nil {
		a.opts.Logger.Warn("agent.journal.error", "op", "step", "error", err.Error())
	}
}

func (a *Agent) finish(ctx context.Context, id string, res Result) {
	if id == "" {
		return
	}
	if err := a.opts.Journal.Finish(context.WithoutCancel(ctx), id, string(res.State), res.Output, res.Iterations); err != nil {
		a.opts.Logger.Warn("agent.journal.error", "op", "finish", "error", err.Error())
	}
}

func (a *Agent) broadcast(session LiveSession, ev live.Event) {
	if session == nil {
		return
	}
	if err := session.Broadcast(ev); err != nil {
		a.opts.Logger.Warn("agent.live.broadcast.error", "error", err.Error())
	}
}

// Metrics returns a snapshot of the counters.
func (a *Agent) Metrics() core.MetricsSnapshot { return a.metrics.snapshot() }

// Memory returns a copy of the current memory.
func (a *Agent) Memory() []core.MemoryEntry { return a.memory.Entries() }

// Status returns a read-only snapshot of the agent.
func (a *Agent) Status() core.Status {
	modelName := a.opts.Model
	if modelName == "" {
		modelName = a.adapter.Model()
	}
	return core.Status{
		Name:          a.name,
		Version:       a.opts.Version,
		Model:         modelName,
		UptimeSeconds: time.Since(a.started).Seconds(),
		Metrics:       a.metrics.snapshot(),
		MemorySize:    a.memory.Len(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}
