package agent

import "context"

// Analyze reports potential optimizations in the agent's own code base.
// It runs outside the Think-Act-Observe loop.
func (a *Agent) Analyze(ctx context.Context) (string, error) {
	if a.opts.Evolution == nil {
		return "", ErrNoEvolution
	}
	a.opts.Logger.Info("agent.evolution.analyze", "agent", a.name)
	return a.opts.Evolution.AnalyzeCodebase(ctx)
}

// SelfTest runs the agent's test suite.
func (a *Agent) SelfTest(ctx context.Context) (string, error) {
	if a.opts.Evolution == nil {
		return "", ErrNoEvolution
	}
	a.opts.Logger.Info("agent.evolution.self_test", "agent", a.name)
	return a.opts.Evolution.RunSelfTest(ctx)
}

// ApplyImprovement overwrites a source file below the evolution base directory.
func (a *Agent) ApplyImprovement(path, content string) error {
	if a.opts.Evolution == nil {
		return ErrNoEvolution
	}
	a.opts.Logger.Info("agent.evolution.apply", "agent", a.name, "file", path)
	return a.opts.Evolution.ApplyImprovement(path, content)
}
