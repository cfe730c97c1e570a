// Package model isolates the agent from its reasoning provider.
//
// Providers implement core.Reasoner (see the openai, anthropic, localai and
// gollm subpackages, or the deterministic RuleBased provider). The Adapter
// wraps a provider with a bounded wait, retry with exponential backoff and
// panic recovery, and degrades every failure into a Thought carrying a
// fallback text instead of propagating it to the control loop.
package model
