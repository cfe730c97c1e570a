// Package core provides the foundational domain types and contracts shared by
// every sovereign package. It defines:
//
//   - Memory entries (role-tagged, append-only conversational turns)
//   - Actions (structured tool invocation requests parsed from reasoning text)
//   - Observations (the textual outcome of dispatching an Action)
//   - Metrics and Status snapshots exposed read-only by the agent
//   - The Reasoner and Tool contracts consumed by the control loop
//
// The package intentionally keeps implementation concerns (prompt rendering,
// parsing, dispatch, provider SDKs) out of scope so that leaf packages can
// depend on it without introducing cycles.
package core
