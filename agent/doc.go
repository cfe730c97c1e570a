// Package agent implements the bounded Think-Act-Observe loop.
//
// An Agent owns a memory buffer, an action parser, a tool dispatcher and a
// reasoner adapter. Each Run resets memory to the task and iterates:
//
//  1. Render the most recent memory entries as history
//  2. Ask the reasoner for the next step (failures degrade to a fallback)
//  3. Parse an action from the reasoning text
//  4. Return the answer of a final_answer action, or dispatch the action and
//     append the thought and its observation to memory
//
// The loop ends with a final answer, with no usable reasoning, or when the
// iteration budget is exhausted. None of these is reported as an error.
//
// Optional collaborators hook into a run without being able to fail it: a
// live session receives every action, a journal records every step, and an
// evolution module backs Analyze, SelfTest and ApplyImprovement.
package agent
