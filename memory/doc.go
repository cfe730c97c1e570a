// Package memory contains the agent's working memory: an append-only,
// role-tagged log of conversational turns with a bounded render window.
//
// Only the most recent entries are rendered into prompts and every entry's
// content is cut to a fixed rune budget. Truncation appends no marker, so a
// rendered line must not be assumed to be semantically complete.
package memory
