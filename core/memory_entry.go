package core

import (
	"time"

	"github.com/google/uuid"
)

// Role tags the author of a MemoryEntry.
type Role string

const (
	// RoleUser marks the task supplied by the caller.
	RoleUser Role = "user"
	// RoleAssistant marks reasoning produced by the Reasoner.
	RoleAssistant Role = "assistant"
	// RoleSystem marks observations fed back by the control loop.
	RoleSystem Role = "system"
)

// MemoryEntry is a single immutable turn in the agent's working memory.
type MemoryEntry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMemoryEntry stamps a new entry with a unique id and the current UTC time.
func NewMemoryEntry(role Role, content string) MemoryEntry {
	return MemoryEntry{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewID generates a new unique identifier.
func NewID() string { return uuid.NewString() }
