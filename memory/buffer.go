package memory

import (
	"strings"
	"sync"

	"github.com/hupe1980/sovereign/core"
)

const (
	// ContentBudget is the maximum number of runes of an entry's content
	// rendered into a prompt window.
	ContentBudget = 100
	// DefaultWindow is the number of recent entries rendered by default.
	DefaultWindow = 5
)

// Buffer is an append-only log of memory entries.
//
// Concurrency: protected by RWMutex so that readers such as status snapshots
// can observe the size while an execution appends.
type Buffer struct {
	mu      sync.RWMutex
	entries []core.MemoryEntry
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{entries: make([]core.MemoryEntry, 0, 16)}
}

// Append records a new entry and returns it.
func (b *Buffer) Append(role core.Role, content string) core.MemoryEntry {
	e := core.NewMemoryEntry(role, content)
	b.mu.Lock()
	b.entries = append(b.entries, e)
	b.mu.Unlock()
	return e
}

// Reset discards all entries and seeds the buffer with a single user entry
// holding task.
func (b *Buffer) Reset(task string) core.MemoryEntry {
	e := core.NewMemoryEntry(core.RoleUser, task)
	b.mu.Lock()
	b.entries = []core.MemoryEntry{e}
	b.mu.Unlock()
	return e
}

// Len returns the number of entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Last returns the most recent entry, if any.
func (b *Buffer) Last() (core.MemoryEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.entries) == 0 {
		return core.MemoryEntry{}, false
	}
	return b.entries[len(b.entries)-1], true
}

// Entries returns a copy of all entries in insertion order.
func (b *Buffer) Entries() []core.MemoryEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.MemoryEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// RenderWindow formats the most recent n entries as "ROLE: content" lines.
// Fewer lines are rendered when the history is shorter than n.
func (b *Buffer) RenderWindow(n int) string {
	if n <= 0 {
		return ""
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := len(b.entries) - n
	if start < 0 {
		start = 0
	}

	var sb strings.Builder
	for _, e := range b.entries[start:] {
		sb.WriteString(strings.ToUpper(string(e.Role)))
		sb.WriteString(": ")
		sb.WriteString(Truncate(e.Content, ContentBudget))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Truncate returns at most limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
