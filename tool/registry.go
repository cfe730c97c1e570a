package tool

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Family groups tools sharing a name prefix behind one capability provider.
// The registry routes any name carrying the prefix to the family, which
// resolves the full name through its own operation table. The table has its
// own lock, so operations may be added after registration.
type Family struct {
	name        string
	prefix      string
	description string

	mu  sync.RWMutex
	ops map[string]Tool
}

// NewFamily creates an empty family. Every operation name must start with prefix.
func NewFamily(name, prefix, description string) *Family {
	return &Family{name: name, prefix: prefix, description: description, ops: make(map[string]Tool)}
}

// Name returns the family identifier.
func (f *Family) Name() string { return f.name }

// Prefix returns the name prefix routed to this family.
func (f *Family) Prefix() string { return f.prefix }

// Description returns a summary of the family.
func (f *Family) Description() string { return f.description }

// Add registers operations with the family.
func (f *Family) Add(ops ...Tool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		if !strings.HasPrefix(op.Name(), f.prefix) {
			return fmt.Errorf("tool %q does not match family prefix %q", op.Name(), f.prefix)
		}
		if _, exists := f.ops[op.Name()]; exists {
			return fmt.Errorf("tool %q already registered in family %q", op.Name(), f.name)
		}
		f.ops[op.Name()] = op
	}
	return nil
}

// Route resolves a full action name to exactly one operation.
func (f *Family) Route(name string) (Tool, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	op, ok := f.ops[name]
	return op, ok
}

// Operations returns the family's operation names sorted.
func (f *Family) Operations() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return sortedKeys(f.ops)
}

// Registry maps stable action names to tools.
//
// Lookup order: exact name match first, then the family with the longest
// matching prefix. Concurrency: protected by RWMutex.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	families []*Family
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds standalone tools. Duplicate names are rejected.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		if t == nil || t.Name() == "" {
			return fmt.Errorf("tool must have a name")
		}
		if _, exists := r.tools[t.Name()]; exists {
			return fmt.Errorf("tool %q already registered", t.Name())
		}
		r.tools[t.Name()] = t
	}
	return nil
}

// RegisterFamily adds a name family. Families with equal prefixes are rejected.
func (r *Registry) RegisterFamily(f *Family) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.families {
		if existing.prefix == f.prefix {
			return fmt.Errorf("family prefix %q already registered", f.prefix)
		}
	}
	r.families = append(r.families, f)
	sort.SliceStable(r.families, func(i, j int) bool {
		return len(r.families[i].prefix) > len(r.families[j].prefix)
	})
	return nil
}

// MustRegister is like Register but panics on error. Intended for static wiring.
func (r *Registry) MustRegister(tools ...Tool) *Registry {
	if err := r.Register(tools...); err != nil {
		panic(err)
	}
	return r
}

// Lookup resolves an action name to a tool.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.tools[name]; ok {
		return t, true
	}
	if f := r.familyFor(name); f != nil {
		return f.Route(name)
	}
	return nil, false
}

// Declares reports whether the tool resolved from name declares the
// parameter key in its schema.
func (r *Registry) Declares(name, key string) bool {
	t, ok := r.Lookup(name)
	if !ok {
		return false
	}
	properties, _ := t.Parameters()["properties"].(map[string]any)
	_, ok = properties[key]
	return ok
}

// FamilyFor returns the family whose prefix matches name, if any.
func (r *Registry) FamilyFor(name string) (*Family, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f := r.familyFor(name)
	return f, f != nil
}

func (r *Registry) familyFor(name string) *Family {
	for _, f := range r.families {
		if strings.HasPrefix(name, f.prefix) {
			return f
		}
	}
	return nil
}

// Names returns all resolvable action names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := sortedKeys(r.tools)
	for _, f := range r.families {
		names = append(names, f.Operations()...)
	}
	sort.Strings(names)
	return names
}

// Definitions returns descriptions of every resolvable tool sorted by name.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	defs := make([]Definition, 0, len(names))
	for _, n := range names {
		t, ok := r.Lookup(n)
		if !ok {
			continue
		}
		defs = append(defs, Definition{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	return defs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
