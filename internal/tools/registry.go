package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the available tools, keyed by unique name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	def := t.Definition()
	if def.Name == "" {
		return fmt.Errorf("tool has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.tools[def.Name] = t
	return nil
}

// MustRegister registers a tool and panics on conflict. Used at
// startup where a duplicate name is a programming error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns all tool definitions, sorted by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Manifest renders the tool list as text for the system prompt, one
// line per tool, grouped by category.
func (r *Registry) Manifest() string {
	defs := r.Definitions()
	byCategory := make(map[string][]Definition)
	var categories []string
	for _, d := range defs {
		cat := d.Category
		if cat == "" {
			cat = "general"
		}
		if _, seen := byCategory[cat]; !seen {
			categories = append(categories, cat)
		}
		byCategory[cat] = append(byCategory[cat], d)
	}
	sort.Strings(categories)

	var b strings.Builder
	for i, cat := range categories {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s\n", cat)
		for _, d := range byCategory[cat] {
			fmt.Fprintf(&b, "- %s\n", d.String())
		}
	}
	return b.String()
}
