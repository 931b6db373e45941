// Package search provides a pluggable web search capability for the
// agent. Providers implement [Provider] and register with a [Manager],
// which routes queries to the primary provider and falls back to a
// secondary when the primary fails.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Result is a single search result.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Options are optional query parameters.
type Options struct {
	// Count caps the number of results. Zero means provider default.
	Count int `json:"count,omitempty"`
	// Language is an ISO 639-1 code (e.g., "en").
	Language string `json:"language,omitempty"`
}

// Provider is a search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// Manager routes queries across registered providers.
type Manager struct {
	providers map[string]Provider
	primary   string
	fallback  string
}

// NewManager creates a manager. fallback may be empty.
func NewManager(primary, fallback string) *Manager {
	return &Manager{
		providers: make(map[string]Provider),
		primary:   primary,
		fallback:  fallback,
	}
}

// Register adds a provider.
func (m *Manager) Register(p Provider) {
	m.providers[p.Name()] = p
}

// Configured reports whether at least one provider is registered.
func (m *Manager) Configured() bool {
	return len(m.providers) > 0
}

// Providers returns registered provider names, sorted.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Search queries the primary provider, then the fallback if the
// primary errors.
func (m *Manager) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	primary, ok := m.providers[m.primary]
	if !ok {
		return nil, fmt.Errorf("search provider %q not configured", m.primary)
	}

	results, err := primary.Search(ctx, query, opts)
	if err == nil {
		return results, nil
	}

	fb, ok := m.providers[m.fallback]
	if !ok || m.fallback == m.primary {
		return nil, err
	}
	results, fbErr := fb.Search(ctx, query, opts)
	if fbErr != nil {
		return nil, fmt.Errorf("primary %s: %v; fallback %s: %w", m.primary, err, m.fallback, fbErr)
	}
	return results, nil
}

// SearchWith queries a specific named provider.
func (m *Manager) SearchWith(ctx context.Context, provider, query string, opts Options) ([]Result, error) {
	p, ok := m.providers[provider]
	if !ok {
		return nil, fmt.Errorf("search provider %q not configured", provider)
	}
	return p.Search(ctx, query, opts)
}

// FormatResults renders results as numbered human-readable text.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s\n   %s", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "\n   %s", r.Snippet)
		}
	}
	return b.String()
}
