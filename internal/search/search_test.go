package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fixedProvider struct {
	name    string
	results []Result
	err     error
	calls   int
}

func (p *fixedProvider) Name() string { return p.name }

func (p *fixedProvider) Search(_ context.Context, _ string, _ Options) ([]Result, error) {
	p.calls++
	return p.results, p.err
}

func TestManagerPrimary(t *testing.T) {
	primary := &fixedProvider{name: "a", results: []Result{{Title: "hit", URL: "http://x"}}}
	fallback := &fixedProvider{name: "b"}
	m := NewManager("a", "b")
	m.Register(primary)
	m.Register(fallback)

	results, err := m.Search(context.Background(), "query", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "hit" {
		t.Errorf("results = %v", results)
	}
	if fallback.calls != 0 {
		t.Error("fallback queried although primary succeeded")
	}
}

func TestManagerFallback(t *testing.T) {
	primary := &fixedProvider{name: "a", err: errors.New("down")}
	fallback := &fixedProvider{name: "b", results: []Result{{Title: "rescued", URL: "http://y"}}}
	m := NewManager("a", "b")
	m.Register(primary)
	m.Register(fallback)

	results, err := m.Search(context.Background(), "query", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "rescued" {
		t.Errorf("results = %v", results)
	}
}

func TestManagerBothFail(t *testing.T) {
	m := NewManager("a", "b")
	m.Register(&fixedProvider{name: "a", err: errors.New("a down")})
	m.Register(&fixedProvider{name: "b", err: errors.New("b down")})

	_, err := m.Search(context.Background(), "query", Options{})
	if err == nil {
		t.Fatal("expected combined failure")
	}
	if !strings.Contains(err.Error(), "a down") || !strings.Contains(err.Error(), "b down") {
		t.Errorf("error = %v", err)
	}
}

func TestManagerUnconfigured(t *testing.T) {
	m := NewManager("missing", "")
	if _, err := m.Search(context.Background(), "query", Options{}); err == nil {
		t.Fatal("expected error for missing provider")
	}
}

func TestSearXNGSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "golang" {
			t.Errorf("q = %q", got)
		}
		fmt.Fprint(w, `{"results": [
			{"title": "The Go Programming Language", "url": "https://go.dev", "content": "Go is expressive."},
			{"title": "Go wiki", "url": "https://go.dev/wiki", "content": ""},
			{"title": "extra", "url": "https://example.com", "content": ""}
		]}`)
	}))
	defer srv.Close()

	p := NewSearXNG(srv.URL)
	results, err := p.Search(context.Background(), "golang", Options{Count: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2 (count cap)", len(results))
	}
	if results[0].Title != "The Go Programming Language" {
		t.Errorf("Title = %q", results[0].Title)
	}
}

func TestSearXNGServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewSearXNG(srv.URL)
	if _, err := p.Search(context.Background(), "golang", Options{}); err == nil {
		t.Fatal("expected error on HTTP 429")
	}
}

func TestToolFormatsResults(t *testing.T) {
	m := NewManager("a", "")
	m.Register(&fixedProvider{name: "a", results: []Result{
		{Title: "One", URL: "http://one", Snippet: "first hit"},
	}})

	tool := NewTool(m)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("Result failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "1. One") || !strings.Contains(res.Output, "first hit") {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestFormatResultsEmpty(t *testing.T) {
	if got := FormatResults(nil); got != "No results found." {
		t.Errorf("FormatResults(nil) = %q", got)
	}
}
