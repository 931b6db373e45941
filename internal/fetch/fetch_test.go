package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Install Guide</title>
  <style>body { color: red; }</style>
  <script>trackVisit();</script>
</head>
<body>
  <nav><a href="/">Home</a></nav>
  <h1>Installation</h1>
  <p>Download the binary and place it on your PATH.</p>
  <ul><li>Linux</li><li>macOS</li></ul>
  <footer>Copyright 2026</footer>
</body>
</html>`

func TestExtractText(t *testing.T) {
	title, text := ExtractText(samplePage)
	if title != "Install Guide" {
		t.Errorf("title = %q, want Install Guide", title)
	}
	for _, want := range []string{"Installation", "Download the binary", "Linux"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
	for _, boiler := range []string{"trackVisit", "color: red", "Home", "Copyright"} {
		if strings.Contains(text, boiler) {
			t.Errorf("text contains boilerplate %q:\n%s", boiler, text)
		}
	}
}

func TestFetchHTML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer ts.Close()

	page, err := New().Fetch(context.Background(), ts.URL, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Title != "Install Guide" {
		t.Errorf("title = %q", page.Title)
	}
	if !strings.Contains(page.Content, "Download the binary") {
		t.Errorf("content = %q", page.Content)
	}
	if page.Truncated {
		t.Error("short page reported as truncated")
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("status = %d", page.StatusCode)
	}
}

func TestFetchPlainText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain body here"))
	}))
	defer ts.Close()

	page, err := New().Fetch(context.Background(), ts.URL, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Content != "plain body here" {
		t.Errorf("content = %q", page.Content)
	}
}

func TestFetchTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(long))
	}))
	defer ts.Close()

	page, err := New().Fetch(context.Background(), ts.URL, 50)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !page.Truncated {
		t.Error("expected truncation")
	}
	if got := len([]rune(page.Content)); got > 50 {
		t.Errorf("content length = %d, want <= 50", got)
	}
}

func TestToolReportsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	tool := NewTool(New(), nil)
	res, err := tool.Execute(context.Background(), map[string]any{"url": ts.URL})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatal("404 fetch reported success")
	}
	if !strings.Contains(res.Error, "404") {
		t.Errorf("error = %q, want status code mention", res.Error)
	}
}

func TestToolRendersTitle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer ts.Close()

	tool := NewTool(New(), nil)
	res, err := tool.Execute(context.Background(), map[string]any{"url": ts.URL})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("result failed: %s", res.Error)
	}
	if !strings.HasPrefix(res.Output, "# Install Guide") {
		t.Errorf("output = %q, want title heading prefix", res.Output)
	}
}
