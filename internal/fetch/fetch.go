// Package fetch downloads web pages and documentation, extracting
// readable text from HTML for the agent's consumption.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Krigsexe/Kage/internal/httpkit"
)

const (
	defaultMaxBytes int64 = 5 << 20
	defaultMaxChars       = 50000
)

// Page holds the fetched and extracted content of one URL.
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`
	StatusCode  int    `json:"status_code"`
}

// Fetcher downloads pages with bounded body size.
type Fetcher struct {
	http     *http.Client
	maxBytes int64
}

// New creates a fetcher with a 30s request timeout.
func New() *Fetcher {
	return &Fetcher{
		http:     httpkit.NewClient(httpkit.WithTimeout(30 * time.Second)),
		maxBytes: defaultMaxBytes,
	}
}

// Fetch downloads rawURL and extracts readable text. maxChars bounds
// the extracted content; 0 uses the default. Scheme-less URLs get
// https.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxChars int) (*Page, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("fetch: url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.8,*/*;q=0.5")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	page := &Page{URL: rawURL, ContentType: contentType, StatusCode: resp.StatusCode}

	switch {
	case strings.Contains(strings.ToLower(contentType), "html"):
		page.Title, page.Content = ExtractText(string(body))
	case utf8.Valid(body):
		page.Content = string(body)
	default:
		page.Content = fmt.Sprintf("Binary content (%s), %d bytes", contentType, len(body))
		return page, nil
	}

	if len(page.Content) > maxChars {
		page.Content = cutRunes(page.Content, maxChars)
		page.Truncated = true
	}
	return page, nil
}

// cutRunes truncates without splitting a multi-byte character.
func cutRunes(s string, max int) string {
	count := 0
	for i := range s {
		if count >= max {
			return s[:i]
		}
		count++
	}
	return s
}
