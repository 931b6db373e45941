package fetch

import (
	"context"
	"fmt"

	"github.com/Krigsexe/Kage/internal/tools"
)

// NewTool wraps the fetcher as the agent's docs_fetch tool. A non-nil
// cache serves repeat lookups without refetching; hits are tagged
// "[Cached]" so the model knows the content may be stale.
func NewTool(f *Fetcher, cache *Cache) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:        "docs_fetch",
			Description: "Fetch a web page or documentation URL and return its readable text.",
			Category:    "web",
			Parameters: []tools.Parameter{
				{Name: "url", Type: "string", Description: "The URL to fetch.", Required: true},
				{Name: "max_chars", Type: "integer", Description: "Maximum characters of extracted text.", Default: float64(defaultMaxChars)},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			url := tools.StringArg(args, "url")
			if cache != nil {
				if content, _, ok := cache.Get(url); ok {
					res := tools.Ok("[Cached]\n" + content)
					res.Metadata = map[string]any{"source": "cache"}
					return res, nil
				}
			}

			page, err := f.Fetch(ctx, url, tools.IntArg(args, "max_chars", defaultMaxChars))
			if err != nil {
				return tools.Result{}, err
			}
			if page.StatusCode >= 400 {
				return tools.Failf("http_error", "%s returned status %d", page.URL, page.StatusCode), nil
			}

			out := page.Content
			if page.Title != "" {
				out = fmt.Sprintf("# %s\n\n%s", page.Title, out)
			}
			if page.Truncated {
				out += "\n\n[content truncated]"
			}
			if cache != nil {
				// A failed cache write does not invalidate the fetch.
				_ = cache.Set(url, out, page.Title, page.URL)
			}
			return tools.Ok(out), nil
		},
	}
}
