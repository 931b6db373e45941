package search

import (
	"context"

	"github.com/Krigsexe/Kage/internal/tools"
)

// NewTool wraps the manager as the agent's web_search tool.
func NewTool(mgr *Manager) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:        "web_search",
			Description: "Search the web. Returns titles, URLs, and snippets.",
			Category:    "web",
			Parameters: []tools.Parameter{
				{Name: "query", Type: "string", Description: "The search query.", Required: true},
				{Name: "count", Type: "integer", Description: "Maximum results (1-10).", Default: float64(defaultResultCount)},
				{Name: "language", Type: "string", Description: "ISO 639-1 result language (e.g., 'en')."},
				{Name: "provider", Type: "string", Description: "Specific provider name. Omit for default."},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			query := tools.StringArg(args, "query")
			opts := Options{
				Count:    tools.IntArg(args, "count", defaultResultCount),
				Language: tools.StringArg(args, "language"),
			}

			var (
				results []Result
				err     error
			)
			if provider := tools.StringArg(args, "provider"); provider != "" {
				results, err = mgr.SearchWith(ctx, provider, query, opts)
			} else {
				results, err = mgr.Search(ctx, query, opts)
			}
			if err != nil {
				return tools.Result{}, err
			}
			return tools.Ok(FormatResults(results)), nil
		},
	}
}
