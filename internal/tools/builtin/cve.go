package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Krigsexe/Kage/internal/httpkit"
	"github.com/Krigsexe/Kage/internal/tools"
)

const osvEndpoint = "https://api.osv.dev/v1/query"

type osvQuery struct {
	Version string `json:"version,omitempty"`
	Package struct {
		Name      string `json:"name"`
		Ecosystem string `json:"ecosystem"`
	} `json:"package"`
}

type osvResponse struct {
	Vulns []struct {
		ID       string   `json:"id"`
		Summary  string   `json:"summary"`
		Aliases  []string `json:"aliases"`
		Modified string   `json:"modified"`
	} `json:"vulns"`
}

func cveCheckTool() tools.Tool {
	client := httpkit.NewClient(httpkit.WithTimeout(15 * time.Second))

	return &tools.Func{
		Def: tools.Definition{
			Name:        "cve_check",
			Description: "Query the OSV.dev database for known vulnerabilities in a package.",
			Category:    "web",
			Parameters: []tools.Parameter{
				{Name: "package", Type: "string", Description: "Package name (e.g., 'lodash', 'requests').", Required: true},
				{
					Name: "ecosystem", Type: "string", Required: true,
					Description: "Package ecosystem.",
					Enum:        []any{"Go", "npm", "PyPI", "crates.io", "Maven", "RubyGems"},
				},
				{Name: "version", Type: "string", Description: "Specific version to check. Omit to list all known advisories."},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			var q osvQuery
			q.Package.Name = tools.StringArg(args, "package")
			q.Package.Ecosystem = tools.StringArg(args, "ecosystem")
			q.Version = tools.StringArg(args, "version")

			body, err := json.Marshal(q)
			if err != nil {
				return tools.Result{}, fmt.Errorf("marshal query: %w", err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, osvEndpoint, bytes.NewReader(body))
			if err != nil {
				return tools.Result{}, fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				return tools.Failf("network_error", "%v", err), nil
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return tools.Failf("api_error", "OSV returned status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512)), nil
			}

			var out osvResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return tools.Failf("api_error", "decode response: %v", err), nil
			}

			if len(out.Vulns) == 0 {
				return tools.Ok(fmt.Sprintf("no known vulnerabilities for %s (%s)", q.Package.Name, q.Package.Ecosystem)), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%d advisories for %s (%s):\n", len(out.Vulns), q.Package.Name, q.Package.Ecosystem)
			for _, v := range out.Vulns {
				fmt.Fprintf(&b, "- %s", v.ID)
				if len(v.Aliases) > 0 {
					fmt.Fprintf(&b, " (%s)", strings.Join(v.Aliases, ", "))
				}
				if v.Summary != "" {
					fmt.Fprintf(&b, ": %s", v.Summary)
				}
				b.WriteString("\n")
			}
			return tools.Ok(strings.TrimRight(b.String(), "\n")), nil
		},
	}
}
