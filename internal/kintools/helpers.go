// Package kintools provides MCP tool handlers for the relationship graph.
//
// Each tool follows the same pattern:
//   - A struct with its dependencies injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Domain failures come back as tool errors prefixed with their stable code
// (for example "cycle_rejected: ..."), never as Go errors.
package kintools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/lineage/internal/genealogy"
)

// Directory is the record-level surface the person tools need. Both the
// SQLite store and the in-memory store satisfy it.
type Directory interface {
	genealogy.Reader
	Create(ctx context.Context, ind genealogy.Individual) (genealogy.Individual, error)
	List(ctx context.Context) ([]genealogy.Individual, error)
	Delete(ctx context.Context, id string) error
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// requireString returns the trimmed argument or a tool error naming it.
func requireString(req mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	v := strings.TrimSpace(req.GetString(key, ""))
	if v == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("'%s' is required", key))
	}
	return v, nil
}

// errorResult renders err as a tool error carrying its stable code.
func errorResult(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s failed: %v", genealogy.Code(err), action, err))
}

// formatPerson renders one individual as a single line.
func formatPerson(ind genealogy.Individual) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", ind.ID)
	if ind.Name != "" {
		fmt.Fprintf(&b, " %q", ind.Name)
	}
	if ind.Sex != "" {
		fmt.Fprintf(&b, " [%s]", ind.Sex)
	}
	if ind.BirthDate != "" {
		fmt.Fprintf(&b, " b. %s", ind.BirthDate)
	}
	if ind.DeathDate != "" {
		fmt.Fprintf(&b, " d. %s", ind.DeathDate)
	}
	return b.String()
}

// formatList renders a titled list of individuals. With idsOnly the body is
// a comma-separated id list.
func formatList(title string, inds []genealogy.Individual, idsOnly bool) string {
	if len(inds) == 0 {
		return fmt.Sprintf("%s: none", title)
	}
	if idsOnly {
		ids := make([]string, 0, len(inds))
		for _, ind := range inds {
			ids = append(ids, ind.ID)
		}
		return fmt.Sprintf("%s (%d): %s", title, len(inds), strings.Join(ids, ", "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n", title, len(inds))
	for _, ind := range inds {
		fmt.Fprintf(&b, "- %s\n", formatPerson(ind))
	}
	return strings.TrimRight(b.String(), "\n")
}
