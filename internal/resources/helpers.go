package resources

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/lineage/internal/genealogy"
)

// idFromURI extracts the individual id from lineage://person/{id}.
func idFromURI(uri string) (string, error) {
	id, ok := strings.CutPrefix(uri, PersonURIPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid person URI %q", uri)
	}
	return id, nil
}

func idList(inds []genealogy.Individual) []string {
	out := make([]string, 0, len(inds))
	for _, ind := range inds {
		out = append(out, ind.ID)
	}
	return out
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
