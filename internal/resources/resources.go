// Package resources implements MCP resource handlers for the family graph.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (lineage://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/lineage/internal/config"
	"github.com/HendryAvila/lineage/internal/genealogy"
)

// PersonURIPrefix prefixes every person resource URI.
const PersonURIPrefix = "lineage://person/"

// Handler manages lineage resource endpoints.
type Handler struct {
	schema config.Schema
	graph  *genealogy.Graph
	r      genealogy.Reader
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(schema config.Schema, r genealogy.Reader) *Handler {
	return &Handler{schema: schema, graph: genealogy.NewGraph(r), r: r}
}

// SchemaResource returns the MCP resource definition for the active schema
// descriptor.
func (h *Handler) SchemaResource() mcp.Resource {
	return mcp.NewResource(
		"lineage://schema",
		"Lineage Schema",
		mcp.WithResourceDescription("Active schema descriptor: column names, sex vocabulary, spouse feature, validation mode, spouse kinship policy"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSchema returns the schema descriptor as JSON.
func (h *Handler) HandleSchema(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, h.schema)
}

// PersonTemplate returns the MCP resource template for one individual.
func (h *Handler) PersonTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		PersonURIPrefix+"{id}",
		"Lineage Person",
		mcp.WithTemplateDescription("One individual with its parents, spouse, children and siblings"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

type personView struct {
	genealogy.Individual
	Children     []string `json:"children"`
	FullSiblings []string `json:"full_siblings"`
	HalfSiblings []string `json:"half_siblings"`
}

// HandlePerson returns one individual and its immediate family as JSON.
func (h *Handler) HandlePerson(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := idFromURI(req.Params.URI)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	ind, err := h.r.Get(ctx, id)
	if err != nil {
		return errorResource(req.Params.URI, fmt.Sprintf("%s: %v", genealogy.Code(err), err)), nil
	}

	view := personView{Individual: ind}
	kids, err := h.graph.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading children of %s: %w", id, err)
	}
	full, err := h.graph.FullSiblings(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading siblings of %s: %w", id, err)
	}
	half, err := h.graph.HalfSiblings(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading half siblings of %s: %w", id, err)
	}
	view.Children = idList(kids)
	view.FullSiblings = idList(full)
	view.HalfSiblings = idList(half)

	return jsonResource(req.Params.URI, view)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
