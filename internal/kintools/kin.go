package kintools

import (
	"context"
	"fmt"
	"iter"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/lineage/internal/genealogy"
)

// KinQueryTool handles the kin_query MCP tool.
type KinQueryTool struct {
	graph *genealogy.Graph
}

// NewKinQueryTool creates a KinQueryTool.
func NewKinQueryTool(graph *genealogy.Graph) *KinQueryTool {
	return &KinQueryTool{graph: graph}
}

var kinRelations = []string{
	"ancestors", "descendants", "parents", "grandparents", "children",
	"full_siblings", "half_siblings", "siblings", "uncles_aunts", "cousins",
}

// Definition returns the MCP tool definition for kin_query.
func (t *KinQueryTool) Definition() mcp.Tool {
	return mcp.NewTool("kin_query",
		mcp.WithDescription(
			"List the relatives of one individual. Ancestors and descendants are walked "+
				"breadth-first (father before mother, children in ID order) and each relative "+
				"appears once. Full siblings share both known parents; half siblings share exactly one.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Individual ID"),
		),
		mcp.WithString("relation",
			mcp.Required(),
			mcp.Description("Kind of relative to list"),
			mcp.Enum(kinRelations...),
		),
		mcp.WithString("with_id",
			mcp.Description("For children: only those whose other parent is this ID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("For ancestors and descendants: stop after this many (default: 0, no limit)"),
		),
		mcp.WithBoolean("ids_only",
			mcp.Description("Return only the IDs (default: false)"),
		),
	)
}

// Handle processes the kin_query tool call.
func (t *KinQueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireString(req, "id")
	if errRes != nil {
		return errRes, nil
	}
	relation, errRes := requireString(req, "relation")
	if errRes != nil {
		return errRes, nil
	}
	limit := intArg(req, "limit", 0)
	idsOnly := boolArg(req, "ids_only", false)

	var (
		inds []genealogy.Individual
		err  error
	)
	switch relation {
	case "ancestors":
		inds, err = take(t.graph.Ancestors(ctx, id), limit)
	case "descendants":
		inds, err = take(t.graph.Descendants(ctx, id), limit)
	case "parents":
		inds, err = t.graph.Parents(ctx, id)
	case "grandparents":
		inds, err = t.graph.Grandparents(ctx, id)
	case "children":
		if other := req.GetString("with_id", ""); other != "" {
			inds, err = t.graph.ChildrenWith(ctx, id, other)
		} else {
			inds, err = t.graph.Children(ctx, id)
		}
	case "full_siblings":
		inds, err = t.graph.FullSiblings(ctx, id)
	case "half_siblings":
		inds, err = t.graph.HalfSiblings(ctx, id)
	case "siblings":
		inds, err = t.graph.Siblings(ctx, id)
	case "uncles_aunts":
		inds, err = t.graph.UnclesAndAunts(ctx, id)
	case "cousins":
		inds, err = t.graph.FirstCousins(ctx, id)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown relation %q: must be one of %v", relation, kinRelations)), nil
	}
	if err != nil {
		return errorResult("query "+relation, err), nil
	}
	return mcp.NewToolResultText(formatList(fmt.Sprintf("%s of %s", relation, id), inds, idsOnly)), nil
}

// take drains seq, stopping after limit items when limit > 0.
func take(seq iter.Seq2[genealogy.Individual, error], limit int) ([]genealogy.Individual, error) {
	var out []genealogy.Individual
	for ind, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ─── KinCompareTool ─────────────────────────────────────────────────────────

// KinCompareTool handles the kin_compare MCP tool.
type KinCompareTool struct {
	graph *genealogy.Graph
}

// NewKinCompareTool creates a KinCompareTool.
func NewKinCompareTool(graph *genealogy.Graph) *KinCompareTool {
	return &KinCompareTool{graph: graph}
}

// Definition returns the MCP tool definition for kin_compare.
func (t *KinCompareTool) Definition() mcp.Tool {
	return mcp.NewTool("kin_compare",
		mcp.WithDescription(
			"Compare two individuals: whether x is an ancestor of y, which ancestors they "+
				"share, or whether they are blood relatives at all.",
		),
		mcp.WithString("x",
			mcp.Required(),
			mcp.Description("First individual ID"),
		),
		mcp.WithString("y",
			mcp.Required(),
			mcp.Description("Second individual ID"),
		),
		mcp.WithString("question",
			mcp.Description("What to compare (default: related)"),
			mcp.Enum("is_ancestor", "common_ancestors", "related"),
		),
	)
}

// Handle processes the kin_compare tool call.
func (t *KinCompareTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	x, errRes := requireString(req, "x")
	if errRes != nil {
		return errRes, nil
	}
	y, errRes := requireString(req, "y")
	if errRes != nil {
		return errRes, nil
	}

	switch q := req.GetString("question", "related"); q {
	case "is_ancestor":
		ok, err := t.graph.IsAncestorOf(ctx, x, y)
		if err != nil {
			return errorResult("compare", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s is an ancestor of %s: %t", x, y, ok)), nil
	case "common_ancestors":
		common, err := t.graph.CommonAncestors(ctx, x, y)
		if err != nil {
			return errorResult("compare", err), nil
		}
		return mcp.NewToolResultText(formatList(fmt.Sprintf("common ancestors of %s and %s", x, y), common, false)), nil
	case "related":
		ok, err := t.graph.AreRelated(ctx, x, y)
		if err != nil {
			return errorResult("compare", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s and %s are related: %t", x, y, ok)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown question %q: must be is_ancestor, common_ancestors or related", q)), nil
	}
}
