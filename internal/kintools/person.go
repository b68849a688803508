package kintools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/lineage/internal/genealogy"
)

// ─── PersonAddTool ──────────────────────────────────────────────────────────

// PersonAddTool handles the person_add MCP tool.
type PersonAddTool struct {
	dir Directory
}

// NewPersonAddTool creates a PersonAddTool.
func NewPersonAddTool(dir Directory) *PersonAddTool {
	return &PersonAddTool{dir: dir}
}

// Definition returns the MCP tool definition for person_add.
func (t *PersonAddTool) Definition() mcp.Tool {
	return mcp.NewTool("person_add",
		mcp.WithDescription(
			"Add an individual to the family graph. Parents and spouse are linked afterwards "+
				"with relation_set so every edge goes through the eligibility rules.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Display name"),
		),
		mcp.WithString("sex",
			mcp.Description("Sex token from the configured vocabulary (see lineage://schema)"),
		),
		mcp.WithString("id",
			mcp.Description("Explicit identifier (default: generated UUID)"),
		),
		mcp.WithString("birth_date",
			mcp.Description("Birth date, free form (ISO 8601 recommended)"),
		),
		mcp.WithString("death_date",
			mcp.Description("Death date, free form (ISO 8601 recommended)"),
		),
	)
}

// Handle processes the person_add tool call.
func (t *PersonAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, errRes := requireString(req, "name")
	if errRes != nil {
		return errRes, nil
	}

	ind, err := t.dir.Create(ctx, genealogy.Individual{
		ID:        strings.TrimSpace(req.GetString("id", "")),
		Name:      name,
		Sex:       strings.TrimSpace(req.GetString("sex", "")),
		BirthDate: req.GetString("birth_date", ""),
		DeathDate: req.GetString("death_date", ""),
	})
	if err != nil {
		return errorResult("add person", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Person added: %s", formatPerson(ind))), nil
}

// ─── PersonGetTool ──────────────────────────────────────────────────────────

// PersonGetTool handles the person_get MCP tool.
type PersonGetTool struct {
	dir Directory
}

// NewPersonGetTool creates a PersonGetTool.
func NewPersonGetTool(dir Directory) *PersonGetTool {
	return &PersonGetTool{dir: dir}
}

// Definition returns the MCP tool definition for person_get.
func (t *PersonGetTool) Definition() mcp.Tool {
	return mcp.NewTool("person_get",
		mcp.WithDescription("Show one individual with its father, mother and current spouse edges."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Individual ID"),
		),
	)
}

// Handle processes the person_get tool call.
func (t *PersonGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireString(req, "id")
	if errRes != nil {
		return errRes, nil
	}

	ind, err := t.dir.Get(ctx, id)
	if err != nil {
		return errorResult("get person", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", formatPerson(ind))
	for _, role := range []genealogy.Role{genealogy.RoleFather, genealogy.RoleMother, genealogy.RoleSpouse} {
		ref := ind.Ref(role)
		if ref == "" {
			ref = "(none)"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, ref)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

// ─── PersonListTool ─────────────────────────────────────────────────────────

// PersonListTool handles the person_list MCP tool.
type PersonListTool struct {
	dir Directory
}

// NewPersonListTool creates a PersonListTool.
func NewPersonListTool(dir Directory) *PersonListTool {
	return &PersonListTool{dir: dir}
}

// Definition returns the MCP tool definition for person_list.
func (t *PersonListTool) Definition() mcp.Tool {
	return mcp.NewTool("person_list",
		mcp.WithDescription("List individuals ordered by ID."),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 50, 0 for all)"),
		),
		mcp.WithBoolean("ids_only",
			mcp.Description("Return only the IDs (default: false)"),
		),
	)
}

// Handle processes the person_list tool call.
func (t *PersonListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 50)
	idsOnly := boolArg(req, "ids_only", false)

	all, err := t.dir.List(ctx)
	if err != nil {
		return errorResult("list people", err), nil
	}
	more := 0
	if limit > 0 && len(all) > limit {
		more = len(all) - limit
		all = all[:limit]
	}
	text := formatList("People", all, idsOnly)
	if more > 0 {
		text += fmt.Sprintf("\n... %d more", more)
	}
	return mcp.NewToolResultText(text), nil
}

// ─── PersonRemoveTool ───────────────────────────────────────────────────────

// PersonRemoveTool handles the person_remove MCP tool.
type PersonRemoveTool struct {
	dir Directory
}

// NewPersonRemoveTool creates a PersonRemoveTool.
func NewPersonRemoveTool(dir Directory) *PersonRemoveTool {
	return &PersonRemoveTool{dir: dir}
}

// Definition returns the MCP tool definition for person_remove.
func (t *PersonRemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("person_remove",
		mcp.WithDescription(
			"Remove an individual. Children lose the matching parent edge and the spouse "+
				"loses the spouse edge; nobody else is deleted. If clearing any edge fails, "+
				"nothing is removed.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Individual ID"),
		),
	)
}

// Handle processes the person_remove tool call.
func (t *PersonRemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireString(req, "id")
	if errRes != nil {
		return errRes, nil
	}
	if err := t.dir.Delete(ctx, id); err != nil {
		return errorResult("remove person", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Person %s removed", id)), nil
}
