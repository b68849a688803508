package kintools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/lineage/internal/genealogy"
)

// roleArg parses the "role" argument into an edge role.
func roleArg(req mcp.CallToolRequest) (genealogy.Role, *mcp.CallToolResult) {
	raw, errRes := requireString(req, "role")
	if errRes != nil {
		return "", errRes
	}
	role, err := genealogy.ParseRole(raw)
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	return role, nil
}

// ─── RelationSetTool ────────────────────────────────────────────────────────

// RelationSetTool handles the relation_set MCP tool.
type RelationSetTool struct {
	mut *genealogy.Mutator
}

// NewRelationSetTool creates a RelationSetTool.
func NewRelationSetTool(mut *genealogy.Mutator) *RelationSetTool {
	return &RelationSetTool{mut: mut}
}

// Definition returns the MCP tool definition for relation_set.
func (t *RelationSetTool) Definition() mcp.Tool {
	return mcp.NewTool("relation_set",
		mcp.WithDescription(
			"Link an individual to its father, mother or current spouse. The edge is only "+
				"written if it passes the eligibility rules (no self reference, matching sex, "+
				"no cycle, no marriage between close kin). Spouse links are written on both "+
				"sides and replace any previous pairing.",
		),
		mcp.WithString("subject_id",
			mcp.Required(),
			mcp.Description("Individual whose edge is set"),
		),
		mcp.WithString("role",
			mcp.Required(),
			mcp.Description("Edge to set"),
			mcp.Enum("father", "mother", "spouse"),
		),
		mcp.WithString("candidate_id",
			mcp.Required(),
			mcp.Description("Individual to link as father, mother or spouse"),
		),
	)
}

// Handle processes the relation_set tool call.
func (t *RelationSetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subject, errRes := requireString(req, "subject_id")
	if errRes != nil {
		return errRes, nil
	}
	role, errRes := roleArg(req)
	if errRes != nil {
		return errRes, nil
	}
	candidate, errRes := requireString(req, "candidate_id")
	if errRes != nil {
		return errRes, nil
	}

	var err error
	switch role {
	case genealogy.RoleFather:
		err = t.mut.SetFather(ctx, subject, candidate)
	case genealogy.RoleMother:
		err = t.mut.SetMother(ctx, subject, candidate)
	case genealogy.RoleSpouse:
		err = t.mut.SetSpouse(ctx, subject, candidate)
	}
	if err != nil {
		return errorResult("set "+string(role), err), nil
	}

	if role == genealogy.RoleSpouse {
		return mcp.NewToolResultText(fmt.Sprintf("Spouses linked: %s ↔ %s", subject, candidate)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s of %s set to %s", role, subject, candidate)), nil
}

// ─── RelationClearTool ──────────────────────────────────────────────────────

// RelationClearTool handles the relation_clear MCP tool.
type RelationClearTool struct {
	mut *genealogy.Mutator
}

// NewRelationClearTool creates a RelationClearTool.
func NewRelationClearTool(mut *genealogy.Mutator) *RelationClearTool {
	return &RelationClearTool{mut: mut}
}

// Definition returns the MCP tool definition for relation_clear.
func (t *RelationClearTool) Definition() mcp.Tool {
	return mcp.NewTool("relation_clear",
		mcp.WithDescription(
			"Remove a father, mother or spouse edge, or both parent edges at once. "+
				"Clearing a spouse also clears the former spouse's edge. Clearing an "+
				"edge that is already empty succeeds.",
		),
		mcp.WithString("subject_id",
			mcp.Required(),
			mcp.Description("Individual whose edge is cleared"),
		),
		mcp.WithString("role",
			mcp.Required(),
			mcp.Description("Edge to clear"),
			mcp.Enum("father", "mother", "parents", "spouse"),
		),
	)
}

// Handle processes the relation_clear tool call.
func (t *RelationClearTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subject, errRes := requireString(req, "subject_id")
	if errRes != nil {
		return errRes, nil
	}
	raw := req.GetString("role", "")

	var err error
	switch raw {
	case "father":
		err = t.mut.ClearFather(ctx, subject)
	case "mother":
		err = t.mut.ClearMother(ctx, subject)
	case "parents":
		err = t.mut.ClearParents(ctx, subject)
	case "spouse":
		err = t.mut.ClearSpouse(ctx, subject)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid role %q: must be father, mother, parents or spouse", raw)), nil
	}
	if err != nil {
		return errorResult("clear "+raw, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s of %s cleared", raw, subject)), nil
}

// ─── RelationCheckTool ──────────────────────────────────────────────────────

// RelationCheckTool handles the relation_check MCP tool. It evaluates the
// eligibility rules without writing anything.
type RelationCheckTool struct {
	r       genealogy.Reader
	checker *genealogy.Checker
}

// NewRelationCheckTool creates a RelationCheckTool.
func NewRelationCheckTool(r genealogy.Reader, checker *genealogy.Checker) *RelationCheckTool {
	return &RelationCheckTool{r: r, checker: checker}
}

// Definition returns the MCP tool definition for relation_check.
func (t *RelationCheckTool) Definition() mcp.Tool {
	return mcp.NewTool("relation_check",
		mcp.WithDescription(
			"Check whether relation_set would accept an edge, without changing anything. "+
				"Returns the rejection code when it would not.",
		),
		mcp.WithString("subject_id",
			mcp.Required(),
			mcp.Description("Individual whose edge would be set"),
		),
		mcp.WithString("role",
			mcp.Required(),
			mcp.Description("Edge to check"),
			mcp.Enum("father", "mother", "spouse"),
		),
		mcp.WithString("candidate_id",
			mcp.Required(),
			mcp.Description("Proposed father, mother or spouse"),
		),
	)
}

// Handle processes the relation_check tool call.
func (t *RelationCheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subject, errRes := requireString(req, "subject_id")
	if errRes != nil {
		return errRes, nil
	}
	role, errRes := roleArg(req)
	if errRes != nil {
		return errRes, nil
	}
	candidate, errRes := requireString(req, "candidate_id")
	if errRes != nil {
		return errRes, nil
	}

	err := t.checker.CanAssign(ctx, t.r, subject, role, candidate)
	switch code := genealogy.Code(err); code {
	case "":
		return mcp.NewToolResultText(fmt.Sprintf("eligible: %s can be %s of %s", candidate, role, subject)), nil
	case genealogy.CodeNotFound, genealogy.CodeInternal:
		return errorResult("check "+string(role), err), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("not eligible (%s): %v", code, err)), nil
	}
}
