// Package prompts implements MCP prompt handlers for the family graph.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/lineage/internal/config"
)

// RecordPrompt handles the lineage-record MCP prompt.
// It guides the AI through entering a family into the graph.
type RecordPrompt struct {
	schema config.Schema
}

// NewRecordPrompt creates a RecordPrompt for the active descriptor.
func NewRecordPrompt(schema config.Schema) *RecordPrompt {
	return &RecordPrompt{schema: schema}
}

// Definition returns the MCP prompt definition for registration.
func (p *RecordPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("lineage-record",
		mcp.WithPromptDescription(
			"Record a family in the graph. Walks through adding each person and "+
				"linking parents and spouses, explaining any rejected link.",
		),
		mcp.WithArgument("family",
			mcp.ArgumentDescription("Family name or short description used as context"),
		),
	)
}

// Handle processes the lineage-record prompt request.
func (p *RecordPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	family := "my family"
	if name, ok := req.Params.Arguments["family"]; ok && name != "" {
		family = name
	}

	spouse := "Spouse links are disabled on this server; skip marriages."
	if p.schema.CurrentSpouse {
		spouse = "Link each current couple once with relation_set role=spouse; both sides are written."
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Record family: %s", family),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to record %s in the family graph.\n\n"+
						"Please:\n"+
						"1. Ask me for the people, oldest generation first\n"+
						"2. Run `person_add` for each one with sex %q or %q and keep the returned id\n"+
						"3. Run `relation_set` for every father and mother link\n"+
						"4. %s\n"+
						"5. If a link is rejected, tell me the code and what it means before moving on\n"+
						"6. Finish with `kin_query` relation=descendants on the oldest ancestor so I can check the tree",
					family, p.schema.Male(), p.schema.Female(), spouse,
				)),
			},
		},
	}, nil
}
