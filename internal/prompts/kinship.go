package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// KinshipPrompt handles the lineage-kinship MCP prompt.
// It instructs the AI to describe one person's relatives.
type KinshipPrompt struct{}

// NewKinshipPrompt creates a KinshipPrompt.
func NewKinshipPrompt() *KinshipPrompt {
	return &KinshipPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *KinshipPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("lineage-kinship",
		mcp.WithPromptDescription(
			"Summarize one person's family: parents, grandparents, siblings, "+
				"uncles and aunts, cousins and descendants.",
		),
		mcp.WithArgument("id",
			mcp.ArgumentDescription("ID of the person to describe"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the lineage-kinship prompt request.
func (p *KinshipPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["id"]
	if id == "" {
		return nil, fmt.Errorf("'id' is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Kinship of %s", id),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please describe the family of %s.\n\n"+
						"1. Run `person_get` id=%s\n"+
						"2. Run `kin_query` for parents, grandparents, full_siblings, half_siblings, uncles_aunts, cousins and descendants\n"+
						"3. Present the result as a short family sketch, one line per generation\n"+
						"4. Point out missing parents so I know where the tree is incomplete",
					id, id,
				)),
			},
		},
	}, nil
}
