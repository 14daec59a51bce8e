package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the stratum-status MCP prompt.
// It instructs the AI to survey the store and report what needs attention.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("stratum-status",
		mcp.WithPromptDescription(
			"Survey the context store: projects, tasks in flight, and "+
				"delegations waiting for review.",
		),
	)
}

// Handle processes the stratum-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Context store status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please read the `stratum://status` resource to see the store totals.\n\n" +
						"Then:\n" +
						"1. Run `delegation_list` with status='pending' and summarize anything waiting for review\n" +
						"2. Run `task_list` with status='in_progress' and status='blocked' and show what is in flight\n" +
						"3. Tell me what needs my attention first: pending delegations, blocked tasks, or stale work",
				),
			},
		},
	}, nil
}
