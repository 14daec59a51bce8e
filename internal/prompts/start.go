// Package prompts implements MCP prompt handlers for the context store.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the stratum-start MCP prompt.
// It guides the AI to set up a workspace: project, branch, and the
// conventions that every task under them will inherit.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("stratum-start",
		mcp.WithPromptDescription(
			"Set up a workspace in the context store: create a project and branch, "+
				"seed the conventions they should share, and create the first task.",
		),
		mcp.WithArgument("project_name",
			mcp.ArgumentDescription("Name of the project to create"),
		),
		mcp.WithArgument("branch_name",
			mcp.ArgumentDescription("Name of the working branch. Default: main"),
		),
	)
}

// Handle processes the stratum-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	projectName := "my-project"
	branchName := "main"
	if args := req.Params.Arguments; args != nil {
		if name, ok := args["project_name"]; ok && name != "" {
			projectName = name
		}
		if name, ok := args["branch_name"]; ok && name != "" {
			branchName = name
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Set up workspace: %s/%s", projectName, branchName),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to set up a workspace for '%s' with a '%s' branch.\n\n"+
						"Please:\n"+
						"1. Run `project_create` with name='%s' (ask me for a one-line description first)\n"+
						"2. Run `branch_create` under it with name='%s'\n"+
						"3. Ask me which conventions apply project-wide (code style, naming, review rules), "+
						"then write them with `ctx_update` at the project level under the 'conventions' key\n"+
						"4. Ask me what the first task is and create it with `task_create`\n"+
						"5. Finish by running `ctx_resolve` on the new task so I can see everything it inherits",
					projectName, branchName, projectName, branchName,
				)),
			},
		},
	}, nil
}
