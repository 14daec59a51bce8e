package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
	"stratum/internal/store"
)

// ─── BranchCreateTool ────────────────────────────────────────────────────────

// BranchCreateTool handles the branch_create MCP tool.
type BranchCreateTool struct {
	engine *engine.Engine
}

// NewBranchCreateTool creates a BranchCreateTool backed by the given engine.
func NewBranchCreateTool(e *engine.Engine) *BranchCreateTool {
	return &BranchCreateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *BranchCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("branch_create",
		mcp.WithDescription(
			"Create a branch under a project. Its context is provisioned immediately, inheriting "+
				"from the project. Branch names are unique within a project.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Id of the parent project"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Branch name, e.g. main or feature/retry-queue"),
		),
	)
}

// Handle processes the branch_create tool call.
func (t *BranchCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	b, err := t.engine.CreateBranch(projectID, name)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(b)
}

// ─── BranchListTool ──────────────────────────────────────────────────────────

// BranchListTool handles the branch_list MCP tool.
type BranchListTool struct {
	engine *engine.Engine
}

// NewBranchListTool creates a BranchListTool backed by the given engine.
func NewBranchListTool(e *engine.Engine) *BranchListTool {
	return &BranchListTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *BranchListTool) Definition() mcp.Tool {
	return mcp.NewTool("branch_list",
		mcp.WithDescription("List a project's branches in creation order."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Id of the project to list branches for"),
		),
	)
}

// Handle processes the branch_list tool call.
func (t *BranchListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	branches, err := t.engine.ListBranches(projectID)
	if err != nil {
		return toolError(err)
	}
	if branches == nil {
		branches = []store.Branch{}
	}
	return jsonResult(branches)
}
