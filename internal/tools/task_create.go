package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
)

// TaskCreateTool handles the task_create MCP tool.
type TaskCreateTool struct {
	engine *engine.Engine
}

// NewTaskCreateTool creates a TaskCreateTool backed by the given engine.
func NewTaskCreateTool(e *engine.Engine) *TaskCreateTool {
	return &TaskCreateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TaskCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("task_create",
		mcp.WithDescription(
			"Create a task under a branch. The task starts in todo, its context is provisioned "+
				"immediately, and a create entry opens its transition log. Dependencies must name "+
				"existing tasks and may not close a cycle.",
		),
		mcp.WithString("branch_id",
			mcp.Required(),
			mcp.Description("Id of the parent branch"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short imperative title, e.g. wire the importer"),
		),
		mcp.WithString("description",
			mcp.Description("Longer description of the work"),
		),
		mcp.WithString("priority",
			mcp.Description("low, medium, high, or critical (default: medium)"),
		),
		mcp.WithArray("assignees",
			mcp.Description("Who is working on it"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("labels",
			mcp.Description("Free-form labels for filtering"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("dependencies",
			mcp.Description("Ids of tasks this one depends on"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// Handle processes the task_create tool call.
func (t *TaskCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	branchID := req.GetString("branch_id", "")
	if branchID == "" {
		return mcp.NewToolResultError("'branch_id' is required"), nil
	}
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}

	task, err := t.engine.CreateTask(engine.CreateTaskParams{
		BranchID:     branchID,
		Title:        title,
		Description:  req.GetString("description", ""),
		Priority:     req.GetString("priority", ""),
		Assignees:    stringSliceArg(req, "assignees"),
		Labels:       stringSliceArg(req, "labels"),
		Dependencies: stringSliceArg(req, "dependencies"),
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(task)
}
