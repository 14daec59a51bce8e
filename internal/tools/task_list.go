package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
	"stratum/internal/lifecycle"
	"stratum/internal/store"
)

// TaskListTool handles the task_list MCP tool.
type TaskListTool struct {
	engine *engine.Engine
}

// NewTaskListTool creates a TaskListTool backed by the given engine.
func NewTaskListTool(e *engine.Engine) *TaskListTool {
	return &TaskListTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TaskListTool) Definition() mcp.Tool {
	return mcp.NewTool("task_list",
		mcp.WithDescription(
			"List tasks in creation order, optionally filtered by branch and by lifecycle status.",
		),
		mcp.WithString("branch_id",
			mcp.Description("Only tasks under this branch"),
		),
		mcp.WithString("status",
			mcp.Description("Only tasks in this status, e.g. todo, in_progress, review, done"),
		),
	)
}

// Handle processes the task_list tool call.
func (t *TaskListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := t.engine.ListTasks(store.TaskFilter{
		BranchID: req.GetString("branch_id", ""),
		Status:   lifecycle.Status(req.GetString("status", "")),
	})
	if err != nil {
		return toolError(err)
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	return jsonResult(tasks)
}
