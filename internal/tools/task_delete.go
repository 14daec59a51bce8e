package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
)

// TaskDeleteTool handles the task_delete MCP tool.
type TaskDeleteTool struct {
	engine *engine.Engine
}

// NewTaskDeleteTool creates a TaskDeleteTool backed by the given engine.
func NewTaskDeleteTool(e *engine.Engine) *TaskDeleteTool {
	return &TaskDeleteTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TaskDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("task_delete",
		mcp.WithDescription(
			"Delete a task permanently, along with its subtasks, transition log, and context row. "+
				"This is for removing mistakes; a finished task should be archived instead so its "+
				"context survives.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Id of the task"),
		),
	)
}

// Handle processes the task_delete tool call.
func (t *TaskDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}

	if err := t.engine.DeleteTask(taskID); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %s deleted.", taskID)), nil
}
