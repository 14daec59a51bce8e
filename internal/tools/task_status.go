package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
	"stratum/internal/lifecycle"
)

// TaskStatusTool handles the task_update_status MCP tool.
type TaskStatusTool struct {
	engine *engine.Engine
}

// NewTaskStatusTool creates a TaskStatusTool backed by the given engine.
func NewTaskStatusTool(e *engine.Engine) *TaskStatusTool {
	return &TaskStatusTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TaskStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("task_update_status",
		mcp.WithDescription(
			"Fire a lifecycle event against a task: start, block, unblock, send_for_review, approve, "+
				"reject, begin_testing, pass, fail, finalize, reopen, cancel, or archive. The transition "+
				"table decides the next status; an event that is not legal from the current status is "+
				"refused and the status stays put. Completing is its own tool (task_complete) because it "+
				"requires a summary. Use task_get to see which events are currently legal.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Id of the task"),
		),
		mcp.WithString("event",
			mcp.Required(),
			mcp.Description("Lifecycle event to fire"),
		),
		mcp.WithString("note",
			mcp.Description("Free-form note recorded in the transition log"),
		),
	)
}

// Handle processes the task_update_status tool call.
func (t *TaskStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}
	event := req.GetString("event", "")
	if event == "" {
		return mcp.NewToolResultError("'event' is required"), nil
	}

	task, err := t.engine.UpdateTaskStatus(taskID, lifecycle.Event(event), req.GetString("note", ""))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(task)
}
