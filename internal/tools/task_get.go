package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
	"stratum/internal/hierarchy"
)

// TaskGetTool handles the task_get MCP tool.
type TaskGetTool struct {
	engine *engine.Engine
}

// NewTaskGetTool creates a TaskGetTool backed by the given engine.
func NewTaskGetTool(e *engine.Engine) *TaskGetTool {
	return &TaskGetTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TaskGetTool) Definition() mcp.Tool {
	return mcp.NewTool("task_get",
		mcp.WithDescription(
			"Read one task in full: its fields, subtasks, transition log, and the lifecycle events "+
				"legal from its current status. Set include_context=true to also attach the task's "+
				"resolved context, everything it inherits included.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Id of the task"),
		),
		mcp.WithBoolean("include_context",
			mcp.Description("Attach the resolved task context to the result (default: false)"),
		),
	)
}

// Handle processes the task_get tool call.
func (t *TaskGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}

	detail, err := t.engine.GetTaskDetail(taskID)
	if err != nil {
		return toolError(err)
	}

	if boolArg(req, "include_context", false) {
		rc, err := t.engine.Resolve(hierarchy.LevelTask, taskID, engine.ResolveOptions{})
		if err != nil {
			return toolError(err)
		}
		return jsonResult(struct {
			*engine.TaskDetail
			Context *engine.ResolvedContext `json:"context"`
		}{detail, rc})
	}
	return jsonResult(detail)
}
