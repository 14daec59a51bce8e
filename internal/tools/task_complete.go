package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
)

// TaskCompleteTool handles the task_complete MCP tool.
type TaskCompleteTool struct {
	engine *engine.Engine
}

// NewTaskCompleteTool creates a TaskCompleteTool backed by the given engine.
func NewTaskCompleteTool(e *engine.Engine) *TaskCompleteTool {
	return &TaskCompleteTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TaskCompleteTool) Definition() mcp.Tool {
	return mcp.NewTool("task_complete",
		mcp.WithDescription(
			"Complete a task. Only legal from context_update, the wrap-up status reached via finalize, "+
				"approve, or pass. Requires a non-empty summary, and every subtask must be done or "+
				"cancelled first. The summary, testing notes, and completion time are written into the "+
				"task context in the same transaction that moves the task to done.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Id of the task"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("What was done, for whoever picks up the context later"),
		),
		mcp.WithString("testing_notes",
			mcp.Description("How the work was verified"),
		),
		mcp.WithString("note",
			mcp.Description("Free-form note recorded in the transition log"),
		),
	)
}

// Handle processes the task_complete tool call.
func (t *TaskCompleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}
	summary := req.GetString("summary", "")
	if summary == "" {
		return mcp.NewToolResultError("'summary' is required"), nil
	}

	task, err := t.engine.CompleteTask(engine.CompleteTaskParams{
		TaskID:       taskID,
		Summary:      summary,
		TestingNotes: req.GetString("testing_notes", ""),
		Note:         req.GetString("note", ""),
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(task)
}
