package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
	"stratum/internal/lifecycle"
)

// ─── SubtaskAddTool ──────────────────────────────────────────────────────────

// SubtaskAddTool handles the subtask_add MCP tool.
type SubtaskAddTool struct {
	engine *engine.Engine
}

// NewSubtaskAddTool creates a SubtaskAddTool backed by the given engine.
func NewSubtaskAddTool(e *engine.Engine) *SubtaskAddTool {
	return &SubtaskAddTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *SubtaskAddTool) Definition() mcp.Tool {
	return mcp.NewTool("subtask_add",
		mcp.WithDescription(
			"Add a subtask at the end of a task's checklist. Subtasks start in todo with progress 0. "+
				"A task cannot complete until every subtask is done or cancelled.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Id of the parent task"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("What the subtask covers"),
		),
		mcp.WithArray("assignees",
			mcp.Description("Who is working on it"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// Handle processes the subtask_add tool call.
func (t *SubtaskAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}

	sub, err := t.engine.AddSubtask(engine.AddSubtaskParams{
		TaskID:    taskID,
		Title:     title,
		Assignees: stringSliceArg(req, "assignees"),
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(sub)
}

// ─── SubtaskUpdateTool ───────────────────────────────────────────────────────

// SubtaskUpdateTool handles the subtask_update MCP tool.
type SubtaskUpdateTool struct {
	engine *engine.Engine
}

// NewSubtaskUpdateTool creates a SubtaskUpdateTool backed by the given engine.
func NewSubtaskUpdateTool(e *engine.Engine) *SubtaskUpdateTool {
	return &SubtaskUpdateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *SubtaskUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("subtask_update",
		mcp.WithDescription(
			"Patch a subtask: only the fields given change. Progress is clamped to 0-100 and a done "+
				"status forces progress to 100. After the patch, the task context's progress summary "+
				"(per-subtask snapshots plus done/total counters) is recomputed and merged in.",
		),
		mcp.WithString("subtask_id",
			mcp.Required(),
			mcp.Description("Id of the subtask"),
		),
		mcp.WithString("task_id",
			mcp.Description("Id of the parent task, as a cross-check"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("status",
			mcp.Description("todo, in_progress, done, or cancelled"),
		),
		mcp.WithNumber("progress",
			mcp.Description("Completion percentage, 0-100"),
		),
		mcp.WithArray("assignees",
			mcp.Description("Replacement assignee list; an empty array clears it"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// Handle processes the subtask_update tool call.
func (t *SubtaskUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subtaskID := req.GetString("subtask_id", "")
	if subtaskID == "" {
		return mcp.NewToolResultError("'subtask_id' is required"), nil
	}

	p := engine.UpdateSubtaskParams{
		TaskID:    req.GetString("task_id", ""),
		SubtaskID: subtaskID,
	}
	if hasArg(req, "title") {
		title := req.GetString("title", "")
		p.Title = &title
	}
	if hasArg(req, "status") {
		status := lifecycle.SubtaskStatus(req.GetString("status", ""))
		p.Status = &status
	}
	if hasArg(req, "progress") {
		progress := intArg(req, "progress", 0)
		p.Progress = &progress
	}
	if hasArg(req, "assignees") {
		p.Assignees = stringSliceArg(req, "assignees")
		if p.Assignees == nil {
			p.Assignees = []string{}
		}
	}

	sub, err := t.engine.UpdateSubtask(p)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(sub)
}
