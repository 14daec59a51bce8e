package ctxtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
	"stratum/internal/hierarchy"
)

// CtxUpdateTool handles the ctx_update MCP tool.
// It patches one path inside a context's own data.
type CtxUpdateTool struct {
	engine *engine.Engine
}

// NewCtxUpdateTool creates a CtxUpdateTool backed by the given engine.
func NewCtxUpdateTool(e *engine.Engine) *CtxUpdateTool {
	return &CtxUpdateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *CtxUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("ctx_update",
		mcp.WithDescription(
			"Update a context's own data at a dot-separated path (e.g. conventions.style). The write "+
				"bumps the context version and invalidates cached resolutions at this level and below. "+
				"merge_strategy=replace_path swaps the value at the path; deep_merge folds object values "+
				"into what is already there. An empty path addresses the whole payload. A missing context "+
				"is provisioned before the write.",
		),
		mcp.WithString("level",
			mcp.Required(),
			mcp.Description("Hierarchy level: global, project, branch, or task"),
		),
		mcp.WithString("id",
			mcp.Description("Owner entity id (project/branch/task id). Omit for the global level."),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Dot-separated path into the payload, e.g. conventions.style. Empty string addresses the root."),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description(`New value as a JSON string: "tabs", 4, true, or {"indent":"tabs"}`),
		),
		mcp.WithString("merge_strategy",
			mcp.Description("replace_path (default) or deep_merge"),
		),
		mcp.WithNumber("expected_version",
			mcp.Description("Pin the write to this context version; a moved version fails instead of overwriting"),
		),
	)
}

// Handle processes the ctx_update tool call.
func (t *CtxUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !hasArg(req, "path") {
		return mcp.NewToolResultError("'path' is required (empty string addresses the root)"), nil
	}
	if !hasArg(req, "value") {
		return mcp.NewToolResultError("'value' is required"), nil
	}
	value, err := hierarchy.ParseValue([]byte(req.GetString("value", "")))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'value': %v", err)), nil
	}

	rec, err := t.engine.UpdateContext(engine.UpdateContextParams{
		Level:           levelArg(req, "level"),
		OwnerID:         req.GetString("id", ""),
		Path:            req.GetString("path", ""),
		Value:           value,
		Strategy:        hierarchy.MergeStrategy(req.GetString("merge_strategy", "")),
		ExpectedVersion: int64(intArg(req, "expected_version", 0)),
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(rec)
}
