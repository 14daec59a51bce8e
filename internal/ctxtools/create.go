package ctxtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
)

// CtxCreateTool handles the ctx_create MCP tool.
// It creates a context row explicitly, with an optional initial payload.
type CtxCreateTool struct {
	engine *engine.Engine
}

// NewCtxCreateTool creates a CtxCreateTool backed by the given engine.
func NewCtxCreateTool(e *engine.Engine) *CtxCreateTool {
	return &CtxCreateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *CtxCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("ctx_create",
		mcp.WithDescription(
			"Create a context explicitly at one level of the hierarchy (global, project, branch, task) "+
				"with an optional initial payload. Missing ancestor contexts are provisioned automatically. "+
				"Contexts are also created implicitly on first read or write, so this is only needed when "+
				"you want to seed specific data up front. Fails if the context already exists.",
		),
		mcp.WithString("level",
			mcp.Required(),
			mcp.Description("Hierarchy level: global, project, branch, or task"),
		),
		mcp.WithString("id",
			mcp.Description("Owner entity id (project/branch/task id). Omit for the global level."),
		),
		mcp.WithString("parent_id",
			mcp.Description("Explicit parent context row id. Omit to link to the owner's natural parent."),
		),
		mcp.WithString("data",
			mcp.Description(`Initial payload as a JSON object string, e.g. {"conventions":{"style":"gofmt"}}`),
		),
	)
}

// Handle processes the ctx_create tool call.
func (t *CtxCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := dataArg(req, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := t.engine.CreateContext(engine.CreateContextParams{
		Level:    levelArg(req, "level"),
		OwnerID:  req.GetString("id", ""),
		ParentID: req.GetString("parent_id", ""),
		Data:     data,
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(rec)
}
