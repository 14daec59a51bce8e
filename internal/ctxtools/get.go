package ctxtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
)

// CtxGetTool handles the ctx_get MCP tool.
// It reads one context, merged with its ancestors by default.
type CtxGetTool struct {
	engine *engine.Engine
}

// NewCtxGetTool creates a CtxGetTool backed by the given engine.
func NewCtxGetTool(e *engine.Engine) *CtxGetTool {
	return &CtxGetTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *CtxGetTool) Definition() mcp.Tool {
	return mcp.NewTool("ctx_get",
		mcp.WithDescription(
			"Read a context at one level of the hierarchy. By default the result is the fully resolved "+
				"view: the owner's data deep-merged over everything it inherits from global, project, and "+
				"branch. Set include_inherited=false to see only the level's own data, the view you want "+
				"when deciding what to edit. A missing context is provisioned on the fly; only an unknown "+
				"entity id is an error.",
		),
		mcp.WithString("level",
			mcp.Required(),
			mcp.Description("Hierarchy level: global, project, branch, or task"),
		),
		mcp.WithString("id",
			mcp.Description("Owner entity id (project/branch/task id). Omit for the global level."),
		),
		mcp.WithBoolean("include_inherited",
			mcp.Description("Merge ancestor contexts into the result (default: true)"),
		),
	)
}

// Handle processes the ctx_get tool call.
func (t *CtxGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rc, err := t.engine.Resolve(
		levelArg(req, "level"),
		req.GetString("id", ""),
		engine.ResolveOptions{OwnOnly: !boolArg(req, "include_inherited", true)},
	)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(rc)
}
