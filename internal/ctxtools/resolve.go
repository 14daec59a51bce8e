package ctxtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
)

// CtxResolveTool handles the ctx_resolve MCP tool.
// It returns the fully merged inheritance chain for one owner.
type CtxResolveTool struct {
	engine *engine.Engine
}

// NewCtxResolveTool creates a CtxResolveTool backed by the given engine.
func NewCtxResolveTool(e *engine.Engine) *CtxResolveTool {
	return &CtxResolveTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *CtxResolveTool) Definition() mcp.Tool {
	return mcp.NewTool("ctx_resolve",
		mcp.WithDescription(
			"Resolve the effective context for an owner: walk global → project → branch → task and "+
				"deep-merge each level over the last, deeper levels winning key by key. The result lists "+
				"the sources that contributed, with the context version each was read at. Resolutions are "+
				"cached; set force_refresh=true to bypass the cache and rebuild from the store. Missing "+
				"links in the chain are provisioned on the fly.",
		),
		mcp.WithString("level",
			mcp.Required(),
			mcp.Description("Hierarchy level to resolve at: global, project, branch, or task"),
		),
		mcp.WithString("id",
			mcp.Description("Owner entity id (project/branch/task id). Omit for the global level."),
		),
		mcp.WithBoolean("force_refresh",
			mcp.Description("Skip the resolution cache and rebuild from the store (default: false)"),
		),
	)
}

// Handle processes the ctx_resolve tool call.
func (t *CtxResolveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rc, err := t.engine.Resolve(
		levelArg(req, "level"),
		req.GetString("id", ""),
		engine.ResolveOptions{ForceRefresh: boolArg(req, "force_refresh", false)},
	)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(rc)
}
