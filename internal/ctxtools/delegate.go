package ctxtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
)

// CtxDelegateTool handles the ctx_delegate MCP tool.
// It proposes merging a payload into an ancestor context.
type CtxDelegateTool struct {
	engine *engine.Engine
}

// NewCtxDelegateTool creates a CtxDelegateTool backed by the given engine.
func NewCtxDelegateTool(e *engine.Engine) *CtxDelegateTool {
	return &CtxDelegateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *CtxDelegateTool) Definition() mcp.Tool {
	return mcp.NewTool("ctx_delegate",
		mcp.WithDescription(
			"Propose promoting knowledge from a lower context to an ancestor: a task that discovers a "+
				"project-wide convention delegates it upward instead of writing it directly. The target "+
				"owner is derived from the source's own chain, and the target level must be a strict "+
				"ancestor of the source level. The proposal queues as pending unless every top-level "+
				"payload key is on the auto-approval whitelist, in which case it merges immediately.",
		),
		mcp.WithString("source_level",
			mcp.Required(),
			mcp.Description("Level the knowledge was discovered at: project, branch, or task"),
		),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Owner entity id at the source level"),
		),
		mcp.WithString("target_level",
			mcp.Required(),
			mcp.Description("Ancestor level to promote into: global, project, or branch"),
		),
		mcp.WithString("payload",
			mcp.Required(),
			mcp.Description(`Proposed change as a JSON object string, e.g. {"conventions":{"errors":"wrap with context"}}`),
		),
		mcp.WithString("reason",
			mcp.Description("Why this belongs at the target level"),
		),
	)
}

// Handle processes the ctx_delegate tool call.
func (t *CtxDelegateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := dataArg(req, "payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, err := t.engine.Delegate(engine.DelegateParams{
		SourceLevel: levelArg(req, "source_level"),
		SourceID:    req.GetString("source_id", ""),
		TargetLevel: levelArg(req, "target_level"),
		Payload:     payload,
		Reason:      req.GetString("reason", ""),
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(d)
}
