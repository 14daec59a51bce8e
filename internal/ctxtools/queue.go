package ctxtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
	"stratum/internal/store"
)

// ─── DelegationApproveTool ───────────────────────────────────────────────────

// DelegationApproveTool handles the delegation_approve MCP tool.
type DelegationApproveTool struct {
	engine *engine.Engine
}

// NewDelegationApproveTool creates a DelegationApproveTool backed by the
// given engine.
func NewDelegationApproveTool(e *engine.Engine) *DelegationApproveTool {
	return &DelegationApproveTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *DelegationApproveTool) Definition() mcp.Tool {
	return mcp.NewTool("delegation_approve",
		mcp.WithDescription(
			"Approve a pending delegation: its payload is deep-merged into the target context and the "+
				"target version bumps. Approving an already resolved delegation is a conflict, so each "+
				"proposal lands exactly once.",
		),
		mcp.WithString("delegation_id",
			mcp.Required(),
			mcp.Description("Id of the pending delegation"),
		),
		mcp.WithString("resolution",
			mcp.Description("Short note on why it was approved (default: approved)"),
		),
	)
}

// Handle processes the delegation_approve tool call.
func (t *DelegationApproveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("delegation_id", "")
	if id == "" {
		return mcp.NewToolResultError("'delegation_id' is required"), nil
	}

	d, err := t.engine.ApproveDelegation(id, req.GetString("resolution", "approved"))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(d)
}

// ─── DelegationRejectTool ────────────────────────────────────────────────────

// DelegationRejectTool handles the delegation_reject MCP tool.
type DelegationRejectTool struct {
	engine *engine.Engine
}

// NewDelegationRejectTool creates a DelegationRejectTool backed by the
// given engine.
func NewDelegationRejectTool(e *engine.Engine) *DelegationRejectTool {
	return &DelegationRejectTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *DelegationRejectTool) Definition() mcp.Tool {
	return mcp.NewTool("delegation_reject",
		mcp.WithDescription(
			"Reject a pending delegation. The target context is left untouched and the entry is kept "+
				"in the queue history with its resolution.",
		),
		mcp.WithString("delegation_id",
			mcp.Required(),
			mcp.Description("Id of the pending delegation"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the proposal was turned down"),
		),
	)
}

// Handle processes the delegation_reject tool call.
func (t *DelegationRejectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("delegation_id", "")
	if id == "" {
		return mcp.NewToolResultError("'delegation_id' is required"), nil
	}

	d, err := t.engine.RejectDelegation(id, req.GetString("reason", ""))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(d)
}

// ─── DelegationListTool ──────────────────────────────────────────────────────

// DelegationListTool handles the delegation_list MCP tool.
type DelegationListTool struct {
	engine *engine.Engine
}

// NewDelegationListTool creates a DelegationListTool backed by the given
// engine.
func NewDelegationListTool(e *engine.Engine) *DelegationListTool {
	return &DelegationListTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *DelegationListTool) Definition() mcp.Tool {
	return mcp.NewTool("delegation_list",
		mcp.WithDescription(
			"List delegations oldest first, optionally filtered by status. Use status=pending to see "+
				"the review queue.",
		),
		mcp.WithString("status",
			mcp.Description("Filter: pending, approved, or rejected. Omit for all."),
		),
	)
}

// Handle processes the delegation_list tool call.
func (t *DelegationListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	delegations, err := t.engine.ListDelegations(store.DelegationStatus(req.GetString("status", "")))
	if err != nil {
		return toolError(err)
	}
	if delegations == nil {
		delegations = []store.Delegation{}
	}
	return jsonResult(delegations)
}
