// Package resources implements MCP resource handlers for the context store.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (stratum://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
	"stratum/internal/store"
)

// Handler manages the store's resource endpoints.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// StatusResource returns the MCP resource definition for store status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"stratum://status",
		"Context Store Status",
		mcp.WithResourceDescription("Entity and context counts, tasks by status, delegation queue totals, and cache statistics"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the current store statistics as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.engine.Stats()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// PendingDelegationsResource returns the MCP resource definition for the
// delegation review queue.
func (h *Handler) PendingDelegationsResource() mcp.Resource {
	return mcp.NewResource(
		"stratum://delegations/pending",
		"Pending Delegations",
		mcp.WithResourceDescription("Delegations waiting for review, oldest first"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandlePendingDelegations returns the pending queue as JSON.
func (h *Handler) HandlePendingDelegations(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pending, err := h.engine.ListDelegations(store.DelegationPending)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if pending == nil {
		pending = []store.Delegation{}
	}

	data, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling pending delegations: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
