// Package ctxtools implements the MCP tools for the context hierarchy:
// creating and updating context payloads, resolving the inheritance
// chain, and the delegation queue.
//
// Each tool follows the same pattern as internal/tools:
// - A struct with dependencies (engine.Engine) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Domain failures (validation, unknown ids, version conflicts) come back
// in-band as tool errors so the calling agent can correct itself and
// retry. Infrastructure failures return Go errors.
package ctxtools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"stratum/internal/engine"
	"stratum/internal/hierarchy"
	"stratum/internal/lifecycle"
	"stratum/internal/store"
)

// jsonResult renders v as indented JSON, the shape agents consume best.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError routes a failure to the right channel: domain errors become
// tool errors the agent can react to, everything else is a transport
// error for the host.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, engine.ErrValidationFailed),
		errors.Is(err, engine.ErrDelegationLevel),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrConflict):
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

// dataArg parses a JSON-object argument. A missing or empty argument
// yields nil, which the engine treats as "no payload".
func dataArg(req mcp.CallToolRequest, key string) (hierarchy.Data, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	d, err := hierarchy.ParseData([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", key, err)
	}
	return d, nil
}

// boolArg extracts a boolean argument, returning defaultVal if the key
// is missing or not a bool.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key]
	if !ok {
		return defaultVal
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return defaultVal
	}
	return n
}

// hasArg reports whether the caller passed the key at all, so tools can
// tell an explicit empty string apart from an omitted argument.
func hasArg(req mcp.CallToolRequest, key string) bool {
	_, ok := req.GetArguments()[key]
	return ok
}

// levelArg reads a hierarchy level argument. Validation happens in the
// engine so every tool reports unknown levels the same way.
func levelArg(req mcp.CallToolRequest, key string) hierarchy.Level {
	return hierarchy.Level(req.GetString(key, ""))
}
