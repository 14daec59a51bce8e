// Package tools implements the MCP tools for projects, branches, tasks,
// and subtasks. Each tool follows the same pattern:
//   - A struct with dependencies (the engine) injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Domain failures (validation, unknown ids, illegal transitions, version
// conflicts) come back in-band as tool errors so the calling agent can read
// them and adjust; only infrastructure failures surface as Go errors.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"stratum/internal/engine"
	"stratum/internal/lifecycle"
	"stratum/internal/store"
)

// jsonResult marshals v indented and wraps it as a text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError routes domain errors back to the caller as tool errors and
// lets anything else escape as a Go error.
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

// stringSliceArg extracts an array-of-strings argument. A missing key or
// a non-array value yields nil.
func stringSliceArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, err := cast.ToStringE(item)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// boolArg extracts a boolean argument, falling back to defaultVal.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	if v, ok := req.GetArguments()[key].(bool); ok {
		return v
	}
	return defaultVal
}

// intArg extracts a numeric argument as int, falling back to defaultVal.
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

// hasArg reports whether the argument was supplied at all, so handlers can
// tell an absent field from a zero value.
func hasArg(req mcp.CallToolRequest, key string) bool {
	_, ok := req.GetArguments()[key]
	return ok
}
