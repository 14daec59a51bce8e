package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"stratum/internal/engine"
	"stratum/internal/store"
)

// ─── ProjectCreateTool ───────────────────────────────────────────────────────

// ProjectCreateTool handles the project_create MCP tool.
type ProjectCreateTool struct {
	engine *engine.Engine
}

// NewProjectCreateTool creates a ProjectCreateTool backed by the given engine.
func NewProjectCreateTool(e *engine.Engine) *ProjectCreateTool {
	return &ProjectCreateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ProjectCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("project_create",
		mcp.WithDescription(
			"Create a project. Its context is provisioned immediately, linked under the global "+
				"context, so project-level settings can be written right away. Project names are "+
				"unique across the store.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name, e.g. payments-api"),
		),
		mcp.WithString("description",
			mcp.Description("What the project is about"),
		),
	)
}

// Handle processes the project_create tool call.
func (t *ProjectCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	p, err := t.engine.CreateProject(name, req.GetString("description", ""))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(p)
}

// ─── ProjectListTool ─────────────────────────────────────────────────────────

// ProjectListTool handles the project_list MCP tool.
type ProjectListTool struct {
	engine *engine.Engine
}

// NewProjectListTool creates a ProjectListTool backed by the given engine.
func NewProjectListTool(e *engine.Engine) *ProjectListTool {
	return &ProjectListTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ProjectListTool) Definition() mcp.Tool {
	return mcp.NewTool("project_list",
		mcp.WithDescription("List all projects, most recently updated first."),
	)
}

// Handle processes the project_list tool call.
func (t *ProjectListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := t.engine.ListProjects()
	if err != nil {
		return toolError(err)
	}
	if projects == nil {
		projects = []store.Project{}
	}
	return jsonResult(projects)
}
