package engine

import (
	"fmt"
	"strings"

	"stratum/internal/hierarchy"
	"stratum/internal/store"
)

// CreateProject registers a project and provisions its context chain, so
// the project context exists from the first moment anything can refer to it.
func (e *Engine) CreateProject(name, description string) (*store.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrValidationFailed)
	}
	ts := now()
	p := store.Project{
		ID:          newID(),
		Name:        name,
		Description: description,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := e.store.CreateProject(p); err != nil {
		return nil, err
	}
	if _, err := e.ensureChainRecords(hierarchy.LevelProject, p.ID); err != nil {
		return nil, fmt.Errorf("provision project context: %w", err)
	}
	return &p, nil
}

// CreateBranch registers a branch under a project and provisions its
// context chain.
func (e *Engine) CreateBranch(projectID, name string) (*store.Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: branch name is required", ErrValidationFailed)
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrValidationFailed)
	}
	ts := now()
	b := store.Branch{
		ID:        newID(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := e.store.CreateBranch(b); err != nil {
		return nil, err
	}
	if _, err := e.ensureChainRecords(hierarchy.LevelBranch, b.ID); err != nil {
		return nil, fmt.Errorf("provision branch context: %w", err)
	}
	return &b, nil
}

// ListProjects returns all projects, most recently updated first.
func (e *Engine) ListProjects() ([]store.Project, error) {
	return e.store.ListProjects()
}

// ListBranches returns a project's branches. The project must exist, so a
// mistyped id reads as not found rather than an empty workspace.
func (e *Engine) ListBranches(projectID string) ([]store.Branch, error) {
	if _, err := e.store.GetProject(projectID); err != nil {
		return nil, err
	}
	return e.store.ListBranches(projectID)
}
