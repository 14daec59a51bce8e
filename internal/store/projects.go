package store

import (
	"database/sql"
	"fmt"
)

// ─── Projects ────────────────────────────────────────────────────────────────

// Project is the top workspace entity. Its context lives at the project
// level of the hierarchy, keyed by the project id.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateProject inserts a new project. Names are unique across the store.
func (s *Store) CreateProject(p Project) error {
	_, err := s.db.Exec(
		`INSERT INTO projects (id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: project %q", ErrAlreadyExists, p.Name)
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(id string) (*Project, error) {
	row := s.db.QueryRow(
		`SELECT id, name, description, created_at, updated_at FROM projects WHERE id = ?`, id,
	)
	var p Project
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: project %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns all projects, most recently updated first.
func (s *Store) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, created_at, updated_at
		 FROM projects ORDER BY updated_at DESC, name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// ─── Branches ────────────────────────────────────────────────────────────────

// Branch is a line of work inside a project; tasks hang off branches.
type Branch struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateBranch inserts a new branch. Names are unique per project, and the
// project must exist.
func (s *Store) CreateBranch(b Branch) error {
	_, err := s.db.Exec(
		`INSERT INTO branches (id, project_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.ProjectID, b.Name, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: branch %q in project %q", ErrAlreadyExists, b.Name, b.ProjectID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project %q", ErrNotFound, b.ProjectID)
		}
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

// GetBranch retrieves a branch by id.
func (s *Store) GetBranch(id string) (*Branch, error) {
	row := s.db.QueryRow(
		`SELECT id, project_id, name, created_at, updated_at FROM branches WHERE id = ?`, id,
	)
	var b Branch
	if err := row.Scan(&b.ID, &b.ProjectID, &b.Name, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: branch %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}

// ListBranches returns the branches of a project in creation order.
func (s *Store) ListBranches(projectID string) ([]Branch, error) {
	rows, err := s.db.Query(
		`SELECT id, project_id, name, created_at, updated_at
		 FROM branches WHERE project_id = ? ORDER BY created_at ASC, name ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.Name, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}
