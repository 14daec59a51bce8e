package store

import (
	"database/sql"
	"fmt"

	"stratum/internal/hierarchy"
	"stratum/internal/lifecycle"
)

// ─── Tasks ───────────────────────────────────────────────────────────────────

// Task is the unit of work. Status only changes through TransitionTask or
// CompleteTask, which also append to the transition log.
type Task struct {
	ID                string           `json:"id"`
	BranchID          string           `json:"branch_id"`
	Title             string           `json:"title"`
	Description       string           `json:"description,omitempty"`
	Status            lifecycle.Status `json:"status"`
	Priority          string           `json:"priority"`
	Assignees         []string         `json:"assignees,omitempty"`
	Labels            []string         `json:"labels,omitempty"`
	Dependencies      []string         `json:"dependencies,omitempty"`
	ContextID         string           `json:"context_id,omitempty"`
	CompletionSummary string           `json:"completion_summary,omitempty"`
	TestingNotes      string           `json:"testing_notes,omitempty"`
	CreatedAt         string           `json:"created_at"`
	UpdatedAt         string           `json:"updated_at"`
}

const taskColumns = `id, branch_id, title, description, status, priority,
	assignees, labels, dependencies, context_id, completion_summary,
	testing_notes, created_at, updated_at`

func scanTask(row interface{ Scan(dest ...any) error }) (*Task, error) {
	var t Task
	var status string
	var assignees, labels, deps string
	var contextID sql.NullString
	if err := row.Scan(
		&t.ID, &t.BranchID, &t.Title, &t.Description, &status, &t.Priority,
		&assignees, &labels, &deps, &contextID, &t.CompletionSummary,
		&t.TestingNotes, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = lifecycle.Status(status)
	t.Assignees = decodeStringList(assignees)
	t.Labels = decodeStringList(labels)
	t.Dependencies = decodeStringList(deps)
	t.ContextID = contextID.String
	return &t, nil
}

// CreateTask inserts a new task and logs a "create" entry in the
// transition log, both in one transaction. The branch must exist.
func (s *Store) CreateTask(t Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("create task: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO tasks (id, branch_id, title, description, status, priority,
		                    assignees, labels, dependencies, completion_summary,
		                    testing_notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.BranchID, t.Title, t.Description, string(t.Status), t.Priority,
		encodeStringList(t.Assignees), encodeStringList(t.Labels),
		encodeStringList(t.Dependencies), t.CompletionSummary, t.TestingNotes,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: task %q", ErrAlreadyExists, t.ID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: branch %q", ErrNotFound, t.BranchID)
		}
		return fmt.Errorf("create task: %w", err)
	}

	if err := s.appendTaskEvent(tx, TaskEvent{
		TaskID:    t.ID,
		Event:     "create",
		ToStatus:  string(t.Status),
		CreatedAt: t.CreatedAt,
	}); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create task: commit: %w", err)
	}
	return nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: task %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// TaskFilter narrows ListTasks. Zero values mean "no filter".
type TaskFilter struct {
	BranchID string
	Status   lifecycle.Status
}

// ListTasks returns tasks matching the filter in creation order.
func (s *Store) ListTasks(f TaskFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []any{}

	if f.BranchID != "" {
		query += " AND branch_id = ?"
		args = append(args, f.BranchID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *t)
	}
	return results, rows.Err()
}

// SetTaskContextID records the id of the task's provisioned context row.
func (s *Store) SetTaskContextID(taskID, contextID string) error {
	res, err := s.db.Exec(
		`UPDATE tasks SET context_id = ? WHERE id = ?`, contextID, taskID,
	)
	if err != nil {
		return fmt.Errorf("set task context: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: task %q", ErrNotFound, taskID)
	}
	return nil
}

// TransitionTask moves a task from one status to another and appends the
// event to the transition log, in one transaction. The update is guarded
// on the expected current status: if another writer moved the task first,
// the call fails with ErrConflict and changes nothing.
func (s *Store) TransitionTask(taskID string, from, to lifecycle.Status, event lifecycle.Event, note string) (*Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("transition task: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := Now()
	res, err := tx.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), now, taskID, string(from),
	)
	if err != nil {
		return nil, fmt.Errorf("transition task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.explainTaskWriteMiss(tx, taskID, from)
	}

	if err := s.appendTaskEvent(tx, TaskEvent{
		TaskID:     taskID,
		Event:      string(event),
		FromStatus: string(from),
		ToStatus:   string(to),
		Note:       note,
		CreatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("transition task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("transition task: commit: %w", err)
	}
	return s.GetTask(taskID)
}

// CompleteTaskParams carries everything the completion write needs: the
// guarded status move, the summary fields, and the already-merged context
// payload with the version observed when it was read.
type CompleteTaskParams struct {
	TaskID         string
	From           lifecycle.Status
	Summary        string
	TestingNotes   string
	ContextVersion int64
	ContextData    hierarchy.Data
	Note           string
}

// CompleteTask marks a task done, writes the completion summary into both
// the task row and its context (optimistically versioned), and appends the
// complete event. All three writes commit together or not at all.
func (s *Store) CompleteTask(p CompleteTaskParams) (*Task, error) {
	raw, err := hierarchy.EncodeData(p.ContextData)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("complete task: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := Now()
	res, err := tx.Exec(
		`UPDATE tasks SET status = ?, completion_summary = ?, testing_notes = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(lifecycle.StatusDone), p.Summary, p.TestingNotes, now,
		p.TaskID, string(p.From),
	)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.explainTaskWriteMiss(tx, p.TaskID, p.From)
	}

	res, err = tx.Exec(
		`UPDATE contexts SET data = ?, version = version + 1, updated_at = ?
		 WHERE level = ? AND owner_id = ? AND version = ?`,
		string(raw), now, string(hierarchy.LevelTask), p.TaskID, p.ContextVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("complete task: context write: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: task context %q changed since version %d",
			ErrConflict, p.TaskID, p.ContextVersion)
	}

	if err := s.appendTaskEvent(tx, TaskEvent{
		TaskID:     p.TaskID,
		Event:      string(lifecycle.EventComplete),
		FromStatus: string(p.From),
		ToStatus:   string(lifecycle.StatusDone),
		Note:       p.Note,
		CreatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("complete task: commit: %w", err)
	}
	return s.GetTask(p.TaskID)
}

// DeleteTask removes a task, its subtasks and transition log (FK cascade),
// and its context row, in one transaction.
func (s *Store) DeleteTask(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete task: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: task %q", ErrNotFound, id)
	}

	if _, err := tx.Exec(
		`DELETE FROM contexts WHERE level = ? AND owner_id = ?`,
		string(hierarchy.LevelTask), id,
	); err != nil {
		return fmt.Errorf("delete task: context: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete task: commit: %w", err)
	}
	return nil
}

// explainTaskWriteMiss turns a zero-row guarded update into the right
// error: the task is gone, or its status moved underneath the caller.
func (s *Store) explainTaskWriteMiss(tx *sql.Tx, taskID string, expected lifecycle.Status) error {
	var current string
	err := tx.QueryRow(`SELECT status FROM tasks WHERE id = ?`, taskID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: task %q", ErrNotFound, taskID)
	}
	if err != nil {
		return fmt.Errorf("explain write miss: %w", err)
	}
	return fmt.Errorf("%w: task %q is %q, expected %q", ErrConflict, taskID, current, expected)
}
