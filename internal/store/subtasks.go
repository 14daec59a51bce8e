package store

import (
	"database/sql"
	"fmt"

	"stratum/internal/lifecycle"
)

// ─── Subtasks ────────────────────────────────────────────────────────────────

// Subtask is an ordered unit of progress under a task. Position fixes the
// sequence; progress is a 0–100 percentage.
type Subtask struct {
	ID        string                  `json:"id"`
	TaskID    string                  `json:"task_id"`
	Title     string                  `json:"title"`
	Status    lifecycle.SubtaskStatus `json:"status"`
	Progress  int                     `json:"progress"`
	Assignees []string                `json:"assignees,omitempty"`
	Position  int                     `json:"position"`
	CreatedAt string                  `json:"created_at"`
	UpdatedAt string                  `json:"updated_at"`
}

const subtaskColumns = `id, task_id, title, status, progress, assignees, position, created_at, updated_at`

func scanSubtask(row interface{ Scan(dest ...any) error }) (*Subtask, error) {
	var st Subtask
	var status, assignees string
	if err := row.Scan(
		&st.ID, &st.TaskID, &st.Title, &status, &st.Progress,
		&assignees, &st.Position, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		return nil, err
	}
	st.Status = lifecycle.SubtaskStatus(status)
	st.Assignees = decodeStringList(assignees)
	return &st, nil
}

// CreateSubtask appends a subtask at the end of the task's sequence. The
// position is assigned inside the insert so concurrent adds stay ordered.
func (s *Store) CreateSubtask(st Subtask) (*Subtask, error) {
	_, err := s.db.Exec(
		`INSERT INTO subtasks (id, task_id, title, status, progress, assignees, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?,
		         (SELECT COALESCE(MAX(position) + 1, 0) FROM subtasks WHERE task_id = ?),
		         ?, ?)`,
		st.ID, st.TaskID, st.Title, string(st.Status), st.Progress,
		encodeStringList(st.Assignees), st.TaskID, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: subtask %q", ErrAlreadyExists, st.ID)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: task %q", ErrNotFound, st.TaskID)
		}
		return nil, fmt.Errorf("create subtask: %w", err)
	}
	return s.GetSubtask(st.ID)
}

// GetSubtask retrieves a subtask by id.
func (s *Store) GetSubtask(id string) (*Subtask, error) {
	row := s.db.QueryRow(`SELECT `+subtaskColumns+` FROM subtasks WHERE id = ?`, id)
	st, err := scanSubtask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: subtask %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get subtask: %w", err)
	}
	return st, nil
}

// ListSubtasks returns a task's subtasks in sequence order.
func (s *Store) ListSubtasks(taskID string) ([]Subtask, error) {
	rows, err := s.db.Query(
		`SELECT `+subtaskColumns+` FROM subtasks WHERE task_id = ? ORDER BY position ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Subtask
	for rows.Next() {
		st, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *st)
	}
	return results, rows.Err()
}

// UpdateSubtask overwrites the mutable fields of a subtask.
func (s *Store) UpdateSubtask(st Subtask) error {
	res, err := s.db.Exec(
		`UPDATE subtasks SET title = ?, status = ?, progress = ?, assignees = ?, updated_at = ?
		 WHERE id = ?`,
		st.Title, string(st.Status), st.Progress, encodeStringList(st.Assignees),
		st.UpdatedAt, st.ID,
	)
	if err != nil {
		return fmt.Errorf("update subtask: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: subtask %q", ErrNotFound, st.ID)
	}
	return nil
}
