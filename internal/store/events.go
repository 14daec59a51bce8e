package store

import "fmt"

// ─── Transition log ──────────────────────────────────────────────────────────

// TaskEvent is one entry in a task's transition log: which event fired,
// what it moved between, and when. The "create" entry has no from status.
type TaskEvent struct {
	EventID    int64  `json:"event_id"`
	TaskID     string `json:"task_id"`
	Event      string `json:"event"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status"`
	Note       string `json:"note,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// appendTaskEvent writes a log entry using the caller's transaction, so
// the entry commits together with the status change it records.
func (s *Store) appendTaskEvent(x execer, e TaskEvent) error {
	_, err := x.Exec(
		`INSERT INTO task_events (task_id, event, from_status, to_status, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.TaskID, e.Event, e.FromStatus, e.ToStatus, e.Note, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append task event: %w", err)
	}
	return nil
}

// ListTaskEvents returns a task's transition log, oldest first.
func (s *Store) ListTaskEvents(taskID string) ([]TaskEvent, error) {
	rows, err := s.db.Query(
		`SELECT event_id, task_id, event, from_status, to_status, note, created_at
		 FROM task_events WHERE task_id = ? ORDER BY event_id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []TaskEvent
	for rows.Next() {
		var e TaskEvent
		if err := rows.Scan(&e.EventID, &e.TaskID, &e.Event, &e.FromStatus, &e.ToStatus, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
