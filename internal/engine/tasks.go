package engine

import (
	"errors"
	"fmt"
	"strings"

	"stratum/internal/hierarchy"
	"stratum/internal/lifecycle"
	"stratum/internal/store"
)

const defaultPriority = "medium"

// validPriorities is the set of allowed task priorities.
var validPriorities = map[string]bool{
	"low":      true,
	"medium":   true,
	"high":     true,
	"critical": true,
}

func validatePriority(p string) error {
	if !validPriorities[p] {
		return fmt.Errorf("invalid priority %q: must be one of: low, medium, high, critical", p)
	}
	return nil
}

// CreateTaskParams describe a new task. Dependencies name tasks that must
// already exist.
type CreateTaskParams struct {
	BranchID     string
	Title        string
	Description  string
	Priority     string
	Assignees    []string
	Labels       []string
	Dependencies []string
}

// CreateTask registers a task in todo, provisions its context chain, and
// records the provisioned context id on the task row.
func (e *Engine) CreateTask(p CreateTaskParams) (*store.Task, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrValidationFailed)
	}
	if p.BranchID == "" {
		return nil, fmt.Errorf("%w: branch id is required", ErrValidationFailed)
	}
	priority := p.Priority
	if priority == "" {
		priority = defaultPriority
	}
	if err := validatePriority(priority); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := e.validateDependencies(p.Dependencies); err != nil {
		return nil, err
	}

	ts := now()
	t := store.Task{
		ID:           newID(),
		BranchID:     p.BranchID,
		Title:        title,
		Description:  p.Description,
		Status:       lifecycle.StatusTodo,
		Priority:     priority,
		Assignees:    p.Assignees,
		Labels:       p.Labels,
		Dependencies: p.Dependencies,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := e.store.CreateTask(t); err != nil {
		return nil, err
	}
	records, err := e.ensureChainRecords(hierarchy.LevelTask, t.ID)
	if err != nil {
		return nil, fmt.Errorf("provision task context: %w", err)
	}
	if err := e.store.SetTaskContextID(t.ID, records[len(records)-1].ID); err != nil {
		return nil, err
	}
	return e.store.GetTask(t.ID)
}

// validateDependencies checks that declared dependencies exist, are not
// repeated, and do not attach onto a cycle already present in the stored
// graph. The new task itself cannot close a cycle: its id is fresh, so
// nothing can depend on it yet.
func (e *Engine) validateDependencies(deps []string) error {
	if len(deps) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(deps))
	for _, dep := range deps {
		if seen[dep] {
			return fmt.Errorf("%w: duplicate dependency %q", ErrValidationFailed, dep)
		}
		seen[dep] = true
		if _, err := e.store.GetTask(dep); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: dependency %q does not exist", ErrValidationFailed, dep)
			}
			return err
		}
	}

	const (
		walking = 1
		settled = 2
	)
	state := map[string]int{}
	var walk func(id string) error
	walk = func(id string) error {
		switch state[id] {
		case walking:
			return fmt.Errorf("%w: dependency cycle through task %q", ErrValidationFailed, id)
		case settled:
			return nil
		}
		state[id] = walking
		t, err := e.store.GetTask(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Dangling edge in old data; nothing to follow.
				state[id] = settled
				return nil
			}
			return err
		}
		for _, next := range t.Dependencies {
			if err := walk(next); err != nil {
				return err
			}
		}
		state[id] = settled
		return nil
	}
	for _, dep := range deps {
		if err := walk(dep); err != nil {
			return err
		}
	}
	return nil
}

// TaskDetail is a task together with its subtasks, its transition log, and
// the events legal from its current status.
type TaskDetail struct {
	Task       *store.Task       `json:"task"`
	Subtasks   []store.Subtask   `json:"subtasks,omitempty"`
	Events     []store.TaskEvent `json:"events,omitempty"`
	NextEvents []string          `json:"next_events,omitempty"`
}

// GetTaskDetail loads a task with everything an agent needs to decide the
// next step.
func (e *Engine) GetTaskDetail(id string) (*TaskDetail, error) {
	t, err := e.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	subtasks, err := e.store.ListSubtasks(id)
	if err != nil {
		return nil, err
	}
	events, err := e.store.ListTaskEvents(id)
	if err != nil {
		return nil, err
	}
	return &TaskDetail{
		Task:       t,
		Subtasks:   subtasks,
		Events:     events,
		NextEvents: lifecycle.EventsFrom(t.Status),
	}, nil
}

// ListTasks returns tasks matching the filter in creation order.
func (e *Engine) ListTasks(f store.TaskFilter) ([]store.Task, error) {
	if f.Status != "" {
		if err := lifecycle.ValidateStatus(f.Status); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
	}
	return e.store.ListTasks(f)
}

// UpdateTaskStatus fires a lifecycle event against a task. The transition
// table decides the next status; the complete event is refused here because
// completion has preconditions of its own.
func (e *Engine) UpdateTaskStatus(taskID string, event lifecycle.Event, note string) (*store.Task, error) {
	if err := lifecycle.ValidateEvent(event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if event == lifecycle.EventComplete {
		return nil, fmt.Errorf("%w: completing requires a summary, use task_complete", ErrValidationFailed)
	}

	var lastErr error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		t, err := e.store.GetTask(taskID)
		if err != nil {
			return nil, err
		}
		next, err := lifecycle.Next(t.Status, event)
		if err != nil {
			return nil, err
		}
		updated, err := e.store.TransitionTask(taskID, t.Status, next, event, note)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// CompleteTaskParams carry the completion call. Summary is mandatory.
type CompleteTaskParams struct {
	TaskID       string
	Summary      string
	TestingNotes string
	Note         string
}

// CompleteTask moves a task to done through the complete event. It requires
// every subtask to be terminal and a non-empty summary; the summary, notes,
// and completion time are merged into the task context in the same store
// transaction as the status change. A missing task context is provisioned
// rather than failing the transition.
func (e *Engine) CompleteTask(p CompleteTaskParams) (*store.Task, error) {
	summary := strings.TrimSpace(p.Summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: completion summary is required", ErrValidationFailed)
	}

	var lastErr error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		t, err := e.store.GetTask(p.TaskID)
		if err != nil {
			return nil, err
		}
		if _, err := lifecycle.Next(t.Status, lifecycle.EventComplete); err != nil {
			return nil, err
		}
		subtasks, err := e.store.ListSubtasks(p.TaskID)
		if err != nil {
			return nil, err
		}
		for _, st := range subtasks {
			if !lifecycle.SubtaskIsTerminal(st.Status) {
				return nil, fmt.Errorf("%w: subtask %q is %s, all subtasks must be done or cancelled before completing",
					ErrValidationFailed, st.ID, st.Status)
			}
		}

		records, err := e.ensureChainRecords(hierarchy.LevelTask, p.TaskID)
		if err != nil {
			return nil, err
		}
		rec := records[len(records)-1]
		if t.ContextID == "" {
			if err := e.store.SetTaskContextID(p.TaskID, rec.ID); err != nil {
				return nil, err
			}
		}

		data := hierarchy.CloneData(rec.Data)
		data.Set("completion_summary", summary)
		if p.TestingNotes != "" {
			data.Set("testing_notes", p.TestingNotes)
		}
		data.Set("completed_at", now())

		done, err := e.store.CompleteTask(store.CompleteTaskParams{
			TaskID:         p.TaskID,
			From:           t.Status,
			Summary:        summary,
			TestingNotes:   p.TestingNotes,
			ContextVersion: rec.Version,
			ContextData:    data,
			Note:           p.Note,
		})
		if err == nil {
			e.cache.InvalidateAtOrBelow(hierarchy.LevelTask)
			return done, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// DeleteTask removes a task together with its subtasks, transition log,
// and context row.
func (e *Engine) DeleteTask(id string) error {
	if err := e.store.DeleteTask(id); err != nil {
		return err
	}
	e.cache.Invalidate(hierarchy.LevelTask, id)
	return nil
}
