package engine

import (
	"errors"
	"fmt"
	"strings"

	"stratum/internal/hierarchy"
	"stratum/internal/lifecycle"
	"stratum/internal/store"
)

// AddSubtaskParams describe a new subtask under an existing task.
type AddSubtaskParams struct {
	TaskID    string
	Title     string
	Assignees []string
}

// AddSubtask appends a subtask in todo at the end of the task's sequence.
func (e *Engine) AddSubtask(p AddSubtaskParams) (*store.Subtask, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: subtask title is required", ErrValidationFailed)
	}
	if p.TaskID == "" {
		return nil, fmt.Errorf("%w: task id is required", ErrValidationFailed)
	}
	ts := now()
	return e.store.CreateSubtask(store.Subtask{
		ID:        newID(),
		TaskID:    p.TaskID,
		Title:     title,
		Status:    lifecycle.SubtaskTodo,
		Assignees: p.Assignees,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
}

// UpdateSubtaskParams patch a subtask. Nil pointer fields keep the current
// value; a nil Assignees slice keeps the current assignees.
type UpdateSubtaskParams struct {
	TaskID    string
	SubtaskID string
	Title     *string
	Status    *lifecycle.SubtaskStatus
	Progress  *int
	Assignees []string
}

// UpdateSubtask applies the patch and syncs the task's subtask state into
// the task context under the progress key. Progress is clamped to 0-100
// and a done status forces progress to 100.
func (e *Engine) UpdateSubtask(p UpdateSubtaskParams) (*store.Subtask, error) {
	sub, err := e.store.GetSubtask(p.SubtaskID)
	if err != nil {
		return nil, err
	}
	if p.TaskID != "" && p.TaskID != sub.TaskID {
		return nil, fmt.Errorf("%w: subtask %q belongs to task %q", ErrValidationFailed, p.SubtaskID, sub.TaskID)
	}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: subtask title cannot be empty", ErrValidationFailed)
		}
		sub.Title = title
	}
	if p.Status != nil {
		if err := lifecycle.ValidateSubtaskStatus(*p.Status); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		sub.Status = *p.Status
	}
	if p.Progress != nil {
		sub.Progress = lifecycle.ClampProgress(*p.Progress)
	}
	if p.Assignees != nil {
		sub.Assignees = p.Assignees
	}
	if sub.Status == lifecycle.SubtaskDone {
		sub.Progress = 100
	}
	sub.UpdatedAt = now()

	if err := e.store.UpdateSubtask(*sub); err != nil {
		return nil, err
	}
	if err := e.syncTaskProgress(sub.TaskID); err != nil {
		return nil, err
	}
	return e.store.GetSubtask(p.SubtaskID)
}

// syncTaskProgress recomputes the task's subtask summary and merges it into
// the task context under "progress". The write is optimistically versioned
// and retried with a fresh read; last writer wins, and since every writer
// recomputes from the full subtask list, the last write is also correct.
func (e *Engine) syncTaskProgress(taskID string) error {
	var lastErr error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		subtasks, err := e.store.ListSubtasks(taskID)
		if err != nil {
			return err
		}
		records, err := e.ensureChainRecords(hierarchy.LevelTask, taskID)
		if err != nil {
			return err
		}
		rec := records[len(records)-1]

		merged := hierarchy.DeepMerge(rec.Data, progressOverlay(subtasks))
		if _, err := e.store.UpdateContextData(hierarchy.LevelTask, taskID, rec.Version, merged); err != nil {
			if !errors.Is(err, store.ErrConflict) {
				return err
			}
			lastErr = err
			continue
		}
		e.cache.InvalidateAtOrBelow(hierarchy.LevelTask)
		return nil
	}
	return lastErr
}

// progressOverlay builds the payload merged into the task context: one
// snapshot per subtask keyed by id, plus done/total counters. Cancelled
// subtasks stay in total but never count as done.
func progressOverlay(subtasks []store.Subtask) hierarchy.Data {
	snapshots := hierarchy.NewData()
	done := 0
	for _, st := range subtasks {
		if st.Status == lifecycle.SubtaskDone {
			done++
		}
		snap := hierarchy.NewData()
		snap.Set("title", st.Title)
		snap.Set("status", string(st.Status))
		snap.Set("progress", st.Progress)
		snapshots.Set(st.ID, snap)
	}

	progress := hierarchy.NewData()
	progress.Set("subtasks", snapshots)
	progress.Set("done", done)
	progress.Set("total", len(subtasks))

	overlay := hierarchy.NewData()
	overlay.Set("progress", progress)
	return overlay
}
