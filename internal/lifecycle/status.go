// Package lifecycle defines the task state machine: statuses, the events
// that move between them, and the transition table. Statuses never change
// except through a named event, so every status write has an auditable
// cause.
//
// The table is data, not code: tools and prompts list the legal events
// for a status straight from it, and the engine records the event name
// alongside each transition.
package lifecycle

import "fmt"

// --- Task status enum ---

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo          Status = "todo"
	StatusInProgress    Status = "in_progress"
	StatusBlocked       Status = "blocked"
	StatusReview        Status = "review"
	StatusTesting       Status = "testing"
	StatusContextUpdate Status = "context_update"
	StatusDone          Status = "done"
	StatusArchived      Status = "archived"
	StatusCancelled     Status = "cancelled"
)

// validStatuses is the set of allowed task statuses.
var validStatuses = map[Status]bool{
	StatusTodo:          true,
	StatusInProgress:    true,
	StatusBlocked:       true,
	StatusReview:        true,
	StatusTesting:       true,
	StatusContextUpdate: true,
	StatusDone:          true,
	StatusArchived:      true,
	StatusCancelled:     true,
}

// terminalStatuses are the states with no outgoing events. A task in a
// terminal state is frozen for good.
var terminalStatuses = map[Status]bool{
	StatusArchived:  true,
	StatusCancelled: true,
}

// ValidateStatus returns an error if the status is not recognized.
func ValidateStatus(s Status) error {
	if !validStatuses[s] {
		return fmt.Errorf("invalid task status %q: must be one of: todo, in_progress, blocked, review, testing, context_update, done, archived, cancelled", s)
	}
	return nil
}

// IsTerminal reports whether no event can move a task out of s.
func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}

// --- Task event enum ---

// Event names a requested transition. The pair (current status, event)
// determines the next status via the transition table.
type Event string

const (
	EventStart         Event = "start"
	EventBlock         Event = "block"
	EventUnblock       Event = "unblock"
	EventSendForReview Event = "send_for_review"
	EventApprove       Event = "approve"
	EventReject        Event = "reject"
	EventBeginTesting  Event = "begin_testing"
	EventPass          Event = "pass"
	EventFail          Event = "fail"
	EventFinalize      Event = "finalize"
	EventComplete      Event = "complete"
	EventReopen        Event = "reopen"
	EventArchive       Event = "archive"
	EventCancel        Event = "cancel"
)

// validEvents is the set of allowed task events.
var validEvents = map[Event]bool{
	EventStart:         true,
	EventBlock:         true,
	EventUnblock:       true,
	EventSendForReview: true,
	EventApprove:       true,
	EventReject:        true,
	EventBeginTesting:  true,
	EventPass:          true,
	EventFail:          true,
	EventFinalize:      true,
	EventComplete:      true,
	EventReopen:        true,
	EventArchive:       true,
	EventCancel:        true,
}

// ValidateEvent returns an error if the event is not recognized.
func ValidateEvent(e Event) error {
	if !validEvents[e] {
		return fmt.Errorf("invalid task event %q: must be one of: start, block, unblock, send_for_review, approve, reject, begin_testing, pass, fail, finalize, complete, reopen, archive, cancel", e)
	}
	return nil
}

// --- Subtask status enum ---

// SubtaskStatus is the lifecycle state of a subtask. Subtasks carry a
// flat status plus a progress percentage instead of the full event
// machinery.
type SubtaskStatus string

const (
	SubtaskTodo       SubtaskStatus = "todo"
	SubtaskInProgress SubtaskStatus = "in_progress"
	SubtaskDone       SubtaskStatus = "done"
	SubtaskCancelled  SubtaskStatus = "cancelled"
)

// validSubtaskStatuses is the set of allowed subtask statuses.
var validSubtaskStatuses = map[SubtaskStatus]bool{
	SubtaskTodo:       true,
	SubtaskInProgress: true,
	SubtaskDone:       true,
	SubtaskCancelled:  true,
}

// ValidateSubtaskStatus returns an error if the status is not recognized.
func ValidateSubtaskStatus(s SubtaskStatus) error {
	if !validSubtaskStatuses[s] {
		return fmt.Errorf("invalid subtask status %q: must be one of: todo, in_progress, done, cancelled", s)
	}
	return nil
}

// SubtaskIsTerminal reports whether the subtask status counts as settled
// for the parent task's completion gate.
func SubtaskIsTerminal(s SubtaskStatus) bool {
	return s == SubtaskDone || s == SubtaskCancelled
}

// ClampProgress bounds a progress percentage to 0–100.
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
