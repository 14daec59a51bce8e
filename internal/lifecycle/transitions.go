package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidTransition is returned when a (status, event) pair has no
// entry in the transition table. The task row is left untouched.
var ErrInvalidTransition = errors.New("invalid transition")

// --- Transition table ---

// transitions maps each status to the events it accepts and the status
// each event leads to. Every non-terminal status accepts cancel; the
// terminal statuses (archived, cancelled) have no entries at all.
var transitions = map[Status]map[Event]Status{
	StatusTodo: {
		EventStart:  StatusInProgress,
		EventCancel: StatusCancelled,
	},
	StatusInProgress: {
		EventBlock:         StatusBlocked,
		EventSendForReview: StatusReview,
		EventBeginTesting:  StatusTesting,
		EventFinalize:      StatusContextUpdate,
		EventCancel:        StatusCancelled,
	},
	StatusBlocked: {
		EventUnblock: StatusInProgress,
		EventCancel:  StatusCancelled,
	},
	StatusReview: {
		EventApprove:      StatusContextUpdate,
		EventReject:       StatusInProgress,
		EventBeginTesting: StatusTesting,
		EventCancel:       StatusCancelled,
	},
	StatusTesting: {
		EventPass:   StatusContextUpdate,
		EventFail:   StatusInProgress,
		EventCancel: StatusCancelled,
	},
	StatusContextUpdate: {
		EventComplete: StatusDone,
		EventReopen:   StatusInProgress,
		EventCancel:   StatusCancelled,
	},
	StatusDone: {
		EventArchive: StatusArchived,
		EventCancel:  StatusCancelled,
	},
}

// Next returns the status that event leads to from the current status.
// Unknown pairs return ErrInvalidTransition with the legal events listed,
// so a caller can show the agent what it may do instead.
func Next(from Status, event Event) (Status, error) {
	if err := ValidateStatus(from); err != nil {
		return "", err
	}
	if err := ValidateEvent(event); err != nil {
		return "", err
	}
	row, ok := transitions[from]
	if !ok {
		return "", fmt.Errorf("%w: task is %s, a terminal status", ErrInvalidTransition, from)
	}
	to, ok := row[event]
	if !ok {
		return "", fmt.Errorf("%w: event %q not allowed from status %q (allowed: %s)",
			ErrInvalidTransition, event, from, strings.Join(EventsFrom(from), ", "))
	}
	return to, nil
}

// CanTransition reports whether event is legal from the current status.
func CanTransition(from Status, event Event) bool {
	_, err := Next(from, event)
	return err == nil
}

// EventsFrom lists the events accepted from a status, sorted for stable
// output. Terminal statuses return nil.
func EventsFrom(from Status) []string {
	row, ok := transitions[from]
	if !ok {
		return nil
	}
	events := make([]string, 0, len(row))
	for e := range row {
		events = append(events, string(e))
	}
	sort.Strings(events)
	return events
}
