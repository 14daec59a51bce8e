// Package hierarchy defines the four-level context hierarchy and the
// ordered data payloads attached to each level.
//
// The hierarchy is fixed: global → project → branch → task. Every context
// belongs to exactly one level, and resolution walks the chain from the
// root down, letting more specific levels override their ancestors.
//
// This package is pure domain logic — no persistence, no transport. The
// store and engine packages build on it.
package hierarchy

import "fmt"

// Level identifies one tier of the context hierarchy.
type Level string

const (
	LevelGlobal  Level = "global"
	LevelProject Level = "project"
	LevelBranch  Level = "branch"
	LevelTask    Level = "task"
)

// GlobalOwnerID is the well-known owner id of the global context row.
// The global context is a data-level singleton: exactly one row, created
// on first use, guarded by the same version check as any other row.
const GlobalOwnerID = "global"

// Chain is the full hierarchy in root-first order. Resolution and
// auto-provisioning iterate over this slice rather than recursing, so the
// worst-case walk is bounded by its length.
var Chain = []Level{LevelGlobal, LevelProject, LevelBranch, LevelTask}

// depth maps each level to its position in Chain (global=0 … task=3).
var depth = map[Level]int{
	LevelGlobal:  0,
	LevelProject: 1,
	LevelBranch:  2,
	LevelTask:    3,
}

// ValidateLevel returns an error if the level is not recognized.
func ValidateLevel(l Level) error {
	if _, ok := depth[l]; !ok {
		return fmt.Errorf("invalid level %q: must be one of: global, project, branch, task", l)
	}
	return nil
}

// Depth returns the level's position in the chain (global=0 … task=3),
// or -1 for unknown levels.
func Depth(l Level) int {
	d, ok := depth[l]
	if !ok {
		return -1
	}
	return d
}

// Parent returns the immediate parent level, or false for global (which
// has no parent) and for unknown levels.
func Parent(l Level) (Level, bool) {
	d, ok := depth[l]
	if !ok || d == 0 {
		return "", false
	}
	return Chain[d-1], true
}

// IsAncestor reports whether ancestor is a strict ancestor of l:
// a valid level closer to the root, not l itself.
func IsAncestor(ancestor, l Level) bool {
	da, ok := depth[ancestor]
	if !ok {
		return false
	}
	dl, ok := depth[l]
	if !ok {
		return false
	}
	return da < dl
}

// AtOrBelow reports whether l sits at the given level or any more
// specific one. Used by the cache's conservative invalidation: a write at
// level L evicts everything at or below L.
func AtOrBelow(l, level Level) bool {
	dl, ok := depth[l]
	if !ok {
		return false
	}
	dlevel, ok := depth[level]
	if !ok {
		return false
	}
	return dl >= dlevel
}

// ChainThrough returns the chain from global down to l inclusive.
// Returns an error for unknown levels.
func ChainThrough(l Level) ([]Level, error) {
	d, ok := depth[l]
	if !ok {
		return nil, fmt.Errorf("invalid level %q", l)
	}
	// Copy so callers cannot mutate Chain.
	result := make([]Level, d+1)
	copy(result, Chain[:d+1])
	return result, nil
}
