package engine

import (
	"errors"
	"fmt"

	"stratum/internal/hierarchy"
	"stratum/internal/store"
)

// DelegateParams propose merging a payload into an ancestor context. The
// target owner id is not a parameter: it is derived from the source's own
// ancestor chain, so a task can only delegate to the branch, project, or
// global context it actually sits under.
type DelegateParams struct {
	SourceLevel hierarchy.Level
	SourceID    string
	TargetLevel hierarchy.Level
	Payload     hierarchy.Data
	Reason      string
}

// Delegate queues an upward context change in pending state. When the
// auto-approval policy covers every top-level payload key, the entry is
// approved in the same call; an approval that fails there leaves the entry
// pending for manual review instead of failing the delegation.
func (e *Engine) Delegate(p DelegateParams) (*store.Delegation, error) {
	if err := hierarchy.ValidateLevel(p.SourceLevel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := hierarchy.ValidateLevel(p.TargetLevel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if hierarchy.IsEmptyData(p.Payload) {
		return nil, fmt.Errorf("%w: delegation payload is empty", ErrValidationFailed)
	}
	if !hierarchy.IsAncestor(p.TargetLevel, p.SourceLevel) {
		return nil, fmt.Errorf("%w: %s is not an ancestor of %s", ErrDelegationLevel, p.TargetLevel, p.SourceLevel)
	}

	links, err := e.ownerChain(p.SourceLevel, normalizeOwner(p.SourceLevel, p.SourceID))
	if err != nil {
		return nil, err
	}
	target := links[hierarchy.Depth(p.TargetLevel)]

	created, err := e.store.CreateDelegation(store.Delegation{
		ID:          newID(),
		SourceLevel: p.SourceLevel,
		SourceID:    links[len(links)-1].ownerID,
		TargetLevel: target.level,
		TargetID:    target.ownerID,
		Payload:     p.Payload,
		Reason:      p.Reason,
		CreatedAt:   now(),
	})
	if err != nil {
		return nil, err
	}

	if !e.autoApprovable(p.Payload) {
		return created, nil
	}
	approved, err := e.ApproveDelegation(created.ID, "auto-approved")
	if err != nil {
		e.log.Warn("auto-approval failed, delegation left pending",
			"delegation_id", created.ID, "error", err)
		return created, nil
	}
	return approved, nil
}

// autoApprovable reports whether policy allows approving a payload without
// review: auto-approval enabled and every top-level key whitelisted.
func (e *Engine) autoApprovable(payload hierarchy.Data) bool {
	if !e.cfg.Delegation.AutoApprove {
		return false
	}
	safe := make(map[string]bool, len(e.cfg.Delegation.SafeKeys))
	for _, k := range e.cfg.Delegation.SafeKeys {
		safe[k] = true
	}
	for pair := payload.Oldest(); pair != nil; pair = pair.Next() {
		if !safe[pair.Key] {
			return false
		}
	}
	return true
}

// ApproveDelegation deep-merges a pending entry's payload into its target
// context and marks the entry approved. Racing context writers cost a
// retry with a fresh read; an entry someone else resolved first surfaces
// ErrConflict.
func (e *Engine) ApproveDelegation(id, resolution string) (*store.Delegation, error) {
	var lastErr error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		d, err := e.store.GetDelegation(id)
		if err != nil {
			return nil, err
		}
		if d.Status != store.DelegationPending {
			return nil, fmt.Errorf("%w: delegation %q already %s", store.ErrConflict, id, d.Status)
		}

		records, err := e.ensureChainRecords(d.TargetLevel, d.TargetID)
		if err != nil {
			return nil, err
		}
		target := records[len(records)-1]

		approved, err := e.store.ApproveDelegation(store.ApproveDelegationParams{
			ID:             id,
			TargetLevel:    d.TargetLevel,
			TargetOwnerID:  d.TargetID,
			ContextVersion: target.Version,
			MergedData:     hierarchy.DeepMerge(target.Data, d.Payload),
			Resolution:     resolution,
		})
		if err == nil {
			e.cache.InvalidateAtOrBelow(d.TargetLevel)
			return approved, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// RejectDelegation marks a pending entry rejected with the given reason.
// No context is touched.
func (e *Engine) RejectDelegation(id, reason string) (*store.Delegation, error) {
	return e.store.RejectDelegation(id, reason)
}

// ListDelegations returns queue entries oldest first, optionally filtered
// by status.
func (e *Engine) ListDelegations(status store.DelegationStatus) ([]store.Delegation, error) {
	if status != "" {
		if err := store.ValidateDelegationStatus(status); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
	}
	return e.store.ListDelegations(status)
}
