package engine

import (
	"errors"
	"fmt"

	"stratum/internal/hierarchy"
	"stratum/internal/store"
)

// CreateContextParams carries an explicit context create. ParentID may name
// the parent context row directly; left empty, the id of the provisioned
// parent row is used.
type CreateContextParams struct {
	Level    hierarchy.Level
	OwnerID  string
	ParentID string
	Data     hierarchy.Data
}

// CreateContext creates the (level, owner) context row with the caller's
// payload. Ancestor rows are provisioned first; creating a row that already
// exists fails with ErrAlreadyExists, the auto-provisioned seed is only for
// rows nobody created explicitly. An explicit ParentID must name an existing
// context row at the immediate parent level; the global context never takes
// one.
func (e *Engine) CreateContext(p CreateContextParams) (*store.ContextRecord, error) {
	ownerID := normalizeOwner(p.Level, p.OwnerID)
	links, err := e.ownerChain(p.Level, ownerID)
	if err != nil {
		return nil, err
	}

	parentID := ""
	for _, link := range links[:len(links)-1] {
		rec, err := e.ensureLink(link, parentID)
		if err != nil {
			return nil, err
		}
		parentID = rec.ID
	}
	if p.ParentID != "" {
		if p.Level == hierarchy.LevelGlobal {
			return nil, fmt.Errorf("%w: the global context has no parent", ErrValidationFailed)
		}
		parentLevel, _ := hierarchy.Parent(p.Level)
		parent, err := e.store.GetContextByID(p.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Level != parentLevel {
			return nil, fmt.Errorf("%w: parent context %q is at level %s, the parent of a %s context must be at level %s",
				ErrValidationFailed, p.ParentID, parent.Level, p.Level, parentLevel)
		}
		parentID = p.ParentID
	}

	data := p.Data
	if data == nil {
		data = hierarchy.NewData()
	}
	ts := now()
	rec, err := e.store.CreateContext(store.ContextRecord{
		ID:        newID(),
		Level:     p.Level,
		OwnerID:   ownerID,
		ParentID:  parentID,
		Data:      data,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	if err != nil {
		return nil, err
	}
	e.cache.InvalidateAtOrBelow(p.Level)
	return rec, nil
}

// UpdateContextParams is one patch: a dot-separated path, the value to put
// there, and the strategy for landing it. ExpectedVersion zero means
// "whatever is current"; a non-zero value pins the write to that version
// and surfaces ErrConflict if the row has moved since the caller's read.
type UpdateContextParams struct {
	Level           hierarchy.Level
	OwnerID         string
	Path            string
	Value           any
	Strategy        hierarchy.MergeStrategy
	ExpectedVersion int64
}

// UpdateContext applies a patch to the row's own data. A missing row is
// provisioned first, so the first write to a fresh entity needs no explicit
// create. Unpinned writes retry with a fresh read when a racing writer
// moves the version between read and write.
func (e *Engine) UpdateContext(p UpdateContextParams) (*store.ContextRecord, error) {
	strategy := p.Strategy
	if strategy == "" {
		strategy = hierarchy.MergeReplacePath
	}
	ownerID := normalizeOwner(p.Level, p.OwnerID)

	var lastErr error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		records, err := e.ensureChainRecords(p.Level, ownerID)
		if err != nil {
			return nil, err
		}
		rec := records[len(records)-1]
		if p.ExpectedVersion != 0 && rec.Version != p.ExpectedVersion {
			return nil, fmt.Errorf("%w: context %s/%s is at version %d, expected %d",
				store.ErrConflict, p.Level, ownerID, rec.Version, p.ExpectedVersion)
		}

		data := hierarchy.CloneData(rec.Data)
		if err := hierarchy.SetPath(data, p.Path, p.Value, strategy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		updated, err := e.store.UpdateContextData(p.Level, ownerID, rec.Version, data)
		if err == nil {
			e.cache.InvalidateAtOrBelow(p.Level)
			return updated, nil
		}
		if p.ExpectedVersion != 0 || !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
