package engine

import (
	"errors"
	"fmt"

	"stratum/internal/hierarchy"
	"stratum/internal/store"
)

// ContextSource names one layer that contributed to a resolution, with the
// version observed at merge time.
type ContextSource struct {
	Level   hierarchy.Level `json:"level"`
	OwnerID string          `json:"owner_id"`
	Version int64           `json:"version"`
}

// ResolvedContext is an effective context: the requested level's data with
// every ancestor merged underneath, root first.
type ResolvedContext struct {
	Level      hierarchy.Level `json:"level"`
	OwnerID    string          `json:"owner_id"`
	Data       hierarchy.Data  `json:"data"`
	Sources    []ContextSource `json:"sources"`
	ResolvedAt string          `json:"resolved_at"`
}

// ResolveOptions adjust a resolution. OwnOnly skips the merge and returns
// the requested level's own data, for editing views that must tell a local
// setting from an inherited one. ForceRefresh bypasses the cache read; the
// fresh result still replaces the cached entry.
type ResolveOptions struct {
	OwnOnly      bool
	ForceRefresh bool
}

// Resolve returns the effective context for (level, ownerID), provisioning
// missing rows along the chain first. The only hard NotFound here is a
// missing owning entity. Full resolutions are served from and written to
// the cache; OwnOnly views always read the store.
func (e *Engine) Resolve(level hierarchy.Level, ownerID string, opts ResolveOptions) (*ResolvedContext, error) {
	ownerID = normalizeOwner(level, ownerID)
	if !opts.OwnOnly && !opts.ForceRefresh {
		if rc, ok := e.cache.Get(level, ownerID); ok {
			return rc, nil
		}
	}

	// Snapshot the invalidation counter before touching the store: if a
	// write invalidates while this resolution is in flight, the result
	// below may predate it and must not land in the cache.
	gen := e.cache.Generation()
	records, err := e.ensureChainRecords(level, ownerID)
	if err != nil {
		return nil, err
	}
	if opts.OwnOnly {
		leaf := records[len(records)-1]
		return &ResolvedContext{
			Level:      leaf.Level,
			OwnerID:    leaf.OwnerID,
			Data:       hierarchy.CloneData(leaf.Data),
			Sources:    []ContextSource{{Level: leaf.Level, OwnerID: leaf.OwnerID, Version: leaf.Version}},
			ResolvedAt: now(),
		}, nil
	}

	rc := mergeChain(records)
	e.cache.Put(level, ownerID, gen, rc)
	return rc, nil
}

// EnsureChain provisions every missing context row from the root down to
// (level, ownerID) and returns the resolved view. Idempotent: rows that
// already exist are left untouched, so a second call is a plain read.
func (e *Engine) EnsureChain(level hierarchy.Level, ownerID string) (*ResolvedContext, error) {
	return e.Resolve(level, ownerID, ResolveOptions{ForceRefresh: true})
}

// mergeChain folds the chain root-first into one effective payload. More
// specific levels win: mapping values merge recursively, scalar and array
// values replace wholesale.
func mergeChain(records []*store.ContextRecord) *ResolvedContext {
	leaf := records[len(records)-1]
	merged := hierarchy.NewData()
	sources := make([]ContextSource, 0, len(records))
	for _, rec := range records {
		merged = hierarchy.DeepMerge(merged, rec.Data)
		sources = append(sources, ContextSource{Level: rec.Level, OwnerID: rec.OwnerID, Version: rec.Version})
	}
	return &ResolvedContext{
		Level:      leaf.Level,
		OwnerID:    leaf.OwnerID,
		Data:       merged,
		Sources:    sources,
		ResolvedAt: now(),
	}
}

// chainLink is one level of an owner's ancestry: the context coordinates
// plus the seed payload used if the row has to be provisioned.
type chainLink struct {
	level   hierarchy.Level
	ownerID string
	seed    hierarchy.Data
}

// normalizeOwner fills in the fixed global owner id when the caller leaves
// it empty at the global level.
func normalizeOwner(level hierarchy.Level, ownerID string) string {
	if level == hierarchy.LevelGlobal && ownerID == "" {
		return hierarchy.GlobalOwnerID
	}
	return ownerID
}

// ownerChain maps (level, ownerID) to its full ancestry, root first, by
// reading the entity rows. The walk is iterative over the fixed chain, so
// cost is linear in hierarchy depth.
func (e *Engine) ownerChain(level hierarchy.Level, ownerID string) ([]chainLink, error) {
	if err := hierarchy.ValidateLevel(level); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	global := chainLink{level: hierarchy.LevelGlobal, ownerID: hierarchy.GlobalOwnerID, seed: hierarchy.NewData()}
	if level == hierarchy.LevelGlobal {
		if ownerID != hierarchy.GlobalOwnerID {
			return nil, fmt.Errorf("%w: the global context owner id is always %q", ErrValidationFailed, hierarchy.GlobalOwnerID)
		}
		return []chainLink{global}, nil
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required at level %s", ErrValidationFailed, level)
	}

	switch level {
	case hierarchy.LevelProject:
		p, err := e.store.GetProject(ownerID)
		if err != nil {
			return nil, err
		}
		return []chainLink{global, projectLink(p)}, nil
	case hierarchy.LevelBranch:
		b, err := e.store.GetBranch(ownerID)
		if err != nil {
			return nil, err
		}
		p, err := e.store.GetProject(b.ProjectID)
		if err != nil {
			return nil, err
		}
		return []chainLink{global, projectLink(p), branchLink(b)}, nil
	default:
		t, err := e.store.GetTask(ownerID)
		if err != nil {
			return nil, err
		}
		b, err := e.store.GetBranch(t.BranchID)
		if err != nil {
			return nil, err
		}
		p, err := e.store.GetProject(b.ProjectID)
		if err != nil {
			return nil, err
		}
		return []chainLink{global, projectLink(p), branchLink(b), taskLink(t)}, nil
	}
}

func projectLink(p *store.Project) chainLink {
	return chainLink{level: hierarchy.LevelProject, ownerID: p.ID, seed: entitySeed(p.Name, "project_id", p.ID, p.CreatedAt)}
}

func branchLink(b *store.Branch) chainLink {
	return chainLink{level: hierarchy.LevelBranch, ownerID: b.ID, seed: entitySeed(b.Name, "branch_id", b.ID, b.CreatedAt)}
}

func taskLink(t *store.Task) chainLink {
	return chainLink{level: hierarchy.LevelTask, ownerID: t.ID, seed: entitySeed(t.Title, "task_id", t.ID, t.CreatedAt)}
}

// entitySeed is the minimal payload a provisioned context starts with,
// derived from the owning entity.
func entitySeed(name, idKey, id, createdAt string) hierarchy.Data {
	d := hierarchy.NewData()
	d.Set("name", name)
	d.Set(idKey, id)
	d.Set("created_at", createdAt)
	return d
}

// ensureChainRecords walks the chain root-first, creating any missing
// context row with its entity seed, and returns the rows in chain order.
func (e *Engine) ensureChainRecords(level hierarchy.Level, ownerID string) ([]*store.ContextRecord, error) {
	links, err := e.ownerChain(level, ownerID)
	if err != nil {
		return nil, err
	}
	records := make([]*store.ContextRecord, 0, len(links))
	parentID := ""
	for _, link := range links {
		rec, err := e.ensureLink(link, parentID)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		parentID = rec.ID
	}
	return records, nil
}

// ensureLink returns the context row for one link, creating it with the
// seed payload if missing. A create that loses a provisioning race falls
// back to reading the winner's row.
func (e *Engine) ensureLink(link chainLink, parentContextID string) (*store.ContextRecord, error) {
	rec, err := e.store.GetContext(link.level, link.ownerID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	ts := now()
	rec, err = e.store.CreateContext(store.ContextRecord{
		ID:        newID(),
		Level:     link.level,
		OwnerID:   link.ownerID,
		ParentID:  parentContextID,
		Data:      link.seed,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	if err == nil {
		e.log.Debug("provisioned context", "level", link.level, "owner_id", link.ownerID)
		e.cache.InvalidateAtOrBelow(link.level)
		return rec, nil
	}
	if errors.Is(err, store.ErrAlreadyExists) {
		return e.store.GetContext(link.level, link.ownerID)
	}
	return nil, err
}
