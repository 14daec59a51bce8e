package engine_test

import (
	"errors"
	"testing"

	"stratum/internal/engine"
	"stratum/internal/hierarchy"
	"stratum/internal/lifecycle"
	"stratum/internal/store"
)

// seedBareEntities inserts a project, branch, and task directly into the
// store, bypassing the engine so no context rows exist yet.
func seedBareEntities(t *testing.T, s *store.Store) (projectID, branchID, taskID string) {
	t.Helper()
	now := store.Now()
	if err := s.CreateProject(store.Project{ID: "p1", Name: "atlas", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	if err := s.CreateBranch(store.Branch{ID: "b1", ProjectID: "p1", Name: "main", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	err := s.CreateTask(store.Task{
		ID: "t1", BranchID: "b1", Title: "wire the importer",
		Status: lifecycle.StatusTodo, Priority: "medium",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return "p1", "b1", "t1"
}

func TestResolve_ProvisionsMissingChain(t *testing.T) {
	e, s := newTestEngine(t)
	projectID, branchID, taskID := seedBareEntities(t, s)

	rc, err := e.Resolve(hierarchy.LevelTask, taskID, engine.ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if rc.Level != hierarchy.LevelTask || rc.OwnerID != taskID {
		t.Errorf("resolved %s/%s, want task/%s", rc.Level, rc.OwnerID, taskID)
	}
	if len(rc.Sources) != 4 {
		t.Fatalf("len(Sources) = %d, want 4", len(rc.Sources))
	}
	wantLevels := []hierarchy.Level{
		hierarchy.LevelGlobal, hierarchy.LevelProject, hierarchy.LevelBranch, hierarchy.LevelTask,
	}
	for i, src := range rc.Sources {
		if src.Level != wantLevels[i] {
			t.Errorf("Sources[%d].Level = %s, want %s", i, src.Level, wantLevels[i])
		}
		if src.Version != 1 {
			t.Errorf("Sources[%d].Version = %d, want 1", i, src.Version)
		}
	}

	if got := pathString(t, rc.Data, "name"); got != "wire the importer" {
		t.Errorf("name = %q, want the task title to win the merge", got)
	}
	if got := pathString(t, rc.Data, "project_id"); got != projectID {
		t.Errorf("project_id = %q, want %q", got, projectID)
	}
	if got := pathString(t, rc.Data, "branch_id"); got != branchID {
		t.Errorf("branch_id = %q, want %q", got, branchID)
	}
	if got := pathString(t, rc.Data, "task_id"); got != taskID {
		t.Errorf("task_id = %q, want %q", got, taskID)
	}

	// Every link of the chain was written, parent ids threaded root-first.
	global, err := s.GetContext(hierarchy.LevelGlobal, hierarchy.GlobalOwnerID)
	if err != nil {
		t.Fatalf("global context not provisioned: %v", err)
	}
	proj, err := s.GetContext(hierarchy.LevelProject, projectID)
	if err != nil {
		t.Fatalf("project context not provisioned: %v", err)
	}
	branch, err := s.GetContext(hierarchy.LevelBranch, branchID)
	if err != nil {
		t.Fatalf("branch context not provisioned: %v", err)
	}
	task, err := s.GetContext(hierarchy.LevelTask, taskID)
	if err != nil {
		t.Fatalf("task context not provisioned: %v", err)
	}
	if global.ParentID != "" {
		t.Errorf("global ParentID = %q, want empty", global.ParentID)
	}
	if proj.ParentID != global.ID || branch.ParentID != proj.ID || task.ParentID != branch.ID {
		t.Errorf("parent chain broken: %q->%q, %q->%q, %q->%q",
			proj.ParentID, global.ID, branch.ParentID, proj.ID, task.ParentID, branch.ID)
	}
}

func TestResolve_DeeperLevelsOverrideInherited(t *testing.T) {
	e, _ := newTestEngine(t)
	projectID, _, taskID := seedWorkspace(t, e)

	writes := []engine.UpdateContextParams{
		{Level: hierarchy.LevelGlobal, Path: "a", Value: 1},
		{Level: hierarchy.LevelProject, OwnerID: projectID, Path: "b", Value: 2},
		{Level: hierarchy.LevelTask, OwnerID: taskID, Path: "a", Value: 3},
	}
	for _, p := range writes {
		if _, err := e.UpdateContext(p); err != nil {
			t.Fatalf("UpdateContext(%s, %q) error: %v", p.Level, p.Path, err)
		}
	}

	rc, err := e.Resolve(hierarchy.LevelTask, taskID, engine.ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got := pathNumber(t, rc.Data, "a"); got != 3 {
		t.Errorf("a = %v, want 3 (task write shadows global)", got)
	}
	if got := pathNumber(t, rc.Data, "b"); got != 2 {
		t.Errorf("b = %v, want 2 inherited from project", got)
	}
}

func TestResolve_OwnOnlySkipsInheritanceAndCache(t *testing.T) {
	e, _ := newTestEngine(t)
	_, _, taskID := seedWorkspace(t, e)
	if _, err := e.UpdateContext(engine.UpdateContextParams{
		Level: hierarchy.LevelGlobal, Path: "style", Value: "tabs",
	}); err != nil {
		t.Fatalf("UpdateContext() error: %v", err)
	}

	rc, err := e.Resolve(hierarchy.LevelTask, taskID, engine.ResolveOptions{OwnOnly: true})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if _, ok := hierarchy.GetPath(rc.Data, "style"); ok {
		t.Error("own-only view leaked an inherited key")
	}
	if got := pathString(t, rc.Data, "name"); got != "wire the importer" {
		t.Errorf("name = %q, want the task's own seed", got)
	}
	if len(rc.Sources) != 1 || rc.Sources[0].Level != hierarchy.LevelTask {
		t.Errorf("Sources = %+v, want the single task source", rc.Sources)
	}

	st, err := e.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Cache.Entries != 0 {
		t.Errorf("cache entries = %d, own-only reads must not populate the cache", st.Cache.Entries)
	}
}

func TestResolve_SecondReadHitsCache(t *testing.T) {
	e, _ := newTestEngine(t)
	_, branchID, _ := seedWorkspace(t, e)

	for i := 0; i < 2; i++ {
		if _, err := e.Resolve(hierarchy.LevelBranch, branchID, engine.ResolveOptions{}); err != nil {
			t.Fatalf("Resolve() #%d error: %v", i+1, err)
		}
	}
	st, err := e.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Cache.Hits != 1 || st.Cache.Misses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 1/1", st.Cache.Hits, st.Cache.Misses)
	}
}

func TestResolve_WriteEvictsLevelAndBelow(t *testing.T) {
	e, _ := newTestEngine(t)
	projectID, branchID, _ := seedWorkspace(t, e)

	if _, err := e.Resolve(hierarchy.LevelGlobal, "", engine.ResolveOptions{}); err != nil {
		t.Fatalf("Resolve(global) error: %v", err)
	}
	if _, err := e.Resolve(hierarchy.LevelBranch, branchID, engine.ResolveOptions{}); err != nil {
		t.Fatalf("Resolve(branch) error: %v", err)
	}

	if _, err := e.UpdateContext(engine.UpdateContextParams{
		Level: hierarchy.LevelProject, OwnerID: projectID, Path: "policy", Value: "strict",
	}); err != nil {
		t.Fatalf("UpdateContext() error: %v", err)
	}

	// The global entry is above the write and survives.
	if _, err := e.Resolve(hierarchy.LevelGlobal, "", engine.ResolveOptions{}); err != nil {
		t.Fatalf("Resolve(global) after write error: %v", err)
	}
	// The branch entry inherits from the project and was evicted, so the
	// re-read sees the new value instead of a stale snapshot.
	rc, err := e.Resolve(hierarchy.LevelBranch, branchID, engine.ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve(branch) after write error: %v", err)
	}
	if got := pathString(t, rc.Data, "policy"); got != "strict" {
		t.Errorf("policy = %q, want the fresh project write", got)
	}

	st, err := e.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Cache.Hits != 1 || st.Cache.Misses != 3 {
		t.Errorf("cache hits/misses = %d/%d, want 1/3", st.Cache.Hits, st.Cache.Misses)
	}
}

func TestResolve_ForceRefreshBypassesCache(t *testing.T) {
	e, _ := newTestEngine(t)
	_, branchID, _ := seedWorkspace(t, e)

	if _, err := e.Resolve(hierarchy.LevelBranch, branchID, engine.ResolveOptions{}); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if _, err := e.Resolve(hierarchy.LevelBranch, branchID, engine.ResolveOptions{ForceRefresh: true}); err != nil {
		t.Fatalf("Resolve(force) error: %v", err)
	}
	if _, err := e.Resolve(hierarchy.LevelBranch, branchID, engine.ResolveOptions{}); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	st, err := e.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	// The forced pass never consults the cache, so only the first and last
	// reads count: one miss, then one hit against the refreshed entry.
	if st.Cache.Hits != 1 || st.Cache.Misses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 1/1", st.Cache.Hits, st.Cache.Misses)
	}
}

func TestResolve_MissingEntity(t *testing.T) {
	e, _ := newTestEngine(t)
	seedWorkspace(t, e)

	for _, level := range []hierarchy.Level{hierarchy.LevelProject, hierarchy.LevelBranch, hierarchy.LevelTask} {
		if _, err := e.Resolve(level, "ghost", engine.ResolveOptions{}); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Resolve(%s, ghost) error = %v, want ErrNotFound", level, err)
		}
	}
}

func TestResolve_OwnerValidation(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.Resolve("galaxy", "x", engine.ResolveOptions{}); !errors.Is(err, engine.ErrValidationFailed) {
		t.Errorf("unknown level error = %v, want ErrValidationFailed", err)
	}
	if _, err := e.Resolve(hierarchy.LevelProject, "", engine.ResolveOptions{}); !errors.Is(err, engine.ErrValidationFailed) {
		t.Errorf("empty project owner error = %v, want ErrValidationFailed", err)
	}
	if _, err := e.Resolve(hierarchy.LevelGlobal, "something-else", engine.ResolveOptions{}); !errors.Is(err, engine.ErrValidationFailed) {
		t.Errorf("non-global owner at global level error = %v, want ErrValidationFailed", err)
	}

	// The global owner id may be left empty and is filled in.
	rc, err := e.Resolve(hierarchy.LevelGlobal, "", engine.ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve(global) error: %v", err)
	}
	if rc.OwnerID != hierarchy.GlobalOwnerID {
		t.Errorf("OwnerID = %q, want %q", rc.OwnerID, hierarchy.GlobalOwnerID)
	}
}

func TestEnsureChain_Idempotent(t *testing.T) {
	e, s := newTestEngine(t)
	_, _, taskID := seedBareEntities(t, s)

	first, err := e.EnsureChain(hierarchy.LevelTask, taskID)
	if err != nil {
		t.Fatalf("EnsureChain() error: %v", err)
	}
	before, err := s.ListContexts("")
	if err != nil {
		t.Fatalf("ListContexts() error: %v", err)
	}
	if len(before) != 4 {
		t.Fatalf("len(contexts) = %d after first ensure, want 4", len(before))
	}

	second, err := e.EnsureChain(hierarchy.LevelTask, taskID)
	if err != nil {
		t.Fatalf("EnsureChain() again error: %v", err)
	}
	after, err := s.ListContexts("")
	if err != nil {
		t.Fatalf("ListContexts() error: %v", err)
	}
	if len(after) != 4 {
		t.Fatalf("len(contexts) = %d after second ensure, want 4", len(after))
	}
	for i := range after {
		if after[i].ID != before[i].ID || after[i].Version != before[i].Version {
			t.Errorf("context %s/%s changed across ensures: %+v vs %+v",
				after[i].Level, after[i].OwnerID, after[i], before[i])
		}
	}
	if encodeData(t, first.Data) != encodeData(t, second.Data) {
		t.Errorf("resolved data drifted between ensures:\n%s\n%s",
			encodeData(t, first.Data), encodeData(t, second.Data))
	}
}
