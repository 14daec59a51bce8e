package cache

import (
	"testing"
	"time"

	"stratum/internal/hierarchy"
)

func TestGetThenPut(t *testing.T) {
	c := New[string](8, time.Minute)

	if _, ok := c.Get(hierarchy.LevelTask, "t1"); ok {
		t.Fatal("Get on empty cache reported a hit")
	}
	c.Put(hierarchy.LevelTask, "t1", c.Generation(), "resolved")
	got, ok := c.Get(hierarchy.LevelTask, "t1")
	if !ok || got != "resolved" {
		t.Fatalf("Get = %q, %v; want resolved, true", got, ok)
	}

	stats := c.Snapshot()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Snapshot = %+v, want 1 hit, 1 miss, 1 entry", stats)
	}
}

func TestPut_ReplacesExisting(t *testing.T) {
	c := New[string](8, time.Minute)
	c.Put(hierarchy.LevelProject, "p1", c.Generation(), "old")
	c.Put(hierarchy.LevelProject, "p1", c.Generation(), "new")

	got, ok := c.Get(hierarchy.LevelProject, "p1")
	if !ok || got != "new" {
		t.Errorf("Get = %q, %v; want new, true", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestKeysAreLevelScoped(t *testing.T) {
	c := New[string](8, time.Minute)
	c.Put(hierarchy.LevelProject, "alpha", c.Generation(), "project-data")
	c.Put(hierarchy.LevelBranch, "alpha", c.Generation(), "branch-data")

	got, ok := c.Get(hierarchy.LevelBranch, "alpha")
	if !ok || got != "branch-data" {
		t.Errorf("branch entry = %q, %v; want branch-data, true", got, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2 (same owner id at two levels)", c.Len())
	}
}

func TestTTL_Expires(t *testing.T) {
	c := New[string](8, 25*time.Millisecond)
	c.Put(hierarchy.LevelGlobal, hierarchy.GlobalOwnerID, c.Generation(), "v")

	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get(hierarchy.LevelGlobal, hierarchy.GlobalOwnerID); ok {
		t.Error("entry survived past its TTL")
	}
}

func TestNew_CapsEntries(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Put(hierarchy.LevelTask, "t1", c.Generation(), 1)
	c.Put(hierarchy.LevelTask, "t2", c.Generation(), 2)
	c.Put(hierarchy.LevelTask, "t3", c.Generation(), 3)

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get(hierarchy.LevelTask, "t3"); !ok {
		t.Error("newest entry missing after size eviction")
	}
}

func TestInvalidate_SingleEntry(t *testing.T) {
	c := New[string](8, time.Minute)
	c.Put(hierarchy.LevelTask, "t1", c.Generation(), "a")
	c.Put(hierarchy.LevelTask, "t2", c.Generation(), "b")

	c.Invalidate(hierarchy.LevelTask, "t1")

	if _, ok := c.Get(hierarchy.LevelTask, "t1"); ok {
		t.Error("t1 still cached after Invalidate")
	}
	if _, ok := c.Get(hierarchy.LevelTask, "t2"); !ok {
		t.Error("t2 evicted by an unrelated Invalidate")
	}
}

func TestPut_StaleGenerationIsDiscarded(t *testing.T) {
	c := New[string](8, time.Minute)

	// A resolver snapshots the generation, then a write invalidates
	// while the resolver's store read is still in flight.
	gen := c.Generation()
	c.InvalidateAtOrBelow(hierarchy.LevelProject)

	if c.Put(hierarchy.LevelTask, "t1", gen, "stale") {
		t.Error("Put accepted a value snapshotted before an invalidation")
	}
	if _, ok := c.Get(hierarchy.LevelTask, "t1"); ok {
		t.Error("stale value landed in the cache after an invalidation")
	}

	if !c.Put(hierarchy.LevelTask, "t1", c.Generation(), "fresh") {
		t.Error("Put rejected a value with a current generation")
	}
	if got, ok := c.Get(hierarchy.LevelTask, "t1"); !ok || got != "fresh" {
		t.Errorf("Get after fresh Put = %q, %v, want \"fresh\", true", got, ok)
	}
}

func TestInvalidateAtOrBelow(t *testing.T) {
	seed := func() *Cache[string] {
		c := New[string](16, time.Minute)
		c.Put(hierarchy.LevelGlobal, hierarchy.GlobalOwnerID, c.Generation(), "g")
		c.Put(hierarchy.LevelProject, "p1", c.Generation(), "p")
		c.Put(hierarchy.LevelProject, "p2", c.Generation(), "p")
		c.Put(hierarchy.LevelBranch, "b1", c.Generation(), "b")
		c.Put(hierarchy.LevelTask, "t1", c.Generation(), "t")
		return c
	}

	tests := []struct {
		name      string
		writeAt   hierarchy.Level
		surviving []Key
		evicted   []Key
	}{
		{
			name:      "project write evicts every project and deeper entry",
			writeAt:   hierarchy.LevelProject,
			surviving: []Key{{hierarchy.LevelGlobal, hierarchy.GlobalOwnerID}},
			evicted: []Key{
				{hierarchy.LevelProject, "p1"},
				// p2 goes too: eviction is by level, not ancestry.
				{hierarchy.LevelProject, "p2"},
				{hierarchy.LevelBranch, "b1"},
				{hierarchy.LevelTask, "t1"},
			},
		},
		{
			name:    "task write leaves the upper levels alone",
			writeAt: hierarchy.LevelTask,
			surviving: []Key{
				{hierarchy.LevelGlobal, hierarchy.GlobalOwnerID},
				{hierarchy.LevelProject, "p1"},
				{hierarchy.LevelProject, "p2"},
				{hierarchy.LevelBranch, "b1"},
			},
			evicted: []Key{{hierarchy.LevelTask, "t1"}},
		},
		{
			name:    "global write empties the cache",
			writeAt: hierarchy.LevelGlobal,
			evicted: []Key{
				{hierarchy.LevelGlobal, hierarchy.GlobalOwnerID},
				{hierarchy.LevelProject, "p1"},
				{hierarchy.LevelProject, "p2"},
				{hierarchy.LevelBranch, "b1"},
				{hierarchy.LevelTask, "t1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := seed()
			c.InvalidateAtOrBelow(tt.writeAt)
			for _, k := range tt.surviving {
				if _, ok := c.Get(k.Level, k.OwnerID); !ok {
					t.Errorf("entry %v evicted, want kept", k)
				}
			}
			for _, k := range tt.evicted {
				if _, ok := c.Get(k.Level, k.OwnerID); ok {
					t.Errorf("entry %v kept, want evicted", k)
				}
			}
		})
	}
}

func TestPurge_ResetsStats(t *testing.T) {
	c := New[string](8, time.Minute)
	c.Put(hierarchy.LevelTask, "t1", c.Generation(), "a")
	c.Get(hierarchy.LevelTask, "t1")
	c.Get(hierarchy.LevelTask, "missing")

	c.Purge()

	stats := c.Snapshot()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Entries != 0 {
		t.Errorf("Snapshot after Purge = %+v, want zeros", stats)
	}
}
