// Package engine implements the operations behind the tool surface:
// context resolution with inheritance, auto-provisioning of missing context
// chains, the delegation queue, and the task lifecycle with its completion
// gate.
//
// The engine owns the resolved-context cache and is its only writer. Store
// writes are guarded by optimistic version checks; read-modify-write
// operations absorb a bounded number of conflict retries before surfacing
// ErrConflict, so callers only see conflicts their own stale reads caused.
package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stratum/internal/cache"
	"stratum/internal/config"
	"stratum/internal/store"
)

// ─── Errors ──────────────────────────────────────────────────────────────────

var (
	// ErrValidationFailed is returned when an operation's preconditions do
	// not hold: bad arguments, open subtasks at completion, a missing
	// summary. The call changes nothing and retrying unchanged cannot help.
	ErrValidationFailed = errors.New("validation failed")

	// ErrDelegationLevel is returned when a delegation does not point
	// strictly upward in the hierarchy.
	ErrDelegationLevel = errors.New("invalid delegation target")
)

// ─── Engine ──────────────────────────────────────────────────────────────────

// Package-level variables for test injection.
var (
	newID   = uuid.NewString
	timeNow = time.Now
)

// now returns the current time as an RFC3339 UTC string, the same format
// the store stamps on rows.
func now() string {
	return timeNow().UTC().Format(time.RFC3339)
}

// conflictRetries bounds how often a read-modify-write operation re-reads
// and retries after losing an optimistic-version race.
const conflictRetries = 3

// Engine wires the store, the resolved-context cache, and the configured
// delegation policy into the operations the tool layer exposes.
type Engine struct {
	store *store.Store
	cache *cache.Cache[*ResolvedContext]
	cfg   config.Config
	log   *slog.Logger
}

// New builds an Engine on top of an open store. The cache dimensions and
// the delegation auto-approval policy come from cfg.
func New(s *store.Store, cfg config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store: s,
		cache: cache.New[*ResolvedContext](cfg.Cache.MaxEntries, cfg.Cache.TTL()),
		cfg:   cfg,
		log:   logger,
	}
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats pairs the store's aggregate counts with the resolution cache's
// counters. Cache numbers are process-local and reset on restart.
type Stats struct {
	Store *store.Stats `json:"store"`
	Cache cache.Stats  `json:"cache"`
}

// Stats reports current statistics for the status resource.
func (e *Engine) Stats() (*Stats, error) {
	st, err := e.store.Stats()
	if err != nil {
		return nil, err
	}
	return &Stats{Store: st, Cache: e.cache.Snapshot()}, nil
}
