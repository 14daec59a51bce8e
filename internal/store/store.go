// Package store persists the task hierarchy in SQLite: workspace entities
// (projects, branches, tasks, subtasks), context payloads with optimistic
// versioning, the delegation queue, and the task transition log.
//
// All timestamps are RFC3339 UTC strings written by the store itself, so
// tests can freeze the clock through the timeNow variable. Multi-row
// use cases (transitions, completion, deletion cascades) each run in a
// single transaction behind one exported method; callers never see a
// half-applied write.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Errors ──────────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a create hits a uniqueness rule.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict is returned when a guarded write loses a race: the row
	// changed between the caller's read and its conditional update.
	ErrConflict = errors.New("conflict")
)

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed persistence layer.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// execer lets transaction code take either *sql.DB or *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Open creates the data directory if needed, opens SQLite with WAL mode,
// and brings the schema up to date.
func Open(dataDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "stratum.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, log: logger}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	logger.Debug("store ready", "path", dbPath)

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

// migrations are applied in order; PRAGMA user_version tracks the last
// applied index, so existing databases gain new steps without data loss.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS branches (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (project_id, name),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id                 TEXT PRIMARY KEY,
		branch_id          TEXT NOT NULL,
		title              TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'todo',
		priority           TEXT NOT NULL DEFAULT 'medium',
		assignees          TEXT NOT NULL DEFAULT '[]',
		labels             TEXT NOT NULL DEFAULT '[]',
		dependencies       TEXT NOT NULL DEFAULT '[]',
		context_id         TEXT,
		completion_summary TEXT NOT NULL DEFAULT '',
		testing_notes      TEXT NOT NULL DEFAULT '',
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL,
		FOREIGN KEY (branch_id) REFERENCES branches(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_branch ON tasks(branch_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	CREATE TABLE IF NOT EXISTS subtasks (
		id         TEXT PRIMARY KEY,
		task_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'todo',
		progress   INTEGER NOT NULL DEFAULT 0,
		assignees  TEXT NOT NULL DEFAULT '[]',
		position   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_subtasks_task ON subtasks(task_id, position);

	CREATE TABLE IF NOT EXISTS contexts (
		id         TEXT PRIMARY KEY,
		level      TEXT NOT NULL,
		owner_id   TEXT NOT NULL,
		parent_id  TEXT,
		data       TEXT NOT NULL DEFAULT '{}',
		version    INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (level, owner_id)
	);

	CREATE INDEX IF NOT EXISTS idx_contexts_owner ON contexts(owner_id);

	CREATE TABLE IF NOT EXISTS delegations (
		id           TEXT PRIMARY KEY,
		source_level TEXT NOT NULL,
		source_id    TEXT NOT NULL,
		target_level TEXT NOT NULL,
		target_id    TEXT NOT NULL,
		payload      TEXT NOT NULL DEFAULT '{}',
		reason       TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'pending',
		resolution   TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL,
		resolved_at  TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_delegations_status ON delegations(status);
	CREATE INDEX IF NOT EXISTS idx_delegations_target ON delegations(target_level, target_id);

	CREATE TABLE IF NOT EXISTS task_events (
		event_id    INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     TEXT NOT NULL,
		event       TEXT NOT NULL,
		from_status TEXT NOT NULL DEFAULT '',
		to_status   TEXT NOT NULL,
		note        TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_events_task ON task_events(task_id, event_id);
	`,
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: begin tx: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: set user_version: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", i+1, err)
		}
		s.log.Info("applied migration", "version", i+1)
	}

	return nil
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats holds aggregate counts over the whole store.
type Stats struct {
	Projects            int            `json:"projects"`
	Branches            int            `json:"branches"`
	Tasks               int            `json:"tasks"`
	Subtasks            int            `json:"subtasks"`
	Contexts            int            `json:"contexts"`
	TasksByStatus       map[string]int `json:"tasks_by_status"`
	ContextsByLevel     map[string]int `json:"contexts_by_level"`
	DelegationsByStatus map[string]int `json:"delegations_by_status"`
}

// Stats returns aggregate statistics across entities, contexts, and the
// delegation queue.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{
		TasksByStatus:       map[string]int{},
		ContextsByLevel:     map[string]int{},
		DelegationsByStatus: map[string]int{},
	}

	_ = s.db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&stats.Projects)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM branches").Scan(&stats.Branches)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&stats.Tasks)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM subtasks").Scan(&stats.Subtasks)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM contexts").Scan(&stats.Contexts)

	groups := []struct {
		query string
		into  map[string]int
	}{
		{"SELECT status, COUNT(*) FROM tasks GROUP BY status", stats.TasksByStatus},
		{"SELECT level, COUNT(*) FROM contexts GROUP BY level", stats.ContextsByLevel},
		{"SELECT status, COUNT(*) FROM delegations GROUP BY status", stats.DelegationsByStatus},
	}
	for _, g := range groups {
		rows, err := s.db.Query(g.query)
		if err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("stats: %w", err)
			}
			g.into[key] = n
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("stats: %w", err)
		}
		_ = rows.Close()
	}

	return stats, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// encodeStringList serializes a string slice for a TEXT column.
// Nil and empty slices both encode as the empty JSON array.
func encodeStringList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	raw, _ := json.Marshal(items)
	return string(raw)
}

// decodeStringList parses a TEXT column back into a slice. Empty values
// decode as nil so callers can treat "no assignees" uniformly.
func decodeStringList(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation checks if an error is a SQLite FK constraint violation.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
