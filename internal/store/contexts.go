package store

import (
	"database/sql"
	"fmt"

	"stratum/internal/hierarchy"
)

// ─── Contexts ────────────────────────────────────────────────────────────────

// ContextRecord is one level's own (non-inherited) context. The version
// column increments on every data write and guards optimistic updates;
// payload key order is preserved through storage.
type ContextRecord struct {
	ID        string          `json:"id"`
	Level     hierarchy.Level `json:"level"`
	OwnerID   string          `json:"owner_id"`
	ParentID  string          `json:"parent_id,omitempty"`
	Data      hierarchy.Data  `json:"data"`
	Version   int64           `json:"version"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

const contextColumns = `id, level, owner_id, COALESCE(parent_id, ''), data, version, created_at, updated_at`

func scanContext(row interface{ Scan(dest ...any) error }) (*ContextRecord, error) {
	var rec ContextRecord
	var level, raw string
	if err := row.Scan(
		&rec.ID, &level, &rec.OwnerID, &rec.ParentID, &raw,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Level = hierarchy.Level(level)
	data, err := hierarchy.ParseData([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("context %s/%s: %w", level, rec.OwnerID, err)
	}
	rec.Data = data
	return &rec, nil
}

// CreateContext inserts a context row at version 1. Each (level, owner)
// pair holds at most one context.
func (s *Store) CreateContext(rec ContextRecord) (*ContextRecord, error) {
	raw, err := hierarchy.EncodeData(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO contexts (id, level, owner_id, parent_id, data, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		rec.ID, string(rec.Level), rec.OwnerID, nullableString(rec.ParentID),
		string(raw), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: context %s/%s", ErrAlreadyExists, rec.Level, rec.OwnerID)
		}
		return nil, fmt.Errorf("create context: %w", err)
	}
	return s.GetContext(rec.Level, rec.OwnerID)
}

// GetContextByID retrieves a context row by its own id, regardless of
// level. Used to check that a caller-supplied parent id names a real row.
func (s *Store) GetContextByID(id string) (*ContextRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+contextColumns+` FROM contexts WHERE id = ?`, id,
	)
	rec, err := scanContext(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: context row %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get context: %w", err)
	}
	return rec, nil
}

// GetContext retrieves the context owned by (level, ownerID).
func (s *Store) GetContext(level hierarchy.Level, ownerID string) (*ContextRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+contextColumns+` FROM contexts WHERE level = ? AND owner_id = ?`,
		string(level), ownerID,
	)
	rec, err := scanContext(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: context %s/%s", ErrNotFound, level, ownerID)
		}
		return nil, fmt.Errorf("get context: %w", err)
	}
	return rec, nil
}

// UpdateContextData replaces a context's payload, guarded by the version
// the caller read. A zero-row update means another writer got there first
// (ErrConflict) or the row is gone (ErrNotFound); either way nothing is
// written.
func (s *Store) UpdateContextData(level hierarchy.Level, ownerID string, expectedVersion int64, data hierarchy.Data) (*ContextRecord, error) {
	raw, err := hierarchy.EncodeData(data)
	if err != nil {
		return nil, fmt.Errorf("update context: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE contexts SET data = ?, version = version + 1, updated_at = ?
		 WHERE level = ? AND owner_id = ? AND version = ?`,
		string(raw), Now(), string(level), ownerID, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update context: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var current int64
		err := s.db.QueryRow(
			`SELECT version FROM contexts WHERE level = ? AND owner_id = ?`,
			string(level), ownerID,
		).Scan(&current)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: context %s/%s", ErrNotFound, level, ownerID)
		}
		if err != nil {
			return nil, fmt.Errorf("update context: %w", err)
		}
		return nil, fmt.Errorf("%w: context %s/%s is at version %d, expected %d",
			ErrConflict, level, ownerID, current, expectedVersion)
	}
	return s.GetContext(level, ownerID)
}

// ListContexts returns the context rows at one level, or every row when
// level is empty. Payloads are included; callers filtering for existence
// should prefer Stats.
func (s *Store) ListContexts(level hierarchy.Level) ([]ContextRecord, error) {
	query := `SELECT ` + contextColumns + ` FROM contexts`
	args := []any{}
	if level != "" {
		query += " WHERE level = ?"
		args = append(args, string(level))
	}
	query += " ORDER BY created_at ASC, owner_id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []ContextRecord
	for rows.Next() {
		rec, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *rec)
	}
	return results, rows.Err()
}
