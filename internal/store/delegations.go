package store

import (
	"database/sql"
	"fmt"

	"stratum/internal/hierarchy"
)

// ─── Delegation status enum ──────────────────────────────────────────────────

// DelegationStatus tracks a queued upward context change.
type DelegationStatus string

const (
	DelegationPending  DelegationStatus = "pending"
	DelegationApproved DelegationStatus = "approved"
	DelegationRejected DelegationStatus = "rejected"
)

// validDelegationStatuses is the set of allowed delegation statuses.
var validDelegationStatuses = map[DelegationStatus]bool{
	DelegationPending:  true,
	DelegationApproved: true,
	DelegationRejected: true,
}

// ValidateDelegationStatus returns an error if the status is not recognized.
func ValidateDelegationStatus(s DelegationStatus) error {
	if !validDelegationStatuses[s] {
		return fmt.Errorf("invalid delegation status %q: must be one of: pending, approved, rejected", s)
	}
	return nil
}

// ─── Delegations ─────────────────────────────────────────────────────────────

// Delegation is a proposed change to an ancestor context, queued until a
// reviewer (or the auto-approval whitelist) resolves it. The payload is
// only merged into the target context on approval.
type Delegation struct {
	ID          string           `json:"id"`
	SourceLevel hierarchy.Level  `json:"source_level"`
	SourceID    string           `json:"source_id"`
	TargetLevel hierarchy.Level  `json:"target_level"`
	TargetID    string           `json:"target_id"`
	Payload     hierarchy.Data   `json:"payload"`
	Reason      string           `json:"reason,omitempty"`
	Status      DelegationStatus `json:"status"`
	Resolution  string           `json:"resolution,omitempty"`
	CreatedAt   string           `json:"created_at"`
	ResolvedAt  *string          `json:"resolved_at,omitempty"`
}

const delegationColumns = `id, source_level, source_id, target_level, target_id,
	payload, reason, status, resolution, created_at, resolved_at`

func scanDelegation(row interface{ Scan(dest ...any) error }) (*Delegation, error) {
	var d Delegation
	var sourceLevel, targetLevel, status, payload string
	if err := row.Scan(
		&d.ID, &sourceLevel, &d.SourceID, &targetLevel, &d.TargetID,
		&payload, &d.Reason, &status, &d.Resolution, &d.CreatedAt, &d.ResolvedAt,
	); err != nil {
		return nil, err
	}
	d.SourceLevel = hierarchy.Level(sourceLevel)
	d.TargetLevel = hierarchy.Level(targetLevel)
	d.Status = DelegationStatus(status)
	data, err := hierarchy.ParseData([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("delegation %s: %w", d.ID, err)
	}
	d.Payload = data
	return &d, nil
}

// CreateDelegation queues a delegation in pending state.
func (s *Store) CreateDelegation(d Delegation) (*Delegation, error) {
	raw, err := hierarchy.EncodeData(d.Payload)
	if err != nil {
		return nil, fmt.Errorf("create delegation: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO delegations (id, source_level, source_id, target_level, target_id,
		                          payload, reason, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.SourceLevel), d.SourceID, string(d.TargetLevel), d.TargetID,
		string(raw), d.Reason, string(DelegationPending), d.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: delegation %q", ErrAlreadyExists, d.ID)
		}
		return nil, fmt.Errorf("create delegation: %w", err)
	}
	return s.GetDelegation(d.ID)
}

// GetDelegation retrieves a delegation by id.
func (s *Store) GetDelegation(id string) (*Delegation, error) {
	row := s.db.QueryRow(`SELECT `+delegationColumns+` FROM delegations WHERE id = ?`, id)
	d, err := scanDelegation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: delegation %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get delegation: %w", err)
	}
	return d, nil
}

// ListDelegations returns delegations, optionally filtered by status,
// oldest first so queues read top-down.
func (s *Store) ListDelegations(status DelegationStatus) ([]Delegation, error) {
	query := `SELECT ` + delegationColumns + ` FROM delegations`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list delegations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Delegation
	for rows.Next() {
		d, err := scanDelegation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *d)
	}
	return results, rows.Err()
}

// ApproveDelegationParams carries the approval write: the merged target
// payload plus the context version it was computed from.
type ApproveDelegationParams struct {
	ID             string
	TargetLevel    hierarchy.Level
	TargetOwnerID  string
	ContextVersion int64
	MergedData     hierarchy.Data
	Resolution     string
}

// ApproveDelegation marks a pending delegation approved and merges its
// payload into the target context, in one transaction. Both writes are
// guarded: a resolved delegation or a moved context version rolls the
// whole approval back with ErrConflict.
func (s *Store) ApproveDelegation(p ApproveDelegationParams) (*Delegation, error) {
	raw, err := hierarchy.EncodeData(p.MergedData)
	if err != nil {
		return nil, fmt.Errorf("approve delegation: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("approve delegation: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := Now()
	res, err := tx.Exec(
		`UPDATE delegations SET status = ?, resolution = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(DelegationApproved), p.Resolution, now, p.ID, string(DelegationPending),
	)
	if err != nil {
		return nil, fmt.Errorf("approve delegation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.explainDelegationWriteMiss(tx, p.ID)
	}

	res, err = tx.Exec(
		`UPDATE contexts SET data = ?, version = version + 1, updated_at = ?
		 WHERE level = ? AND owner_id = ? AND version = ?`,
		string(raw), now, string(p.TargetLevel), p.TargetOwnerID, p.ContextVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("approve delegation: context write: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: context %s/%s changed since version %d",
			ErrConflict, p.TargetLevel, p.TargetOwnerID, p.ContextVersion)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("approve delegation: commit: %w", err)
	}
	return s.GetDelegation(p.ID)
}

// RejectDelegation marks a pending delegation rejected. The target context
// is never touched.
func (s *Store) RejectDelegation(id, reason string) (*Delegation, error) {
	res, err := s.db.Exec(
		`UPDATE delegations SET status = ?, resolution = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(DelegationRejected), reason, Now(), id, string(DelegationPending),
	)
	if err != nil {
		return nil, fmt.Errorf("reject delegation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.explainDelegationWriteMiss(s.db, id)
	}
	return s.GetDelegation(id)
}

type rowQueryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

// explainDelegationWriteMiss turns a zero-row guarded update into the
// right error: the delegation is gone, or it was already resolved.
func (s *Store) explainDelegationWriteMiss(q rowQueryer, id string) error {
	var status string
	err := q.QueryRow(`SELECT status FROM delegations WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: delegation %q", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("explain write miss: %w", err)
	}
	return fmt.Errorf("%w: delegation %q already %s", ErrConflict, id, status)
}
