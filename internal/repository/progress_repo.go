package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coinzy/internal/database"
	"coinzy/internal/models"
)

// ErrVersionConflict is returned when a snapshot changed since it was read
var ErrVersionConflict = errors.New("progress snapshot version conflict")

// ProgressRepository stores one progress document per family
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetSnapshot retrieves a family's snapshot, or nil when the family has none yet
func (r *ProgressRepository) GetSnapshot(ctx context.Context, familyID string) (*models.ProgressSnapshot, error) {
	query := "SELECT family_id, document, version, updated_at FROM progress_snapshots WHERE family_id = ?"
	snap := &models.ProgressSnapshot{}
	err := r.db.QueryRowContext(ctx, query, familyID).Scan(
		&snap.FamilyID,
		&snap.Document,
		&snap.Version,
		&snap.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress snapshot: %w", err)
	}

	return snap, nil
}

// SaveSnapshot writes a document with optimistic locking. expectedVersion is the version
// that was read (0 for a family without a snapshot); the stored version becomes
// expectedVersion+1, which is returned.
func (r *ProgressRepository) SaveSnapshot(ctx context.Context, familyID string, document []byte, expectedVersion int64) (int64, error) {
	next := expectedVersion + 1
	now := time.Now().UTC()

	if expectedVersion == 0 {
		query := "INSERT INTO progress_snapshots (family_id, document, version, updated_at) VALUES (?, ?, ?, ?)"
		if _, err := r.db.ExecContext(ctx, query, familyID, string(document), next, now); err != nil {
			// A concurrent first write won the primary key
			if r.db.GetDialect().IsUniqueViolation(err) {
				return 0, ErrVersionConflict
			}
			return 0, fmt.Errorf("failed to insert progress snapshot: %w", err)
		}
		return next, nil
	}

	query := `
		UPDATE progress_snapshots
		SET document = ?, version = ?, updated_at = ?
		WHERE family_id = ? AND version = ?
	`
	result, err := r.db.ExecContext(ctx, query, string(document), next, now, familyID, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to update progress snapshot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

// ListFamilyIDs returns every family that has a snapshot
func (r *ProgressRepository) ListFamilyIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT family_id FROM progress_snapshots ORDER BY family_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan family id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSnapshots returns every stored snapshot, for backups
func (r *ProgressRepository) ListSnapshots(ctx context.Context) ([]models.ProgressSnapshot, error) {
	query := "SELECT family_id, document, version, updated_at FROM progress_snapshots ORDER BY family_id ASC"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.ProgressSnapshot
	for rows.Next() {
		var s models.ProgressSnapshot
		if err := rows.Scan(&s.FamilyID, &s.Document, &s.Version, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// ReplaceSnapshot overwrites a snapshot unconditionally, keeping the given version.
// Used when restoring a backup.
func (r *ProgressRepository) ReplaceSnapshot(ctx context.Context, snap models.ProgressSnapshot) error {
	updatedAt := snap.UpdatedAt.UTC()
	if snap.UpdatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	query := r.db.GetDialect().UpsertSnapshotQuery()
	if _, err := r.db.ExecContext(ctx, query, snap.FamilyID, string(snap.Document), snap.Version, updatedAt); err != nil {
		return fmt.Errorf("failed to replace progress snapshot: %w", err)
	}
	return nil
}
