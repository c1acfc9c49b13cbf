package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/timegrid/timegrid-api/internal/models"
)

const timetableColumns = "id, version, status, score, entries, meta, created_at, updated_at"

// TimetableRepository persists versioned timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a timetable assigning the next sequential version.
func (r *TimetableRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, version *models.TimetableVersion) error {
	if version == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if len(version.Entries) == 0 {
		return fmt.Errorf("timetable entries are required")
	}
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.Status == "" {
		version.Status = models.TimetableStatusDraft
	}
	if len(version.Meta) == 0 {
		version.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if version.CreatedAt.IsZero() {
		version.CreatedAt = now
	}
	version.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_versions`
	if err := sqlx.GetContext(ctx, target, &version.Version, nextVersionQuery); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetable_versions (id, version, status, score, entries, meta, created_at, updated_at)
VALUES (:id, :version, :status, :score, :entries, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, version); err != nil {
		return fmt.Errorf("insert timetable version: %w", err)
	}
	return nil
}

// List returns all stored versions, newest first.
func (r *TimetableRepository) List(ctx context.Context) ([]models.TimetableVersion, error) {
	const query = `SELECT ` + timetableColumns + ` FROM timetable_versions ORDER BY version DESC`
	var versions []models.TimetableVersion
	if err := r.db.SelectContext(ctx, &versions, query); err != nil {
		return nil, fmt.Errorf("list timetable versions: %w", err)
	}
	return versions, nil
}

// FindByID loads a timetable version by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableVersion, error) {
	const query = `SELECT ` + timetableColumns + ` FROM timetable_versions WHERE id = $1`
	var version models.TimetableVersion
	if err := r.db.GetContext(ctx, &version, query, id); err != nil {
		return nil, err
	}
	return &version, nil
}

// FindActive loads the single active version. Returns sql.ErrNoRows when no
// version has been activated yet.
func (r *TimetableRepository) FindActive(ctx context.Context) (*models.TimetableVersion, error) {
	const query = `SELECT ` + timetableColumns + ` FROM timetable_versions WHERE status = $1 ORDER BY version DESC LIMIT 1`
	var version models.TimetableVersion
	if err := r.db.GetContext(ctx, &version, query, models.TimetableStatusActive); err != nil {
		return nil, err
	}
	return &version, nil
}

// Activate promotes one version to ACTIVE, archiving whichever version held
// that status before. Runs inside a transaction so at most one version is
// active at any time.
func (r *TimetableRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE timetable_versions SET status = $1, updated_at = $2 WHERE status = $3`,
		models.TimetableStatusArchived, now, models.TimetableStatusActive); err != nil {
		return fmt.Errorf("archive active timetable: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE timetable_versions SET status = $1, updated_at = $2 WHERE id = $3`,
		models.TimetableStatusActive, now, id)
	if err != nil {
		return fmt.Errorf("activate timetable: %w", err)
	}
	if err := requireRow(result, "timetable version", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activate tx: %w", err)
	}
	return nil
}

// UpdateStatus updates the status (and optionally meta) of a version.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableVersionStatus, meta types.JSONText) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	var (
		query string
		args  []interface{}
	)
	if len(meta) > 0 {
		query = `UPDATE timetable_versions SET status = $1, meta = $2, updated_at = $3 WHERE id = $4`
		args = []interface{}{status, meta, now, id}
	} else {
		query = `UPDATE timetable_versions SET status = $1, updated_at = $2 WHERE id = $3`
		args = []interface{}{status, now, id}
	}
	result, err := target.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	return requireRow(result, "timetable version", id)
}

// Delete removes a stored version. Active versions must be archived first.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetable_versions WHERE id = $1 AND status <> $2`
	result, err := r.db.ExecContext(ctx, query, id, models.TimetableStatusActive)
	if err != nil {
		return fmt.Errorf("delete timetable version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable version rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
