package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/timegrid/timegrid-api/internal/models"
)

// ActivityRepository persists the capped audit trail.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Append stores one entry and trims the trail back down to the retention cap.
func (r *ActivityRepository) Append(ctx context.Context, entry *models.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const insertQuery = `
INSERT INTO activity_log (id, action, target, summary, details, created_at)
VALUES (:id, :action, :target, :summary, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, insertQuery, entry); err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}

	const trimQuery = `
DELETE FROM activity_log WHERE id NOT IN (
	SELECT id FROM activity_log ORDER BY created_at DESC LIMIT $1)`
	if _, err := r.db.ExecContext(ctx, trimQuery, models.ActivityLogLimit); err != nil {
		return fmt.Errorf("trim activity log: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first.
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 || limit > models.ActivityLogLimit {
		limit = models.ActivityLogLimit
	}
	const query = `SELECT id, action, target, summary, details, created_at FROM activity_log ORDER BY created_at DESC LIMIT $1`
	var entries []models.ActivityEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list activity entries: %w", err)
	}
	return entries, nil
}
