package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/timegrid/timegrid-api/internal/models"
)

// PriorityRepository persists per-class soft-preference configuration.
type PriorityRepository struct {
	db *sqlx.DB
}

// NewPriorityRepository constructs a PriorityRepository.
func NewPriorityRepository(db *sqlx.DB) *PriorityRepository {
	return &PriorityRepository{db: db}
}

type priorityRow struct {
	ClassID          string         `db:"class_id"`
	PrioritySubjects types.JSONText `db:"priority_subjects"`
	WeakSubjects     types.JSONText `db:"weak_subjects"`
	HeavySubjects    types.JSONText `db:"heavy_subjects"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (row priorityRow) toModel() (models.ClassPriorityConfig, error) {
	pc := models.ClassPriorityConfig{ClassID: row.ClassID, UpdatedAt: row.UpdatedAt}
	for _, field := range []struct {
		raw  types.JSONText
		dest *[]string
	}{
		{row.PrioritySubjects, &pc.PrioritySubjects},
		{row.WeakSubjects, &pc.WeakSubjects},
		{row.HeavySubjects, &pc.HeavySubjects},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dest); err != nil {
			return pc, fmt.Errorf("decode priority config for class %s: %w", row.ClassID, err)
		}
	}
	return pc, nil
}

// ListAll returns every stored priority configuration.
func (r *PriorityRepository) ListAll(ctx context.Context) ([]models.ClassPriorityConfig, error) {
	const query = `SELECT class_id, priority_subjects, weak_subjects, heavy_subjects, updated_at FROM class_priorities ORDER BY class_id ASC`
	var rows []priorityRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list priority configs: %w", err)
	}
	configs := make([]models.ClassPriorityConfig, 0, len(rows))
	for _, row := range rows {
		pc, err := row.toModel()
		if err != nil {
			return nil, err
		}
		configs = append(configs, pc)
	}
	return configs, nil
}

// Upsert stores the configuration for one class.
func (r *PriorityRepository) Upsert(ctx context.Context, pc *models.ClassPriorityConfig) error {
	priority, err := encodeStrings(pc.PrioritySubjects)
	if err != nil {
		return fmt.Errorf("encode priority subjects: %w", err)
	}
	weak, err := encodeStrings(pc.WeakSubjects)
	if err != nil {
		return fmt.Errorf("encode weak subjects: %w", err)
	}
	heavy, err := encodeStrings(pc.HeavySubjects)
	if err != nil {
		return fmt.Errorf("encode heavy subjects: %w", err)
	}
	pc.UpdatedAt = time.Now().UTC()

	const query = `
INSERT INTO class_priorities (class_id, priority_subjects, weak_subjects, heavy_subjects, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (class_id) DO UPDATE SET priority_subjects = $2, weak_subjects = $3, heavy_subjects = $4, updated_at = $5`
	if _, err := r.db.ExecContext(ctx, query, pc.ClassID, priority, weak, heavy, pc.UpdatedAt); err != nil {
		return fmt.Errorf("upsert priority config: %w", err)
	}
	return nil
}

// Delete removes one class's configuration.
func (r *PriorityRepository) Delete(ctx context.Context, classID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM class_priorities WHERE class_id = $1", classID)
	if err != nil {
		return fmt.Errorf("delete priority config: %w", err)
	}
	return requireRow(result, "priority config", classID)
}
