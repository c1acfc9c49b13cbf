package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/timegrid/timegrid-api/internal/models"
)

// SchoolConfigRepository persists the singleton school grid configuration.
type SchoolConfigRepository struct {
	db *sqlx.DB
}

// NewSchoolConfigRepository constructs a SchoolConfigRepository.
func NewSchoolConfigRepository(db *sqlx.DB) *SchoolConfigRepository {
	return &SchoolConfigRepository{db: db}
}

type schoolConfigRow struct {
	Days          types.JSONText `db:"days"`
	PeriodsPerDay int            `db:"periods_per_day"`
	BreakPeriods  types.JSONText `db:"break_periods"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// Get loads the configuration, falling back to defaults when none is stored.
// Break entries with unparsable period indices are skipped, never fatal.
func (r *SchoolConfigRepository) Get(ctx context.Context) (models.SchoolConfig, error) {
	const query = `SELECT days, periods_per_day, break_periods, updated_at FROM school_config WHERE id = 1`
	var row schoolConfigRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultSchoolConfig(), nil
		}
		return models.SchoolConfig{}, fmt.Errorf("load school config: %w", err)
	}

	cfg := models.SchoolConfig{
		PeriodsPerDay: row.PeriodsPerDay,
		BreakPeriods:  map[int]string{},
		UpdatedAt:     row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Days, &cfg.Days); err != nil {
		return models.SchoolConfig{}, fmt.Errorf("decode school config days: %w", err)
	}

	var rawBreaks map[string]string
	if len(row.BreakPeriods) > 0 {
		if err := json.Unmarshal(row.BreakPeriods, &rawBreaks); err != nil {
			return models.SchoolConfig{}, fmt.Errorf("decode school config breaks: %w", err)
		}
	}
	for key, name := range rawBreaks {
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		cfg.BreakPeriods[idx] = name
	}
	return cfg, nil
}

// Save upserts the configuration.
func (r *SchoolConfigRepository) Save(ctx context.Context, cfg models.SchoolConfig) error {
	days, err := json.Marshal(cfg.Days)
	if err != nil {
		return fmt.Errorf("encode school config days: %w", err)
	}
	rawBreaks := make(map[string]string, len(cfg.BreakPeriods))
	for idx, name := range cfg.BreakPeriods {
		rawBreaks[strconv.Itoa(idx)] = name
	}
	breaks, err := json.Marshal(rawBreaks)
	if err != nil {
		return fmt.Errorf("encode school config breaks: %w", err)
	}

	const query = `
INSERT INTO school_config (id, days, periods_per_day, break_periods, updated_at)
VALUES (1, $1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET days = $1, periods_per_day = $2, break_periods = $3, updated_at = $4`
	if _, err := r.db.ExecContext(ctx, query, types.JSONText(days), cfg.PeriodsPerDay, types.JSONText(breaks), time.Now().UTC()); err != nil {
		return fmt.Errorf("save school config: %w", err)
	}
	return nil
}
