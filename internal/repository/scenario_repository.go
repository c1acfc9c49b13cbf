package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid/timegrid-api/internal/models"
)

// ScenarioRepository persists per-user what-if state so a planner session
// survives restarts.
type ScenarioRepository struct {
	db *sqlx.DB
}

// NewScenarioRepository constructs a ScenarioRepository.
func NewScenarioRepository(db *sqlx.DB) *ScenarioRepository {
	return &ScenarioRepository{db: db}
}

type scenarioRow struct {
	OwnerID     string    `db:"owner_id"`
	SelectedDay int       `db:"selected_day"`
	Scenarios   []byte    `db:"scenarios"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Get loads the stored state for one owner, falling back to the default
// empty state when nothing has been saved yet.
func (r *ScenarioRepository) Get(ctx context.Context, ownerID string) (models.ScenarioState, error) {
	const query = `SELECT owner_id, selected_day, scenarios, updated_at FROM scenario_states WHERE owner_id = $1`
	var row scenarioRow
	if err := r.db.GetContext(ctx, &row, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultScenarioState(), nil
		}
		return models.ScenarioState{}, fmt.Errorf("load scenario state: %w", err)
	}

	state := models.ScenarioState{SelectedDay: row.SelectedDay, UpdatedAt: row.UpdatedAt}
	if len(row.Scenarios) > 0 {
		if err := json.Unmarshal(row.Scenarios, &state.Scenarios); err != nil {
			return models.ScenarioState{}, fmt.Errorf("decode scenario state: %w", err)
		}
	}
	if state.Scenarios == nil {
		state.Scenarios = map[string]models.ScenarioToggle{}
	}
	return state, nil
}

// Save upserts the state for one owner.
func (r *ScenarioRepository) Save(ctx context.Context, ownerID string, state *models.ScenarioState) error {
	scenarios := state.Scenarios
	if scenarios == nil {
		scenarios = map[string]models.ScenarioToggle{}
	}
	encoded, err := json.Marshal(scenarios)
	if err != nil {
		return fmt.Errorf("encode scenario state: %w", err)
	}
	state.UpdatedAt = time.Now().UTC()

	const query = `
INSERT INTO scenario_states (owner_id, selected_day, scenarios, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (owner_id) DO UPDATE SET selected_day = $2, scenarios = $3, updated_at = $4`
	if _, err := r.db.ExecContext(ctx, query, ownerID, state.SelectedDay, encoded, state.UpdatedAt); err != nil {
		return fmt.Errorf("save scenario state: %w", err)
	}
	return nil
}

// Reset drops the stored state for one owner. Missing rows are not an error.
func (r *ScenarioRepository) Reset(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM scenario_states WHERE owner_id = $1", ownerID); err != nil {
		return fmt.Errorf("reset scenario state: %w", err)
	}
	return nil
}
