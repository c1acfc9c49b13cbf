package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timegrid/timegrid-api/internal/models"
)

func newScenarioRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScenarioRepositoryGetDefaultsWhenMissing(t *testing.T) {
	db, mock, cleanup := newScenarioRepoMock(t)
	defer cleanup()
	repo := NewScenarioRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id, selected_day, scenarios, updated_at FROM scenario_states WHERE owner_id = $1")).
		WithArgs("u-1").
		WillReturnError(sql.ErrNoRows)

	state, err := repo.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 0, state.SelectedDay)
	assert.Empty(t, state.Scenarios)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarioRepositoryGetDecodesToggles(t *testing.T) {
	db, mock, cleanup := newScenarioRepoMock(t)
	defer cleanup()
	repo := NewScenarioRepository(db)

	stored := []byte(`{"teacher_absent":{"active":true,"teacher_id":"t1"}}`)
	rows := sqlmock.NewRows([]string{"owner_id", "selected_day", "scenarios", "updated_at"}).
		AddRow("u-1", 2, stored, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id, selected_day, scenarios, updated_at FROM scenario_states WHERE owner_id = $1")).
		WithArgs("u-1").
		WillReturnRows(rows)

	state, err := repo.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.SelectedDay)
	toggle := state.Toggle(models.ScenarioTeacherAbsent)
	assert.True(t, toggle.Active)
	assert.Equal(t, "t1", toggle.TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarioRepositorySaveUpserts(t *testing.T) {
	db, mock, cleanup := newScenarioRepoMock(t)
	defer cleanup()
	repo := NewScenarioRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scenario_states")).
		WithArgs("u-1", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	state := models.DefaultScenarioState()
	state.SelectedDay = 1
	state.Scenarios[models.ScenarioShortenedDay] = models.ScenarioToggle{Active: true, MaxPeriods: 4}
	err := repo.Save(context.Background(), "u-1", &state)
	require.NoError(t, err)
	assert.False(t, state.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
