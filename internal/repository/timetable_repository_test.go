package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timegrid/timegrid-api/internal/models"
)

func newTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimetableRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_versions")).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_versions")).
		WithArgs(sqlmock.AnyArg(), 3, string(models.TimetableStatusDraft), 12.5, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.TimetableVersion{
		Score:   12.5,
		Entries: types.JSONText(`{"9A|0|0":["Math","t1"]}`),
	}
	err := repo.CreateVersioned(context.Background(), nil, payload)
	require.NoError(t, err)
	assert.Equal(t, 3, payload.Version)
	assert.NotEmpty(t, payload.ID)
	assert.Equal(t, models.TimetableStatusDraft, payload.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateVersionedRejectsEmptyEntries(t *testing.T) {
	db, _, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	err := repo.CreateVersioned(context.Background(), nil, &models.TimetableVersion{})
	assert.Error(t, err)
}

func TestTimetableRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "version", "status", "score", "entries", "meta", "created_at", "updated_at"}).
		AddRow("v-2", 2, string(models.TimetableStatusActive), 8.0, []byte(`{}`), []byte(`{}`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, version, status, score, entries, meta, created_at, updated_at FROM timetable_versions WHERE status = $1 ORDER BY version DESC LIMIT 1")).
		WithArgs(string(models.TimetableStatusActive)).
		WillReturnRows(rows)

	version, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v-2", version.ID)
	assert.Equal(t, 2, version.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryActivateArchivesPrevious(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_versions SET status = $1, updated_at = $2 WHERE status = $3")).
		WithArgs(string(models.TimetableStatusArchived), sqlmock.AnyArg(), string(models.TimetableStatusActive)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_versions SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(string(models.TimetableStatusActive), sqlmock.AnyArg(), "v-3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Activate(context.Background(), "v-3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryActivateMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_versions SET status = $1, updated_at = $2 WHERE status = $3")).
		WithArgs(string(models.TimetableStatusArchived), sqlmock.AnyArg(), string(models.TimetableStatusActive)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_versions SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(string(models.TimetableStatusActive), sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Activate(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeleteSkipsActive(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_versions WHERE id = $1 AND status <> $2")).
		WithArgs("v-2", string(models.TimetableStatusActive)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "v-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
