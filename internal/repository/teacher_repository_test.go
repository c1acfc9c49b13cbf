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

func newTeacherRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func teacherRowColumns() []string {
	return []string{"id", "full_name", "subjects", "sections", "max_periods_per_day", "active", "created_at", "updated_at"}
}

func TestTeacherRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(teacherRowColumns()).
		AddRow("t1", "Asha Verma", []byte(`["Math","Physics"]`), []byte(`["9A"]`), 4, true, now, now).
		AddRow("t2", "Rahul Iyer", []byte(`["Chemistry"]`), []byte(`[]`), 5, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, subjects, sections, max_periods_per_day, active, created_at, updated_at FROM teachers WHERE active = TRUE ORDER BY created_at ASC")).
		WillReturnRows(rows)

	teachers, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, "t1", teachers[0].ID)
	assert.Equal(t, []string{"Math", "Physics"}, teachers[0].Subjects)
	assert.Equal(t, []string{"9A"}, teachers[0].Sections)
	assert.Empty(t, teachers[1].Sections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListFiltered(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	active := true
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, subjects, sections, max_periods_per_day, active, created_at, updated_at FROM teachers WHERE 1=1 AND active = $1 AND LOWER(full_name) LIKE $2 ORDER BY full_name ASC LIMIT 20 OFFSET 0")).
		WithArgs(true, "%ash%").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns()).
			AddRow("t1", "Asha Verma", []byte(`["Math"]`), []byte(`[]`), 4, true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers WHERE 1=1 AND active = $1 AND LOWER(full_name) LIKE $2")).
		WithArgs(true, "%ash%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	teachers, total, err := repo.List(context.Background(), models.TeacherFilter{Active: &active, Search: "Ash"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Asha Verma", teachers[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teachers")).
		WithArgs(sqlmock.AnyArg(), "Asha Verma", []byte(`["Math"]`), []byte(`[]`), 4, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	teacher := &models.Teacher{
		FullName:         "Asha Verma",
		Subjects:         []string{"Math"},
		MaxPeriodsPerDay: 4,
		Active:           true,
	}
	err := repo.Create(context.Background(), teacher)
	require.NoError(t, err)
	assert.NotEmpty(t, teacher.ID)
	assert.False(t, teacher.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET")).
		WithArgs("missing", "Nope", []byte(`[]`), []byte(`[]`), 0, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Teacher{ID: "missing", FullName: "Nope"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teachers WHERE id = $1")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "t1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
