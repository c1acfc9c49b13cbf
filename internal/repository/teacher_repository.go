package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/timegrid/timegrid-api/internal/models"
)

// TeacherRepository manages persistence for the teacher roster.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

type teacherRow struct {
	ID               string         `db:"id"`
	FullName         string         `db:"full_name"`
	Subjects         types.JSONText `db:"subjects"`
	Sections         types.JSONText `db:"sections"`
	MaxPeriodsPerDay int            `db:"max_periods_per_day"`
	Active           bool           `db:"active"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (row teacherRow) toModel() (models.Teacher, error) {
	t := models.Teacher{
		ID:               row.ID,
		FullName:         row.FullName,
		MaxPeriodsPerDay: row.MaxPeriodsPerDay,
		Active:           row.Active,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if len(row.Subjects) > 0 {
		if err := json.Unmarshal(row.Subjects, &t.Subjects); err != nil {
			return t, fmt.Errorf("decode teacher %s subjects: %w", row.ID, err)
		}
	}
	if len(row.Sections) > 0 {
		if err := json.Unmarshal(row.Sections, &t.Sections); err != nil {
			return t, fmt.Errorf("decode teacher %s sections: %w", row.ID, err)
		}
	}
	return t, nil
}

func encodeStrings(list []string) (types.JSONText, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return types.JSONText(data), nil
}

const teacherColumns = "id, full_name, subjects, sections, max_periods_per_day, active, created_at, updated_at"

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("LOWER(full_name) LIKE $%d", len(args)+1))
		args = append(args, search)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY full_name ASC LIMIT %d OFFSET %d", teacherColumns, base, size, offset)
	var rows []teacherRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	teachers := make([]models.Teacher, 0, len(rows))
	for _, row := range rows {
		t, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		teachers = append(teachers, t)
	}
	return teachers, total, nil
}

// ListActive returns every active teacher in roster order, the order the
// scenario resolver's substitute search depends on.
func (r *TeacherRepository) ListActive(ctx context.Context) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE active = TRUE ORDER BY created_at ASC", teacherColumns)
	var rows []teacherRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	teachers := make([]models.Teacher, 0, len(rows))
	for _, row := range rows {
		t, err := row.toModel()
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, nil
}

// FindByID loads one teacher.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var row teacherRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	t, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	subjects, err := encodeStrings(teacher.Subjects)
	if err != nil {
		return fmt.Errorf("encode teacher subjects: %w", err)
	}
	sections, err := encodeStrings(teacher.Sections)
	if err != nil {
		return fmt.Errorf("encode teacher sections: %w", err)
	}

	const query = `
INSERT INTO teachers (id, full_name, subjects, sections, max_periods_per_day, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		teacher.ID, teacher.FullName, subjects, sections,
		teacher.MaxPeriodsPerDay, teacher.Active, teacher.CreatedAt, teacher.UpdatedAt); err != nil {
		return fmt.Errorf("insert teacher: %w", err)
	}
	return nil
}

// Update replaces a teacher record wholesale.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()

	subjects, err := encodeStrings(teacher.Subjects)
	if err != nil {
		return fmt.Errorf("encode teacher subjects: %w", err)
	}
	sections, err := encodeStrings(teacher.Sections)
	if err != nil {
		return fmt.Errorf("encode teacher sections: %w", err)
	}

	const query = `
UPDATE teachers SET full_name = $2, subjects = $3, sections = $4, max_periods_per_day = $5, active = $6, updated_at = $7
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		teacher.ID, teacher.FullName, subjects, sections,
		teacher.MaxPeriodsPerDay, teacher.Active, teacher.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return requireRow(result, "teacher", teacher.ID)
}

// Delete removes a teacher from the roster.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM teachers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return requireRow(result, "teacher", id)
}
