package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/timegrid/timegrid-api/internal/models"
)

// ClassRepository manages persistence for class sections and their curricula.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

type classRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Subjects  types.JSONText `db:"subjects"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (row classRow) toModel() (models.Class, error) {
	c := models.Class{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Subjects) > 0 {
		if err := json.Unmarshal(row.Subjects, &c.Subjects); err != nil {
			return c, fmt.Errorf("decode class %s subjects: %w", row.ID, err)
		}
	}
	return c, nil
}

// ListAll returns every class with its ordered curriculum.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, subjects, created_at, updated_at FROM classes ORDER BY name ASC`
	var rows []classRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	classes := make([]models.Class, 0, len(rows))
	for _, row := range rows {
		c, err := row.toModel()
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// FindByID loads one class.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, subjects, created_at, updated_at FROM classes WHERE id = $1`
	var row classRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	c, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	subjects, err := encodeSubjects(class.Subjects)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO classes (id, name, subjects, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, class.ID, class.Name, subjects, class.CreatedAt, class.UpdatedAt); err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

// Update replaces a class record wholesale.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()

	subjects, err := encodeSubjects(class.Subjects)
	if err != nil {
		return err
	}
	const query = `UPDATE classes SET name = $2, subjects = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, class.ID, class.Name, subjects, class.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return requireRow(result, "class", class.ID)
}

// Delete removes a class.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return requireRow(result, "class", id)
}

func encodeSubjects(subjects []models.ClassSubject) (types.JSONText, error) {
	if subjects == nil {
		subjects = []models.ClassSubject{}
	}
	data, err := json.Marshal(subjects)
	if err != nil {
		return nil, fmt.Errorf("encode class subjects: %w", err)
	}
	return types.JSONText(data), nil
}
