package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/dto"
	"github.com/timegrid/timegrid-api/internal/models"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
)

type classStore interface {
	ListAll(ctx context.Context) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type rosterValidator interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ClassService manages classes and their subject demands.
type ClassService struct {
	repo      classStore
	teachers  rosterValidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classStore, teachers rosterValidator, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, teachers: teachers, validator: validate, logger: logger}
}

// List returns all classes.
func (s *ClassService) List(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns one class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a class and its curriculum.
func (s *ClassService) Create(ctx context.Context, req dto.ClassPayload) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	subjects, err := s.resolveSubjects(ctx, req.Subjects)
	if err != nil {
		return nil, err
	}
	class := models.Class{Name: req.Name, Subjects: subjects}
	if err := s.repo.Create(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("name", class.Name))
	return &class, nil
}

// Update replaces a class record.
func (s *ClassService) Update(ctx context.Context, id string, req dto.ClassPayload) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	subjects, err := s.resolveSubjects(ctx, req.Subjects)
	if err != nil {
		return nil, err
	}
	class := models.Class{ID: existing.ID, Name: req.Name, Subjects: subjects, CreatedAt: existing.CreatedAt}
	if err := s.repo.Update(ctx, &class); err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return &class, nil
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// resolveSubjects converts payload rows, checking each bound teacher exists
// and actually covers the subject.
func (s *ClassService) resolveSubjects(ctx context.Context, rows []dto.ClassSubjectPayload) ([]models.ClassSubject, error) {
	subjects := make([]models.ClassSubject, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.Subject] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s listed twice", row.Subject))
		}
		seen[row.Subject] = true

		if s.teachers != nil {
			teacher, err := s.teachers.FindByID(ctx, row.TeacherID)
			if err != nil {
				if isNoRows(err) {
					return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s not found", row.TeacherID))
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
			}
			if !teacher.Teaches(row.Subject) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s does not teach %s", row.TeacherID, row.Subject))
			}
		}
		subjects = append(subjects, models.ClassSubject{
			Subject:       row.Subject,
			WeeklyPeriods: row.WeeklyPeriods,
			TeacherID:     row.TeacherID,
		})
	}
	return subjects, nil
}
