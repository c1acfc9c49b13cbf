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

type schoolConfigStore interface {
	Get(ctx context.Context) (models.SchoolConfig, error)
	Save(ctx context.Context, cfg models.SchoolConfig) error
}

type priorityStore interface {
	ListAll(ctx context.Context) ([]models.ClassPriorityConfig, error)
	Upsert(ctx context.Context, pc *models.ClassPriorityConfig) error
	Delete(ctx context.Context, classID string) error
}

type classExistenceChecker interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// ConfigService manages the school calendar shape and per-class priorities.
type ConfigService struct {
	config     schoolConfigStore
	priorities priorityStore
	classes    classExistenceChecker
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewConfigService constructs a ConfigService.
func NewConfigService(
	config schoolConfigStore,
	priorities priorityStore,
	classes classExistenceChecker,
	validate *validator.Validate,
	logger *zap.Logger,
) *ConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigService{config: config, priorities: priorities, classes: classes, validator: validate, logger: logger}
}

// Get returns the school configuration, defaulted when never saved.
func (s *ConfigService) Get(ctx context.Context) (models.SchoolConfig, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return models.SchoolConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school config")
	}
	return cfg, nil
}

// Update replaces the school configuration.
func (s *ConfigService) Update(ctx context.Context, req dto.SchoolConfigPayload) (models.SchoolConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.SchoolConfig{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school config payload")
	}
	for period := range req.BreakPeriods {
		if period < 0 || period >= req.PeriodsPerDay {
			return models.SchoolConfig{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("break period %d outside the school day", period))
		}
	}
	if len(req.BreakPeriods) >= req.PeriodsPerDay {
		return models.SchoolConfig{}, appErrors.Clone(appErrors.ErrValidation, "every period is a break")
	}

	cfg := models.SchoolConfig{
		Days:          req.Days,
		PeriodsPerDay: req.PeriodsPerDay,
		BreakPeriods:  req.BreakPeriods,
	}
	if cfg.BreakPeriods == nil {
		cfg.BreakPeriods = map[int]string{}
	}
	if err := s.config.Save(ctx, cfg); err != nil {
		return models.SchoolConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save school config")
	}
	s.logger.Info("school config updated",
		zap.Int("days", len(cfg.Days)),
		zap.Int("periods_per_day", cfg.PeriodsPerDay),
	)
	return cfg, nil
}

// Priorities returns every stored class priority configuration.
func (s *ConfigService) Priorities(ctx context.Context) ([]models.ClassPriorityConfig, error) {
	configs, err := s.priorities.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list priority configs")
	}
	return configs, nil
}

// SetPriority replaces the priorities of one class.
func (s *ConfigService) SetPriority(ctx context.Context, classID string, req dto.PriorityPayload) (*models.ClassPriorityConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid priority payload")
	}
	if s.classes != nil {
		if _, err := s.classes.FindByID(ctx, classID); err != nil {
			if isNoRows(err) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
	}
	pc := models.ClassPriorityConfig{
		ClassID:          classID,
		PrioritySubjects: req.PrioritySubjects,
		WeakSubjects:     req.WeakSubjects,
		HeavySubjects:    req.HeavySubjects,
	}
	if err := s.priorities.Upsert(ctx, &pc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save priority config")
	}
	return &pc, nil
}

// ClearPriority drops the priorities of one class.
func (s *ConfigService) ClearPriority(ctx context.Context, classID string) error {
	if err := s.priorities.Delete(ctx, classID); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "priority config not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete priority config")
	}
	return nil
}
