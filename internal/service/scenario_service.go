package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/dto"
	"github.com/timegrid/timegrid-api/internal/models"
	"github.com/timegrid/timegrid-api/internal/scenario"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
)

type scenarioStateStore interface {
	Get(ctx context.Context, ownerID string) (models.ScenarioState, error)
	Save(ctx context.Context, ownerID string, state *models.ScenarioState) error
	Reset(ctx context.Context, ownerID string) error
}

type resolvedViewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type timetableVersionReader interface {
	FindByID(ctx context.Context, id string) (*models.TimetableVersion, error)
	FindActive(ctx context.Context) (*models.TimetableVersion, error)
}

// ScenarioService manages per-user what-if state and resolves day overlays
// against a stored timetable version.
type ScenarioService struct {
	states    scenarioStateStore
	versions  timetableVersionReader
	teachers  teacherRosterReader
	classes   classDemandReader
	config    schoolConfigReader
	cache     resolvedViewCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewScenarioService wires the scenario resolution pipeline.
func NewScenarioService(
	states scenarioStateStore,
	versions timetableVersionReader,
	teachers teacherRosterReader,
	classes classDemandReader,
	config schoolConfigReader,
	cache resolvedViewCache,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScenarioService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ScenarioService{
		states:    states,
		versions:  versions,
		teachers:  teachers,
		classes:   classes,
		config:    config,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// WithMetrics attaches cache instrumentation.
func (s *ScenarioService) WithMetrics(m *MetricsService) *ScenarioService {
	s.metrics = m
	return s
}

// State returns the stored what-if configuration for one owner.
func (s *ScenarioService) State(ctx context.Context, ownerID string) (*dto.ScenarioStateResponse, error) {
	state, err := s.states.Get(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scenario state")
	}
	return &dto.ScenarioStateResponse{SelectedDay: state.SelectedDay, Scenarios: state.Scenarios}, nil
}

// Toggle replaces the configuration of one rule.
func (s *ScenarioService) Toggle(ctx context.Context, ownerID string, req dto.ScenarioToggleRequest) (*dto.ScenarioStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scenario toggle payload")
	}
	if req.Active {
		if err := validateToggleParams(req); err != nil {
			return nil, err
		}
	}

	state, err := s.states.Get(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scenario state")
	}
	if state.Scenarios == nil {
		state.Scenarios = map[string]models.ScenarioToggle{}
	}
	state.Scenarios[req.Name] = models.ScenarioToggle{
		Active:            req.Active,
		TeacherID:         req.TeacherID,
		LabSubjects:       req.LabSubjects,
		MaxPeriods:        req.MaxPeriods,
		ClassID:           req.ClassID,
		Period:            req.Period,
		OriginalTeacher:   req.OriginalTeacher,
		SubstituteTeacher: req.SubstituteTeacher,
	}
	if err := s.states.Save(ctx, ownerID, &state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save scenario state")
	}
	return &dto.ScenarioStateResponse{SelectedDay: state.SelectedDay, Scenarios: state.Scenarios}, nil
}

// SelectDay switches the day under inspection.
func (s *ScenarioService) SelectDay(ctx context.Context, ownerID string, req dto.SelectDayRequest) (*dto.ScenarioStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day selection payload")
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school config")
	}
	if req.Day >= len(cfg.Days) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d out of range (school week has %d days)", req.Day, len(cfg.Days)))
	}

	state, err := s.states.Get(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scenario state")
	}
	state.SelectedDay = req.Day
	if err := s.states.Save(ctx, ownerID, &state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save scenario state")
	}
	return &dto.ScenarioStateResponse{SelectedDay: state.SelectedDay, Scenarios: state.Scenarios}, nil
}

// Reset clears the what-if state for one owner.
func (s *ScenarioService) Reset(ctx context.Context, ownerID string) error {
	if err := s.states.Reset(ctx, ownerID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset scenario state")
	}
	return nil
}

// Resolve applies the owner's active scenarios to the selected day of a
// version. An empty versionID targets the active version. Results are
// cached per version and state fingerprint.
func (s *ScenarioService) Resolve(ctx context.Context, ownerID, versionID string) (*dto.ResolvedDayResponse, error) {
	state, err := s.states.Get(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scenario state")
	}

	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	key, err := resolveCacheKey(version, state)
	if err == nil && s.cache != nil {
		var cached models.Timetable
		if cacheErr := s.cache.Get(ctx, key, &cached); cacheErr == nil {
			s.metrics.ObserveScenarioCache(true)
			return &dto.ResolvedDayResponse{
				VersionID:   version.ID,
				SelectedDay: state.SelectedDay,
				Entries:     cached,
				Cached:      true,
			}, nil
		} else if !errors.Is(cacheErr, appErrors.ErrCacheMiss) {
			s.logger.Warn("scenario cache read failed", zap.Error(cacheErr))
		} else {
			s.metrics.ObserveScenarioCache(false)
		}
	}

	base, err := version.Decode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode timetable entries")
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school config")
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	classes, err := s.classes.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}

	resolved := scenario.Resolve(base, cfg, teachers, classes, state)

	if key != "" && s.cache != nil {
		if cacheErr := s.cache.Set(ctx, key, resolved, s.cacheTTL); cacheErr != nil {
			s.logger.Warn("scenario cache write failed", zap.Error(cacheErr))
		}
	}

	return &dto.ResolvedDayResponse{
		VersionID:   version.ID,
		SelectedDay: state.SelectedDay,
		Entries:     resolved,
	}, nil
}

// InvalidateVersion drops cached overlays for one version, used after the
// version is deleted or replaced.
func (s *ScenarioService) InvalidateVersion(ctx context.Context, versionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "scenario:"+versionID+":*"); err != nil {
		s.logger.Warn("scenario cache invalidation failed", zap.String("version_id", versionID), zap.Error(err))
	}
}

func (s *ScenarioService) loadVersion(ctx context.Context, versionID string) (*models.TimetableVersion, error) {
	if versionID == "" {
		version, err := s.versions.FindActive(ctx)
		if err != nil {
			if isNoRows(err) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no active timetable")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active timetable")
		}
		return version, nil
	}
	version, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable version")
	}
	return version, nil
}

func validateToggleParams(req dto.ScenarioToggleRequest) error {
	switch req.Name {
	case models.ScenarioTeacherAbsent:
		if req.TeacherID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "teacherId is required for teacher_absent")
		}
	case models.ScenarioLabUnavailable:
		if len(req.LabSubjects) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "labSubjects is required for lab_unavailable")
		}
	case models.ScenarioShortenedDay:
		if req.MaxPeriods <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, "maxPeriods is required for shortened_day")
		}
	case models.ScenarioEmergencyFree:
		if req.ClassID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "classId is required for emergency_free")
		}
	case models.ScenarioSubstitute:
		if req.OriginalTeacher == "" || req.SubstituteTeacher == "" {
			return appErrors.Clone(appErrors.ErrValidation, "originalTeacher and substituteTeacher are required for substitute")
		}
	}
	return nil
}

// resolveCacheKey fingerprints the version and the full what-if state so any
// toggle change produces a distinct key.
func resolveCacheKey(version *models.TimetableVersion, state models.ScenarioState) (string, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("scenario:%s:%s", version.ID, hex.EncodeToString(sum[:8])), nil
}
