package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/dto"
	"github.com/timegrid/timegrid-api/internal/models"
	"github.com/timegrid/timegrid-api/internal/timetable"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
	"github.com/timegrid/timegrid-api/pkg/jobs"
)

type teacherRosterReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type classDemandReader interface {
	ListAll(ctx context.Context) ([]models.Class, error)
}

type schoolConfigReader interface {
	Get(ctx context.Context) (models.SchoolConfig, error)
}

type priorityReader interface {
	ListAll(ctx context.Context) ([]models.ClassPriorityConfig, error)
}

type timetableVersionStore interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, version *models.TimetableVersion) error
	List(ctx context.Context) ([]models.TimetableVersion, error)
	FindByID(ctx context.Context, id string) (*models.TimetableVersion, error)
	FindActive(ctx context.Context) (*models.TimetableVersion, error)
	Activate(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableVersionStatus, meta types.JSONText) error
	Delete(ctx context.Context, id string) error
}

type activityAppender interface {
	Append(ctx context.Context, entry *models.ActivityEntry) error
}

// TimetableService orchestrates the generate, improve, save and activate
// pipeline for base timetables.
type TimetableService struct {
	teachers   teacherRosterReader
	classes    classDemandReader
	config     schoolConfigReader
	priorities priorityReader
	versions   timetableVersionStore
	activity   activityAppender
	validator  *validator.Validate
	logger     *zap.Logger

	timeBudget time.Duration
	iterations int
	seed       int64
	rotations  int

	store   *proposalStore
	queue   *jobs.Queue
	runs    *jobTracker
	metrics *MetricsService
}

// TimetableServiceConfig governs solver behaviour.
type TimetableServiceConfig struct {
	TimeBudget  time.Duration
	ProposalTTL time.Duration
	Iterations  int
	Seed        int64
	Rotations   int
	Workers     int
}

// NewTimetableService wires the generation pipeline.
func NewTimetableService(
	teachers teacherRosterReader,
	classes classDemandReader,
	config schoolConfigReader,
	priorities priorityReader,
	versions timetableVersionStore,
	activity activityAppender,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = timetable.DefaultTimeBudget
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = timetable.DefaultImproveIterations
	}
	if cfg.Rotations <= 0 {
		cfg.Rotations = timetable.DefaultRotationWeeks
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	s := &TimetableService{
		teachers:   teachers,
		classes:    classes,
		config:     config,
		priorities: priorities,
		versions:   versions,
		activity:   activity,
		validator:  validate,
		logger:     logger,
		timeBudget: cfg.TimeBudget,
		iterations: cfg.Iterations,
		seed:       cfg.Seed,
		rotations:  cfg.Rotations,
		store:      newProposalStore(cfg.ProposalTTL),
		runs:       newJobTracker(cfg.ProposalTTL),
	}
	s.queue = jobs.NewQueue("timetable-solve", s.handleSolveJob, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// WithMetrics attaches solve instrumentation.
func (s *TimetableService) WithMetrics(m *MetricsService) *TimetableService {
	s.metrics = m
	return s
}

// StartWorkers launches the background solve queue.
func (s *TimetableService) StartWorkers(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopWorkers drains the background solve queue.
func (s *TimetableService) StopWorkers() {
	s.queue.Stop()
}

// Generate runs the full pipeline synchronously and caches the proposal.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	return s.generate(ctx, req)
}

// GenerateAsync enqueues a solve and returns a job handle immediately.
func (s *TimetableService) GenerateAsync(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	jobID := uuid.NewString()
	s.runs.Start(jobID)
	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: "solve", Payload: req}); err != nil {
		s.runs.Fail(jobID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue solve job")
	}
	return &dto.GenerateJobResponse{JobID: jobID, Status: jobStatusPending}, nil
}

// Job reports the state of an async solve, including its result when done.
func (s *TimetableService) Job(jobID string) (*JobRun, error) {
	run, ok := s.runs.Get(jobID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found or expired")
	}
	return run, nil
}

func (s *TimetableService) handleSolveJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateTimetableRequest)
	if !ok {
		s.runs.Fail(job.ID, fmt.Errorf("unexpected payload type %T", job.Payload))
		return nil
	}
	resp, err := s.generate(ctx, req)
	if err != nil {
		s.runs.Fail(job.ID, err)
		return nil
	}
	s.runs.Complete(job.ID, resp)
	return nil
}

func (s *TimetableService) generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	cfg, teachers, classes, priorities, err := s.loadInputs(ctx)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no classes defined")
	}
	if len(teachers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active teachers defined")
	}

	budget := s.timeBudget
	if req.TimeBudgetSeconds > 0 {
		budget = time.Duration(req.TimeBudgetSeconds) * time.Second
	}
	iterations := s.iterations
	if req.ImproveIterations > 0 {
		iterations = req.ImproveIterations
	}
	seed := s.seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	model := timetable.BuildModel(cfg, teachers, classes)
	solver := timetable.NewBacktrackingSolver(budget, s.logger)

	started := time.Now()
	base, err := solver.Solve(ctx, model)
	if err != nil {
		if errors.Is(err, timetable.ErrNoSolution) {
			s.metrics.ObserveSolve("no_solution", time.Since(started), 0)
			return nil, appErrors.Clone(appErrors.ErrNoSolution, "")
		}
		s.metrics.ObserveSolve("error", time.Since(started), 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "solver failure")
	}

	initialScore := timetable.Score(base, cfg, priorities)
	improved := timetable.Improve(base, cfg, classes, priorities, iterations, rand.New(rand.NewSource(seed)))
	improvedScore := timetable.Score(improved, cfg, priorities)

	proposal := timetableProposal{
		ProposalID: uuid.NewString(),
		Entries:    improved,
		Score:      improvedScore,
		Stats: dto.SolveStats{
			SolveMillis:    time.Since(started).Milliseconds(),
			Iterations:     iterations,
			InitialScore:   initialScore,
			ImprovedScore:  improvedScore,
			TotalDemand:    model.TotalDemand(),
			ClassesCovered: len(improved.Classes()),
		},
		Seed:        seed,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)
	s.metrics.ObserveSolve("ok", time.Since(started), improvedScore)

	s.logger.Info("timetable proposal generated",
		zap.String("proposal_id", proposal.ProposalID),
		zap.Float64("score", improvedScore),
		zap.Int64("solve_ms", proposal.Stats.SolveMillis),
	)

	return &dto.GenerateTimetableResponse{
		ProposalID: proposal.ProposalID,
		Score:      proposal.Score,
		Entries:    proposal.Entries,
		Stats:      proposal.Stats,
	}, nil
}

// Save persists a cached proposal as the next draft version.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (*models.TimetableVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	entries, err := json.Marshal(proposal.Entries)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable entries")
	}
	meta, err := json.Marshal(map[string]any{
		"stats":     proposal.Stats,
		"seed":      proposal.Seed,
		"generated": proposal.RequestedAt,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
	}

	record := &models.TimetableVersion{
		Status:  models.TimetableStatusDraft,
		Score:   proposal.Score,
		Entries: types.JSONText(entries),
		Meta:    types.JSONText(meta),
	}
	if err := s.versions.CreateVersioned(ctx, nil, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable version")
	}

	if req.Activate {
		if err := s.versions.Activate(ctx, record.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate timetable version")
		}
		record.Status = models.TimetableStatusActive
	}

	s.store.Delete(req.ProposalID)
	s.audit(ctx, "timetable.save", record.ID, fmt.Sprintf("saved timetable v%d (score %.1f)", record.Version, record.Score))
	return record, nil
}

// List returns stored version summaries, newest first.
func (s *TimetableService) List(ctx context.Context) ([]dto.TimetableVersionSummary, error) {
	versions, err := s.versions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable versions")
	}
	summaries := make([]dto.TimetableVersionSummary, 0, len(versions))
	for _, v := range versions {
		summaries = append(summaries, dto.TimetableVersionSummary{
			ID:        v.ID,
			Version:   v.Version,
			Status:    v.Status,
			Score:     v.Score,
			CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return summaries, nil
}

// Get loads one stored version with its full entry map.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.TimetableVersion, error) {
	return s.findVersion(ctx, id)
}

// Active loads the currently active version.
func (s *TimetableService) Active(ctx context.Context) (*models.TimetableVersion, error) {
	version, err := s.versions.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active timetable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active timetable")
	}
	return version, nil
}

// Activate promotes a stored version, archiving the previous active one.
func (s *TimetableService) Activate(ctx context.Context, id string) error {
	version, err := s.findVersion(ctx, id)
	if err != nil {
		return err
	}
	if version.Status == models.TimetableStatusActive {
		return nil
	}
	if err := s.versions.Activate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable version not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate timetable version")
	}
	s.audit(ctx, "timetable.activate", id, fmt.Sprintf("activated timetable v%d", version.Version))
	return nil
}

// Archive demotes a version to ARCHIVED. Archiving the active version leaves
// the school without an active timetable until another is activated.
func (s *TimetableService) Archive(ctx context.Context, id string) error {
	version, err := s.findVersion(ctx, id)
	if err != nil {
		return err
	}
	if version.Status == models.TimetableStatusArchived {
		return nil
	}
	if err := s.versions.UpdateStatus(ctx, nil, id, models.TimetableStatusArchived, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable version not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive timetable version")
	}
	s.audit(ctx, "timetable.archive", id, fmt.Sprintf("archived timetable v%d", version.Version))
	return nil
}

// Delete removes a non-active stored version.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	version, err := s.findVersion(ctx, id)
	if err != nil {
		return err
	}
	if version.Status == models.TimetableStatusActive {
		return appErrors.Clone(appErrors.ErrConflict, "active timetable cannot be deleted")
	}
	if err := s.versions.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable version not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable version")
	}
	s.audit(ctx, "timetable.delete", id, fmt.Sprintf("deleted timetable v%d", version.Version))
	return nil
}

// Rotations derives the multi-week rotation of one stored version.
func (s *TimetableService) Rotations(ctx context.Context, id string, weeks int) (*dto.RotationResponse, error) {
	version, base, cfg, err := s.loadVersionEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	if weeks <= 0 {
		weeks = s.rotations
	}
	return &dto.RotationResponse{
		VersionID: version.ID,
		Weeks:     timetable.Rotations(base, cfg, weeks),
	}, nil
}

// TeacherView inverts one stored version into per-teacher agendas.
func (s *TimetableService) TeacherView(ctx context.Context, id string) (*dto.TeacherViewResponse, error) {
	version, base, _, err := s.loadVersionEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.TeacherViewResponse{
		VersionID: version.ID,
		Teachers:  timetable.InvertToTeacherView(base),
	}, nil
}

// Score re-evaluates one stored version against the current priority
// configuration. The stored score is kept for comparison.
func (s *TimetableService) Score(ctx context.Context, id string) (*dto.ScoreResponse, error) {
	version, base, cfg, err := s.loadVersionEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	priorities, err := s.priorities.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load priority configs")
	}
	return &dto.ScoreResponse{
		VersionID:     version.ID,
		StoredScore:   version.Score,
		CurrentScore:  timetable.Score(base, cfg, priorities),
		ScoredEntries: len(base),
	}, nil
}

// Heatmaps computes the workload analytics of one stored version.
func (s *TimetableService) Heatmaps(ctx context.Context, id string) (*dto.HeatmapResponse, error) {
	version, base, cfg, err := s.loadVersionEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	priorities, err := s.priorities.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load priority configs")
	}
	heavyByClass := make(map[string][]string, len(priorities))
	for _, pc := range priorities {
		heavyByClass[pc.ClassID] = pc.HeavySubjects
	}
	return &dto.HeatmapResponse{
		VersionID:     version.ID,
		TeacherLoad:   timetable.TeacherLoadHeatmap(base, cfg),
		DayCongestion: timetable.DayCongestionHeatmap(base, cfg),
		ClassFatigue:  timetable.ClassFatigueHeatmap(base, cfg, heavyByClass),
		ClashRisk:     timetable.ClashRiskReport(base, cfg, teachers),
	}, nil
}

func (s *TimetableService) loadInputs(ctx context.Context) (models.SchoolConfig, []models.Teacher, []models.Class, []models.ClassPriorityConfig, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return models.SchoolConfig{}, nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school config")
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return models.SchoolConfig{}, nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	classes, err := s.classes.ListAll(ctx)
	if err != nil {
		return models.SchoolConfig{}, nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	priorities, err := s.priorities.ListAll(ctx)
	if err != nil {
		return models.SchoolConfig{}, nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load priority configs")
	}
	return cfg, teachers, classes, priorities, nil
}

func (s *TimetableService) loadVersionEntries(ctx context.Context, id string) (*models.TimetableVersion, models.Timetable, models.SchoolConfig, error) {
	version, err := s.findVersion(ctx, id)
	if err != nil {
		return nil, nil, models.SchoolConfig{}, err
	}
	base, err := version.Decode()
	if err != nil {
		return nil, nil, models.SchoolConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode timetable entries")
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, nil, models.SchoolConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school config")
	}
	return version, base, cfg, nil
}

func (s *TimetableService) findVersion(ctx context.Context, id string) (*models.TimetableVersion, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable version id is required")
	}
	version, err := s.versions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable version")
	}
	return version, nil
}

func (s *TimetableService) audit(ctx context.Context, action, target, summary string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Append(ctx, &models.ActivityEntry{Action: action, Target: target, Summary: summary}); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}

// --- Proposal cache ---

type timetableProposal struct {
	ProposalID  string
	Entries     models.Timetable
	Score       float64
	Stats       dto.SolveStats
	Seed        int64
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]timetableProposal),
	}
}

func (s *proposalStore) Save(proposal timetableProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (timetableProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return timetableProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return timetableProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// --- Async job tracking ---

const (
	jobStatusPending = "PENDING"
	jobStatusDone    = "DONE"
	jobStatusFailed  = "FAILED"
)

// JobRun is the observable state of one async solve.
type JobRun struct {
	JobID     string                         `json:"jobId"`
	Status    string                         `json:"status"`
	Error     string                         `json:"error,omitempty"`
	Result    *dto.GenerateTimetableResponse `json:"result,omitempty"`
	StartedAt time.Time                      `json:"startedAt"`
}

type jobTracker struct {
	ttl  time.Duration
	mu   sync.RWMutex
	runs map[string]*JobRun
}

func newJobTracker(ttl time.Duration) *jobTracker {
	return &jobTracker{ttl: ttl, runs: make(map[string]*JobRun)}
}

func (t *jobTracker) Start(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[jobID] = &JobRun{JobID: jobID, Status: jobStatusPending, StartedAt: time.Now().UTC()}
}

func (t *jobTracker) Complete(jobID string, resp *dto.GenerateTimetableResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if run, ok := t.runs[jobID]; ok {
		run.Status = jobStatusDone
		run.Result = resp
	}
}

func (t *jobTracker) Fail(jobID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if run, ok := t.runs[jobID]; ok {
		run.Status = jobStatusFailed
		run.Error = err.Error()
	}
}

func (t *jobTracker) Get(jobID string) (*JobRun, bool) {
	t.mu.RLock()
	run, ok := t.runs[jobID]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(run.StartedAt) > t.ttl {
		t.mu.Lock()
		delete(t.runs, jobID)
		t.mu.Unlock()
		return nil, false
	}
	return run, true
}
