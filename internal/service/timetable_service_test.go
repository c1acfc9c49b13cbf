package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/dto"
	"github.com/timegrid/timegrid-api/internal/models"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
)

type fakeTeacherReader struct {
	teachers []models.Teacher
}

func (f *fakeTeacherReader) ListActive(context.Context) ([]models.Teacher, error) {
	return f.teachers, nil
}

type fakeClassReader struct {
	classes []models.Class
}

func (f *fakeClassReader) ListAll(context.Context) ([]models.Class, error) {
	return f.classes, nil
}

type fakeConfigReader struct {
	cfg models.SchoolConfig
}

func (f *fakeConfigReader) Get(context.Context) (models.SchoolConfig, error) {
	return f.cfg, nil
}

type fakePriorityReader struct {
	configs []models.ClassPriorityConfig
}

func (f *fakePriorityReader) ListAll(context.Context) ([]models.ClassPriorityConfig, error) {
	return f.configs, nil
}

type fakeVersionStore struct {
	versions map[string]*models.TimetableVersion
	next     int
}

func newFakeVersionStore() *fakeVersionStore {
	return &fakeVersionStore{versions: make(map[string]*models.TimetableVersion)}
}

func (f *fakeVersionStore) CreateVersioned(_ context.Context, _ sqlx.ExtContext, v *models.TimetableVersion) error {
	f.next++
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.Version = f.next
	if v.Status == "" {
		v.Status = models.TimetableStatusDraft
	}
	stored := *v
	f.versions[v.ID] = &stored
	return nil
}

func (f *fakeVersionStore) List(context.Context) ([]models.TimetableVersion, error) {
	out := make([]models.TimetableVersion, 0, len(f.versions))
	for _, v := range f.versions {
		out = append(out, *v)
	}
	return out, nil
}

func (f *fakeVersionStore) FindByID(_ context.Context, id string) (*models.TimetableVersion, error) {
	v, ok := f.versions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *v
	return &clone, nil
}

func (f *fakeVersionStore) FindActive(context.Context) (*models.TimetableVersion, error) {
	for _, v := range f.versions {
		if v.Status == models.TimetableStatusActive {
			clone := *v
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeVersionStore) Activate(_ context.Context, id string) error {
	if _, ok := f.versions[id]; !ok {
		return sql.ErrNoRows
	}
	for _, v := range f.versions {
		if v.Status == models.TimetableStatusActive {
			v.Status = models.TimetableStatusArchived
		}
	}
	f.versions[id].Status = models.TimetableStatusActive
	return nil
}

func (f *fakeVersionStore) UpdateStatus(_ context.Context, _ sqlx.ExtContext, id string, status models.TimetableVersionStatus, meta types.JSONText) error {
	v, ok := f.versions[id]
	if !ok {
		return sql.ErrNoRows
	}
	v.Status = status
	if len(meta) > 0 {
		v.Meta = meta
	}
	return nil
}

func (f *fakeVersionStore) Delete(_ context.Context, id string) error {
	if _, ok := f.versions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.versions, id)
	return nil
}

type fakeActivity struct {
	entries []models.ActivityEntry
}

func (f *fakeActivity) Append(_ context.Context, entry *models.ActivityEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func testServiceConfig() models.SchoolConfig {
	return models.SchoolConfig{
		Days:          []string{"Monday", "Tuesday"},
		PeriodsPerDay: 3,
		BreakPeriods:  map[int]string{1: "Lunch"},
	}
}

func newTimetableServiceFixture(weekly int) (*TimetableService, *fakeVersionStore, *fakeActivity) {
	teachers := []models.Teacher{
		{ID: "t1", FullName: "T One", Subjects: []string{"Math"}, MaxPeriodsPerDay: 4, Active: true},
		{ID: "t2", FullName: "T Two", Subjects: []string{"Science"}, MaxPeriodsPerDay: 4, Active: true},
	}
	classes := []models.Class{
		{ID: "9A", Name: "9A", Subjects: []models.ClassSubject{
			{Subject: "Math", WeeklyPeriods: weekly, TeacherID: "t1"},
			{Subject: "Science", WeeklyPeriods: 2, TeacherID: "t2"},
		}},
	}
	store := newFakeVersionStore()
	activity := &fakeActivity{}
	svc := NewTimetableService(
		&fakeTeacherReader{teachers: teachers},
		&fakeClassReader{classes: classes},
		&fakeConfigReader{cfg: testServiceConfig()},
		&fakePriorityReader{},
		store,
		activity,
		nil,
		zap.NewNop(),
		TimetableServiceConfig{TimeBudget: 5 * time.Second, Iterations: 20, Seed: 7},
	)
	return svc, store, activity
}

func TestTimetableServiceGenerateSuccess(t *testing.T) {
	svc, _, _ := newTimetableServiceFixture(2)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ProposalID)
	assert.Len(t, resp.Entries, 4)
	assert.Equal(t, 4, resp.Stats.TotalDemand)
	assert.Equal(t, 1, resp.Stats.ClassesCovered)
	assert.GreaterOrEqual(t, resp.Stats.ImprovedScore, resp.Stats.InitialScore)
}

func TestTimetableServiceGenerateInfeasible(t *testing.T) {
	// 5 weekly Math periods cannot fit into 4 teaching slots.
	svc, _, _ := newTimetableServiceFixture(5)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNoSolution.Code, appErr.Code)
}

func TestTimetableServiceSaveAndActivate(t *testing.T) {
	svc, store, activity := newTimetableServiceFixture(2)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)

	record, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID, Activate: true})
	require.NoError(t, err)
	assert.Equal(t, 1, record.Version)
	assert.Equal(t, models.TimetableStatusActive, record.Status)

	stored, err := store.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusActive, stored.Status)

	decoded, err := stored.Decode()
	require.NoError(t, err)
	assert.Len(t, decoded, 4)

	require.NotEmpty(t, activity.entries)
	assert.Equal(t, "timetable.save", activity.entries[0].Action)

	// the proposal is consumed on save
	_, err = svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSaveUnknownProposal(t *testing.T) {
	svc, _, _ := newTimetableServiceFixture(2)

	_, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceActivateArchivesPrevious(t *testing.T) {
	svc, store, _ := newTimetableServiceFixture(2)

	first, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	v1, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: first.ProposalID, Activate: true})
	require.NoError(t, err)

	second, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	v2, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: second.ProposalID})
	require.NoError(t, err)

	require.NoError(t, svc.Activate(context.Background(), v2.ID))

	archived, err := store.FindByID(context.Background(), v1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusArchived, archived.Status)

	active, err := svc.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, v2.ID, active.ID)
}

func TestTimetableServiceArchiveDemotesVersion(t *testing.T) {
	svc, store, _ := newTimetableServiceFixture(2)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	record, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID, Activate: true})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(context.Background(), record.ID))

	archived, err := store.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusArchived, archived.Status)

	_, err = svc.Active(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceDeleteActiveRejected(t *testing.T) {
	svc, _, _ := newTimetableServiceFixture(2)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	record, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID, Activate: true})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), record.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceRotationsAndTeacherView(t *testing.T) {
	svc, _, _ := newTimetableServiceFixture(2)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	record, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)

	rotations, err := svc.Rotations(context.Background(), record.ID, 3)
	require.NoError(t, err)
	require.Len(t, rotations.Weeks, 3)
	for _, week := range rotations.Weeks {
		assert.Len(t, week, 4)
	}

	view, err := svc.TeacherView(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Len(t, view.Teachers, 2)
	for teacherID, slots := range view.Teachers {
		assert.Contains(t, []string{"t1", "t2"}, teacherID, fmt.Sprintf("unexpected teacher %s", teacherID))
		assert.Len(t, slots, 2)
	}
}

func TestTimetableServiceScoreMatchesStored(t *testing.T) {
	svc, _, _ := newTimetableServiceFixture(2)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	record, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)

	score, err := svc.Score(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, score.VersionID)
	assert.Equal(t, record.Score, score.StoredScore)
	assert.Equal(t, record.Score, score.CurrentScore)
	assert.Equal(t, 4, score.ScoredEntries)
}

func TestTimetableServiceHeatmaps(t *testing.T) {
	svc, _, _ := newTimetableServiceFixture(2)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	record, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)

	heatmaps, err := svc.Heatmaps(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Len(t, heatmaps.TeacherLoad, 2)
	total := 0
	for _, count := range heatmaps.DayCongestion {
		total += count
	}
	assert.Equal(t, 4, total)
}
