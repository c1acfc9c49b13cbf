package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/dto"
	"github.com/timegrid/timegrid-api/internal/models"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
)

type fakeStateStore struct {
	states map[string]models.ScenarioState
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]models.ScenarioState)}
}

func (f *fakeStateStore) Get(_ context.Context, ownerID string) (models.ScenarioState, error) {
	if state, ok := f.states[ownerID]; ok {
		return state, nil
	}
	return models.DefaultScenarioState(), nil
}

func (f *fakeStateStore) Save(_ context.Context, ownerID string, state *models.ScenarioState) error {
	f.states[ownerID] = *state
	return nil
}

func (f *fakeStateStore) Reset(_ context.Context, ownerID string) error {
	delete(f.states, ownerID)
	return nil
}

type fakeCache struct {
	values map[string][]byte
	hits   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := f.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	f.hits++
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.values[key] = raw
	return nil
}

func (f *fakeCache) DeleteByPattern(context.Context, string) error {
	f.values = make(map[string][]byte)
	return nil
}

func scenarioFixtureTimetable() models.Timetable {
	return models.Timetable{
		{ClassID: "9A", Day: 0, Period: 0}: {Subject: "Math", TeacherID: "t1"},
		{ClassID: "9A", Day: 0, Period: 2}: {Subject: "Science", TeacherID: "t2"},
		{ClassID: "9B", Day: 0, Period: 0}: {Subject: "Science", TeacherID: "t2"},
		{ClassID: "9B", Day: 0, Period: 2}: {Subject: "Math", TeacherID: "t1"},
	}
}

func newScenarioServiceFixture(t *testing.T) (*ScenarioService, *fakeStateStore, *fakeCache, string) {
	t.Helper()

	entries, err := json.Marshal(scenarioFixtureTimetable())
	require.NoError(t, err)

	store := newFakeVersionStore()
	version := &models.TimetableVersion{Entries: entries, Status: models.TimetableStatusActive}
	require.NoError(t, store.CreateVersioned(context.Background(), nil, version))

	teachers := []models.Teacher{
		{ID: "t1", FullName: "T One", Subjects: []string{"Math"}, MaxPeriodsPerDay: 4, Active: true},
		{ID: "t2", FullName: "T Two", Subjects: []string{"Science"}, MaxPeriodsPerDay: 4, Active: true},
		{ID: "t3", FullName: "T Three", Subjects: []string{"Math", "Science"}, MaxPeriodsPerDay: 4, Active: true},
	}
	classes := []models.Class{
		{ID: "9A", Name: "9A"},
		{ID: "9B", Name: "9B"},
	}

	states := newFakeStateStore()
	cache := newFakeCache()
	svc := NewScenarioService(
		states,
		store,
		&fakeTeacherReader{teachers: teachers},
		&fakeClassReader{classes: classes},
		&fakeConfigReader{cfg: testServiceConfig()},
		cache,
		time.Minute,
		nil,
		zap.NewNop(),
	)
	return svc, states, cache, version.ID
}

func TestScenarioServiceToggleRequiresParams(t *testing.T) {
	svc, _, _, _ := newScenarioServiceFixture(t)

	_, err := svc.Toggle(context.Background(), "u-1", dto.ScenarioToggleRequest{
		Name:   models.ScenarioTeacherAbsent,
		Active: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScenarioServiceToggleUnknownNameRejected(t *testing.T) {
	svc, _, _, _ := newScenarioServiceFixture(t)

	_, err := svc.Toggle(context.Background(), "u-1", dto.ScenarioToggleRequest{Name: "snow_day", Active: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScenarioServiceTogglePersistsState(t *testing.T) {
	svc, states, _, _ := newScenarioServiceFixture(t)

	resp, err := svc.Toggle(context.Background(), "u-1", dto.ScenarioToggleRequest{
		Name:      models.ScenarioTeacherAbsent,
		Active:    true,
		TeacherID: "t1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Scenarios[models.ScenarioTeacherAbsent].Active)

	stored := states.states["u-1"]
	assert.Equal(t, "t1", stored.Scenarios[models.ScenarioTeacherAbsent].TeacherID)
}

func TestScenarioServiceSelectDayOutOfRange(t *testing.T) {
	svc, _, _, _ := newScenarioServiceFixture(t)

	_, err := svc.SelectDay(context.Background(), "u-1", dto.SelectDayRequest{Day: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScenarioServiceResolveSubstitutesAbsentTeacher(t *testing.T) {
	svc, _, _, versionID := newScenarioServiceFixture(t)

	_, err := svc.Toggle(context.Background(), "u-1", dto.ScenarioToggleRequest{
		Name:      models.ScenarioTeacherAbsent,
		Active:    true,
		TeacherID: "t1",
	})
	require.NoError(t, err)

	resp, err := svc.Resolve(context.Background(), "u-1", versionID)
	require.NoError(t, err)
	assert.False(t, resp.Cached)

	// t3 covers Math and is free in both slots, so both of t1's periods
	// get reassigned rather than dropped.
	for ref, entry := range resp.Entries {
		if ref.Day != 0 {
			continue
		}
		assert.NotEqual(t, "t1", entry.TeacherID)
	}
	assert.Equal(t, "t3", resp.Entries[models.SlotRef{ClassID: "9A", Day: 0, Period: 0}].TeacherID)
}

func TestScenarioServiceResolveUsesCache(t *testing.T) {
	svc, _, cache, versionID := newScenarioServiceFixture(t)

	first, err := svc.Resolve(context.Background(), "u-1", versionID)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Resolve(context.Background(), "u-1", versionID)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Entries, second.Entries)
}

func TestScenarioServiceResolveDefaultsToActiveVersion(t *testing.T) {
	svc, _, _, versionID := newScenarioServiceFixture(t)

	resp, err := svc.Resolve(context.Background(), "u-1", "")
	require.NoError(t, err)
	assert.Equal(t, versionID, resp.VersionID)
	assert.Len(t, resp.Entries, 4)
}

func TestScenarioServiceResetClearsState(t *testing.T) {
	svc, states, _, _ := newScenarioServiceFixture(t)

	_, err := svc.Toggle(context.Background(), "u-1", dto.ScenarioToggleRequest{
		Name:       models.ScenarioShortenedDay,
		Active:     true,
		MaxPeriods: 2,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Reset(context.Background(), "u-1"))
	_, ok := states.states["u-1"]
	assert.False(t, ok)
}
