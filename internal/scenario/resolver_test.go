package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timegrid/timegrid-api/internal/models"
)

func resolverFixture() (models.SchoolConfig, []models.Teacher, []models.Class, models.Timetable) {
	cfg := models.SchoolConfig{
		Days:          []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		PeriodsPerDay: 4,
	}
	teachers := []models.Teacher{
		{ID: "t1", Subjects: []string{"Math"}},
		{ID: "t2", Subjects: []string{"Math", "Physics"}},
		{ID: "t3", Subjects: []string{"English"}},
	}
	classes := []models.Class{
		{ID: "5A"}, {ID: "5B"},
	}
	base := models.Timetable{
		{ClassID: "5A", Day: 0, Period: 0}: {Subject: "Math", TeacherID: "t1"},
		{ClassID: "5A", Day: 0, Period: 1}: {Subject: "English", TeacherID: "t3"},
		{ClassID: "5A", Day: 0, Period: 2}: {Subject: "Physics", TeacherID: "t2"},
		{ClassID: "5A", Day: 0, Period: 3}: {Subject: "Math", TeacherID: "t1"},
		{ClassID: "5B", Day: 0, Period: 0}: {Subject: "Physics", TeacherID: "t2"},
		{ClassID: "5A", Day: 1, Period: 0}: {Subject: "Math", TeacherID: "t1"},
	}
	return cfg, teachers, classes, base
}

func activeState(day int, name string, toggle models.ScenarioToggle) models.ScenarioState {
	toggle.Active = true
	return models.ScenarioState{
		SelectedDay: day,
		Scenarios:   map[string]models.ScenarioToggle{name: toggle},
	}
}

func TestResolveNeverMutatesBase(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()
	snapshot := base.Clone()

	_ = Resolve(base, cfg, teachers, classes, activeState(0, models.ScenarioTeacherAbsent, models.ScenarioToggle{TeacherID: "t1"}))
	require.Equal(t, snapshot, base)
}

func TestResolveDeterministic(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()
	state := activeState(0, models.ScenarioTeacherAbsent, models.ScenarioToggle{TeacherID: "t1"})

	first := Resolve(base, cfg, teachers, classes, state)
	second := Resolve(base, cfg, teachers, classes, state)
	assert.Equal(t, first, second)
}

func TestTeacherAbsentPicksFirstQualifyingSubstitute(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()

	resolved := Resolve(base, cfg, teachers, classes,
		activeState(0, models.ScenarioTeacherAbsent, models.ScenarioToggle{TeacherID: "t1"}))

	// Period 0: t2 already teaches 5B, so 5A's Math goes free.
	assert.True(t, resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 0}].IsFree())
	// Period 3: t2 is free and teaches Math, so it substitutes.
	assert.Equal(t, "t2", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 3}].TeacherID)
	assert.Equal(t, "Math", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 3}].Subject)
	// Other days untouched.
	assert.Equal(t, "t1", resolved[models.SlotRef{ClassID: "5A", Day: 1, Period: 0}].TeacherID)
}

func TestTeacherAbsentEveryQualifyingSubstituteBusy(t *testing.T) {
	cfg := models.SchoolConfig{Days: []string{"Mon"}, PeriodsPerDay: 2}
	teachers := []models.Teacher{
		{ID: "T", Subjects: []string{"Math"}},
		{ID: "S", Subjects: []string{"Math"}},
	}
	// S is occupied in every slot T holds on day 0.
	base := models.Timetable{
		{ClassID: "5A", Day: 0, Period: 0}: {Subject: "Math", TeacherID: "T"},
		{ClassID: "5A", Day: 0, Period: 1}: {Subject: "Math", TeacherID: "T"},
		{ClassID: "5B", Day: 0, Period: 0}: {Subject: "Math", TeacherID: "S"},
		{ClassID: "5B", Day: 0, Period: 1}: {Subject: "Math", TeacherID: "S"},
	}

	resolved := Resolve(base, cfg, teachers, nil,
		activeState(0, models.ScenarioTeacherAbsent, models.ScenarioToggle{TeacherID: "T"}))

	for _, period := range []int{0, 1} {
		entry := resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: period}]
		assert.True(t, entry.IsFree(), "period %d should be free", period)
		assert.Empty(t, entry.TeacherID)
	}
}

func TestLabUnavailableFreesMatchingSubjects(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()

	resolved := Resolve(base, cfg, teachers, classes,
		activeState(0, models.ScenarioLabUnavailable, models.ScenarioToggle{LabSubjects: []string{"Physics"}}))

	assert.True(t, resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 2}].IsFree())
	assert.True(t, resolved[models.SlotRef{ClassID: "5B", Day: 0, Period: 0}].IsFree())
	assert.Equal(t, "Math", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 0}].Subject)
}

func TestShortenedDayFreesLatePeriods(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()

	resolved := Resolve(base, cfg, teachers, classes,
		activeState(0, models.ScenarioShortenedDay, models.ScenarioToggle{MaxPeriods: 2}))

	assert.Equal(t, "Math", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 0}].Subject)
	assert.Equal(t, "English", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 1}].Subject)
	assert.True(t, resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 2}].IsFree())
	assert.True(t, resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 3}].IsFree())
}

func TestEmergencyFreeTargetsSingleSlot(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()

	resolved := Resolve(base, cfg, teachers, classes,
		activeState(0, models.ScenarioEmergencyFree, models.ScenarioToggle{ClassID: "5A", Period: 1}))

	assert.True(t, resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 1}].IsFree())
	assert.Equal(t, "Math", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 0}].Subject)
}

func TestEmergencyFreeUnknownSlotNoOps(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()

	resolved := Resolve(base, cfg, teachers, classes,
		activeState(0, models.ScenarioEmergencyFree, models.ScenarioToggle{ClassID: "9Z", Period: 0}))
	assert.Equal(t, base, resolved)
}

func TestSubstituteRebindsAllSlots(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()

	resolved := Resolve(base, cfg, teachers, classes,
		activeState(0, models.ScenarioSubstitute, models.ScenarioToggle{OriginalTeacher: "t1", SubstituteTeacher: "t9"}))

	assert.Equal(t, "t9", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 0}].TeacherID)
	assert.Equal(t, "t9", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 3}].TeacherID)
	// Subject preserved, other days untouched.
	assert.Equal(t, "Math", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 0}].Subject)
	assert.Equal(t, "t1", resolved[models.SlotRef{ClassID: "5A", Day: 1, Period: 0}].TeacherID)
}

func TestSubstituteRunsAfterTeacherAbsent(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()
	state := models.ScenarioState{
		SelectedDay: 0,
		Scenarios: map[string]models.ScenarioToggle{
			models.ScenarioTeacherAbsent: {Active: true, TeacherID: "t1"},
			models.ScenarioSubstitute:    {Active: true, OriginalTeacher: "t2", SubstituteTeacher: "t7"},
		},
	}

	resolved := Resolve(base, cfg, teachers, classes, state)

	// Rule 1 placed t2 into 5A period 3; rule 5 then rebinds every t2 slot.
	assert.Equal(t, "t7", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 3}].TeacherID)
	assert.Equal(t, "t7", resolved[models.SlotRef{ClassID: "5A", Day: 0, Period: 2}].TeacherID)
	assert.Equal(t, "t7", resolved[models.SlotRef{ClassID: "5B", Day: 0, Period: 0}].TeacherID)
}

func TestInactiveScenariosLeaveBaseIdentical(t *testing.T) {
	cfg, teachers, classes, base := resolverFixture()
	state := models.ScenarioState{
		SelectedDay: 0,
		Scenarios: map[string]models.ScenarioToggle{
			models.ScenarioTeacherAbsent: {Active: false, TeacherID: "t1"},
		},
	}

	resolved := Resolve(base, cfg, teachers, classes, state)
	assert.Equal(t, base, resolved)
}
