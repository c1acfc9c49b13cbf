package timetable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/models"
)

func testConfig() models.SchoolConfig {
	return models.SchoolConfig{
		Days:          []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		PeriodsPerDay: 4,
	}
}

func TestSlotsSkipBreaks(t *testing.T) {
	cfg := models.SchoolConfig{
		Days:          []string{"Mon", "Tue"},
		PeriodsPerDay: 4,
		BreakPeriods:  map[int]string{1: "Fruit break"},
	}
	slots := Slots(cfg)
	assert.Len(t, slots, 6)
	for _, slot := range slots {
		assert.NotEqual(t, 1, slot.Period)
	}
}

func TestBuildModelRelaxesDailyCap(t *testing.T) {
	cfg := testConfig()
	teachers := []models.Teacher{
		{ID: "t1", Subjects: []string{"Math"}, MaxPeriodsPerDay: 1},
	}
	classes := []models.Class{
		{ID: "5A", Subjects: []models.ClassSubject{{Subject: "Math", WeeklyPeriods: 10, TeacherID: "t1"}}},
	}

	m := BuildModel(cfg, teachers, classes)
	// 10 periods over 5 days need 2 per day regardless of the declared 1.
	assert.Equal(t, 2, m.Caps["t1"])
}

func TestBuildModelClampsCapToAvailablePeriods(t *testing.T) {
	cfg := models.SchoolConfig{
		Days:          []string{"Mon", "Tue"},
		PeriodsPerDay: 4,
		BreakPeriods:  map[int]string{0: "Assembly"},
	}
	teachers := []models.Teacher{
		{ID: "t1", Subjects: []string{"Math"}, MaxPeriodsPerDay: 6},
	}
	m := BuildModel(cfg, teachers, nil)
	assert.Equal(t, 3, m.Caps["t1"])
}

func TestSolveSingleSubjectDemand(t *testing.T) {
	cfg := testConfig()
	teachers := []models.Teacher{
		{ID: "t1", Subjects: []string{"Math"}, MaxPeriodsPerDay: 4},
	}
	classes := []models.Class{
		{ID: "5A", Subjects: []models.ClassSubject{{Subject: "Math", WeeklyPeriods: 2, TeacherID: "t1"}}},
	}

	solver := NewBacktrackingSolver(5*time.Second, zap.NewNop())
	tt, err := solver.Solve(context.Background(), BuildModel(cfg, teachers, classes))
	require.NoError(t, err)

	require.Len(t, tt, 2)
	seen := make(map[models.Slot]bool)
	for ref, entry := range tt {
		assert.Equal(t, "5A", ref.ClassID)
		assert.Equal(t, "Math", entry.Subject)
		assert.Equal(t, "t1", entry.TeacherID)
		slot := models.Slot{Day: ref.Day, Period: ref.Period}
		assert.False(t, seen[slot], "duplicate slot %v", slot)
		seen[slot] = true
	}
	for _, days := range TeacherLoadHeatmap(tt, cfg) {
		for _, count := range days {
			assert.LessOrEqual(t, count, 4)
		}
	}
}

func TestSolveSatisfiesAllConstraintFamilies(t *testing.T) {
	cfg := models.SchoolConfig{
		Days:          []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		PeriodsPerDay: 6,
		BreakPeriods:  map[int]string{3: "Lunch"},
	}
	teachers := []models.Teacher{
		{ID: "t1", Subjects: []string{"Math", "Physics"}, MaxPeriodsPerDay: 5},
		{ID: "t2", Subjects: []string{"English"}, MaxPeriodsPerDay: 5},
		{ID: "t3", Subjects: []string{"History", "Geography"}, MaxPeriodsPerDay: 5},
	}
	classes := []models.Class{
		{ID: "5A", Subjects: []models.ClassSubject{
			{Subject: "Math", WeeklyPeriods: 5, TeacherID: "t1"},
			{Subject: "English", WeeklyPeriods: 4, TeacherID: "t2"},
			{Subject: "History", WeeklyPeriods: 3, TeacherID: "t3"},
		}},
		{ID: "5B", Subjects: []models.ClassSubject{
			{Subject: "Physics", WeeklyPeriods: 4, TeacherID: "t1"},
			{Subject: "English", WeeklyPeriods: 4, TeacherID: "t2"},
			{Subject: "Geography", WeeklyPeriods: 3, TeacherID: "t3"},
		}},
	}

	m := BuildModel(cfg, teachers, classes)
	solver := NewBacktrackingSolver(10*time.Second, zap.NewNop())
	tt, err := solver.Solve(context.Background(), m)
	require.NoError(t, err)

	// Demand: exact weekly counts.
	counts := make(map[string]map[string]int)
	for ref, entry := range tt {
		assert.False(t, cfg.IsBreak(ref.Period), "entry on break period %d", ref.Period)
		if counts[ref.ClassID] == nil {
			counts[ref.ClassID] = make(map[string]int)
		}
		counts[ref.ClassID][entry.Subject]++
	}
	for _, c := range classes {
		for _, cs := range c.Subjects {
			assert.Equal(t, cs.WeeklyPeriods, counts[c.ID][cs.Subject], "%s/%s", c.ID, cs.Subject)
		}
	}

	// Teacher exclusivity.
	teacherSlots := make(map[string]map[models.Slot]string)
	for ref, entry := range tt {
		slot := models.Slot{Day: ref.Day, Period: ref.Period}
		if teacherSlots[entry.TeacherID] == nil {
			teacherSlots[entry.TeacherID] = make(map[models.Slot]string)
		}
		other, clash := teacherSlots[entry.TeacherID][slot]
		assert.False(t, clash, "teacher %s double-booked at %v (%s vs %s)", entry.TeacherID, slot, other, ref.ClassID)
		teacherSlots[entry.TeacherID][slot] = ref.ClassID
	}

	// Daily caps.
	for teacherID, days := range TeacherLoadHeatmap(tt, cfg) {
		for d, count := range days {
			assert.LessOrEqual(t, count, m.Caps[teacherID], "teacher %s day %d", teacherID, d)
		}
	}
}

func TestSolveProvenInfeasible(t *testing.T) {
	cfg := models.SchoolConfig{Days: []string{"Mon"}, PeriodsPerDay: 2}
	teachers := []models.Teacher{
		{ID: "t1", Subjects: []string{"Math"}, MaxPeriodsPerDay: 2},
	}
	classes := []models.Class{
		{ID: "5A", Subjects: []models.ClassSubject{{Subject: "Math", WeeklyPeriods: 3, TeacherID: "t1"}}},
	}

	solver := NewBacktrackingSolver(2*time.Second, zap.NewNop())
	tt, err := solver.Solve(context.Background(), BuildModel(cfg, teachers, classes))
	require.ErrorIs(t, err, ErrNoSolution)
	assert.Nil(t, tt)
}

func TestSolveTeacherContentionInfeasible(t *testing.T) {
	// Two classes demand the same teacher for every available slot plus one.
	cfg := models.SchoolConfig{Days: []string{"Mon", "Tue"}, PeriodsPerDay: 2}
	teachers := []models.Teacher{
		{ID: "t1", Subjects: []string{"Math"}, MaxPeriodsPerDay: 2},
	}
	classes := []models.Class{
		{ID: "5A", Subjects: []models.ClassSubject{{Subject: "Math", WeeklyPeriods: 3, TeacherID: "t1"}}},
		{ID: "5B", Subjects: []models.ClassSubject{{Subject: "Math", WeeklyPeriods: 2, TeacherID: "t1"}}},
	}

	solver := NewBacktrackingSolver(2*time.Second, zap.NewNop())
	_, err := solver.Solve(context.Background(), BuildModel(cfg, teachers, classes))
	require.ErrorIs(t, err, ErrNoSolution)
}
