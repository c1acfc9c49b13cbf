package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timegrid/timegrid-api/internal/models"
)

func rotationFixture() (models.SchoolConfig, models.Timetable) {
	cfg := testConfig()
	tt := models.Timetable{
		{ClassID: "5A", Day: 0, Period: 0}: {Subject: "Math", TeacherID: "t1"},
		{ClassID: "5A", Day: 3, Period: 2}: {Subject: "Art", TeacherID: "t2"},
		{ClassID: "5B", Day: 4, Period: 1}: {Subject: "Math", TeacherID: "t1"},
	}
	return cfg, tt
}

func TestRotateShiftsDaysKeepsPeriods(t *testing.T) {
	cfg, tt := rotationFixture()

	rotated := Rotate(tt, cfg, 1)
	require.Len(t, rotated, len(tt))
	assert.Equal(t, models.Entry{Subject: "Math", TeacherID: "t1"}, rotated[models.SlotRef{ClassID: "5A", Day: 1, Period: 0}])
	assert.Equal(t, models.Entry{Subject: "Art", TeacherID: "t2"}, rotated[models.SlotRef{ClassID: "5A", Day: 4, Period: 2}])
	// Friday wraps to Monday.
	assert.Equal(t, models.Entry{Subject: "Math", TeacherID: "t1"}, rotated[models.SlotRef{ClassID: "5B", Day: 0, Period: 1}])
}

func TestRotateFullCycleIdentity(t *testing.T) {
	cfg, tt := rotationFixture()
	assert.Equal(t, tt, Rotate(tt, cfg, len(cfg.Days)))
}

func TestRotationsFirstWeekIsIdentity(t *testing.T) {
	cfg, tt := rotationFixture()

	weeks := Rotations(tt, cfg, 3)
	require.Len(t, weeks, 3)
	assert.Equal(t, tt, weeks[0])
	assert.Equal(t, Rotate(tt, cfg, 1), weeks[1])
	assert.Equal(t, Rotate(tt, cfg, 2), weeks[2])
}

func TestInvertToTeacherView(t *testing.T) {
	tt := models.Timetable{
		{ClassID: "5A", Day: 0, Period: 0}: {Subject: "Math", TeacherID: "t1"},
		{ClassID: "5B", Day: 0, Period: 1}: {Subject: "Math", TeacherID: "t1"},
		{ClassID: "5A", Day: 1, Period: 2}: {Subject: "Art", TeacherID: "t2"},
		{ClassID: "5A", Day: 2, Period: 0}: models.FreeEntry(),
	}

	view := InvertToTeacherView(tt)
	require.Len(t, view, 2)
	assert.Equal(t, models.TeachingAssignment{ClassID: "5A", Subject: "Math"}, view["t1"][models.Slot{Day: 0, Period: 0}])
	assert.Equal(t, models.TeachingAssignment{ClassID: "5B", Subject: "Math"}, view["t1"][models.Slot{Day: 0, Period: 1}])
	assert.Equal(t, models.TeachingAssignment{ClassID: "5A", Subject: "Art"}, view["t2"][models.Slot{Day: 1, Period: 2}])
}

func TestHeatmapsSkipFreePeriods(t *testing.T) {
	cfg, tt := rotationFixture()
	tt[models.SlotRef{ClassID: "5A", Day: 0, Period: 1}] = models.FreeEntry()

	congestion := DayCongestionHeatmap(tt, cfg)
	assert.Equal(t, 1, congestion[0])
	assert.Equal(t, 0, congestion[1])

	load := TeacherLoadHeatmap(tt, cfg)
	assert.Equal(t, 1, load["t1"][0])
	assert.NotContains(t, load, "")
}

func TestClashRiskReportFlagsOverDeclaredCap(t *testing.T) {
	cfg := testConfig()
	teachers := []models.Teacher{{ID: "t1", MaxPeriodsPerDay: 1}}
	tt := models.Timetable{
		{ClassID: "5A", Day: 0, Period: 0}: {Subject: "Math", TeacherID: "t1"},
		{ClassID: "5B", Day: 0, Period: 1}: {Subject: "Math", TeacherID: "t1"},
	}

	cells := ClashRiskReport(tt, cfg, teachers)
	require.Len(t, cells, 1)
	assert.Equal(t, OverloadCell{TeacherID: "t1", Day: 0, Count: 2}, cells[0])
}
