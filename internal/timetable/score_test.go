package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timegrid/timegrid-api/internal/models"
)

func TestScoreEarlyBonus(t *testing.T) {
	cfg := testConfig()
	tt := models.Timetable{
		{ClassID: "5A", Day: 0, Period: 0}: {Subject: "Math", TeacherID: "t1"},
		{ClassID: "5A", Day: 0, Period: 2}: {Subject: "Math", TeacherID: "t1"},
		{ClassID: "5A", Day: 1, Period: 3}: {Subject: "Math", TeacherID: "t1"},
	}
	priorities := []models.ClassPriorityConfig{
		{ClassID: "5A", PrioritySubjects: []string{"Math"}},
	}
	// Periods 0, 2 and 3 earn 3, 1 and 0.
	assert.Equal(t, 4.0, Score(tt, cfg, priorities))
}

func TestScoreHeavyAdjacencyPenalty(t *testing.T) {
	cfg := testConfig()
	tt := models.Timetable{
		{ClassID: "5A", Day: 0, Period: 1}: {Subject: "Physics", TeacherID: "t1"},
		{ClassID: "5A", Day: 0, Period: 2}: {Subject: "Chemistry", TeacherID: "t2"},
		{ClassID: "5A", Day: 1, Period: 0}: {Subject: "Physics", TeacherID: "t1"},
		{ClassID: "5A", Day: 1, Period: 2}: {Subject: "Chemistry", TeacherID: "t2"},
	}
	priorities := []models.ClassPriorityConfig{
		{ClassID: "5A", HeavySubjects: []string{"Physics", "Chemistry"}},
	}
	// Only day 0 has consecutive heavy periods.
	assert.Equal(t, -2.0, Score(tt, cfg, priorities))
}

func TestScoreAdjacencySkipsBreakGap(t *testing.T) {
	cfg := models.SchoolConfig{
		Days:          []string{"Mon"},
		PeriodsPerDay: 4,
		BreakPeriods:  map[int]string{1: "Lunch"},
	}
	tt := models.Timetable{
		{ClassID: "5A", Day: 0, Period: 0}: {Subject: "Physics", TeacherID: "t1"},
		{ClassID: "5A", Day: 0, Period: 2}: {Subject: "Chemistry", TeacherID: "t2"},
	}
	priorities := []models.ClassPriorityConfig{
		{ClassID: "5A", HeavySubjects: []string{"Physics", "Chemistry"}},
	}
	// Periods 0 and 2 are not consecutive indices, so no penalty.
	assert.Equal(t, 0.0, Score(tt, cfg, priorities))
}

func TestScoreWithoutPriorityConfig(t *testing.T) {
	cfg := testConfig()
	tt := models.Timetable{
		{ClassID: "5A", Day: 0, Period: 0}: {Subject: "Math", TeacherID: "t1"},
	}
	assert.Equal(t, 0.0, Score(tt, cfg, nil))
}
