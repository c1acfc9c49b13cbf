package timetable

import (
	"math"

	"github.com/timegrid/timegrid-api/internal/models"
)

// Demand is one (class, subject) requirement: how many weekly slots the pair
// must receive and which teacher delivers them.
type Demand struct {
	ClassID   string
	Subject   string
	TeacherID string
	Count     int
}

// Model is the decision space handed to the solver: the schedulable slots,
// the exact weekly demands and the effective per-day cap for every teacher.
type Model struct {
	Config  models.SchoolConfig
	Slots   []models.Slot
	Demands []Demand
	// Caps holds the effective daily limit per teacher id. The declared
	// maximum is raised to ceil(weeklyLoad/numDays) when the teacher's
	// total load cannot fit under it, then clamped to the schedulable
	// periods per day. A declared cap that is merely too tight is a
	// configuration mistake, not grounds for infeasibility.
	Caps map[string]int
}

// BuildModel assembles the constraint model from the school grid, the teacher
// roster and the class curricula.
func BuildModel(cfg models.SchoolConfig, teachers []models.Teacher, classes []models.Class) *Model {
	m := &Model{
		Config: cfg,
		Slots:  Slots(cfg),
		Caps:   make(map[string]int, len(teachers)),
	}

	weeklyLoad := make(map[string]int)
	for _, c := range classes {
		for _, cs := range c.Subjects {
			m.Demands = append(m.Demands, Demand{
				ClassID:   c.ID,
				Subject:   cs.Subject,
				TeacherID: cs.TeacherID,
				Count:     cs.WeeklyPeriods,
			})
			weeklyLoad[cs.TeacherID] += cs.WeeklyPeriods
		}
	}

	numDays := len(cfg.Days)
	available := cfg.AvailablePeriodsPerDay()
	for _, t := range teachers {
		limit := t.MaxPeriodsPerDay
		if numDays > 0 {
			required := int(math.Ceil(float64(weeklyLoad[t.ID]) / float64(numDays)))
			if required > limit {
				limit = required
			}
		}
		if available > 0 && limit > available {
			limit = available
		}
		m.Caps[t.ID] = limit
	}
	return m
}

// TotalDemand returns the summed weekly period count across all demands.
func (m *Model) TotalDemand() int {
	total := 0
	for _, d := range m.Demands {
		total += d.Count
	}
	return total
}

type demandKey struct {
	ClassID string
	Subject string
}

// DemandByPair returns required weekly counts keyed by (class, subject).
func (m *Model) DemandByPair() map[demandKey]int {
	out := make(map[demandKey]int, len(m.Demands))
	for _, d := range m.Demands {
		out[demandKey{ClassID: d.ClassID, Subject: d.Subject}] = d.Count
	}
	return out
}
