// Package timetable implements the constraint model, exact solver and the
// pure projections (scoring, improvement, rotation, inversion) over the flat
// weekly assignment.
package timetable

import "github.com/timegrid/timegrid-api/internal/models"

// Slots derives the ordered set of schedulable (day, period) cells from the
// school configuration. Break periods carry no slot.
func Slots(cfg models.SchoolConfig) []models.Slot {
	slots := make([]models.Slot, 0, len(cfg.Days)*cfg.AvailablePeriodsPerDay())
	for d := range cfg.Days {
		for p := 0; p < cfg.PeriodsPerDay; p++ {
			if cfg.IsBreak(p) {
				continue
			}
			slots = append(slots, models.Slot{Day: d, Period: p})
		}
	}
	return slots
}
