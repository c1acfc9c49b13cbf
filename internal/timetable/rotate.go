package timetable

import "github.com/timegrid/timegrid-api/internal/models"

// DefaultRotationWeeks is the number of weekly variants produced when the
// caller does not ask for a specific count.
const DefaultRotationWeeks = 3

// Rotate shifts every entry's day by shiftDays modulo the configured week
// length, keeping periods and payloads unchanged. Rotating by the full week
// length reproduces the input.
func Rotate(tt models.Timetable, cfg models.SchoolConfig, shiftDays int) models.Timetable {
	numDays := len(cfg.Days)
	if numDays == 0 {
		return tt.Clone()
	}
	rotated := make(models.Timetable, len(tt))
	for ref, entry := range tt {
		shifted := ref
		shifted.Day = ((ref.Day+shiftDays)%numDays + numDays) % numDays
		rotated[shifted] = entry
	}
	return rotated
}

// Rotations produces weeks day-shifted variants: week 1 is the unchanged
// base, week k shifts by k-1 days.
func Rotations(tt models.Timetable, cfg models.SchoolConfig, weeks int) []models.Timetable {
	if weeks <= 0 {
		weeks = DefaultRotationWeeks
	}
	out := make([]models.Timetable, 0, weeks)
	out = append(out, tt.Clone())
	for shift := 1; shift < weeks; shift++ {
		out = append(out, Rotate(tt, cfg, shift))
	}
	return out
}
