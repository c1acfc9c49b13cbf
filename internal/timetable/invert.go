package timetable

import "github.com/timegrid/timegrid-api/internal/models"

// InvertToTeacherView re-keys the class timetable into the per-teacher
// perspective. Free-period sentinels carry no teacher and are skipped.
// No validation: upstream guarantees teacher exclusivity, so a duplicate
// (teacher, day, period) silently overwrites.
func InvertToTeacherView(tt models.Timetable) models.TeacherView {
	view := make(models.TeacherView)
	for ref, entry := range tt {
		if entry.TeacherID == "" {
			continue
		}
		if view[entry.TeacherID] == nil {
			view[entry.TeacherID] = make(map[models.Slot]models.TeachingAssignment)
		}
		view[entry.TeacherID][models.Slot{Day: ref.Day, Period: ref.Period}] = models.TeachingAssignment{
			ClassID: ref.ClassID,
			Subject: entry.Subject,
		}
	}
	return view
}
