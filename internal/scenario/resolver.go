// Package scenario resolves transient what-if disruptions against a committed
// timetable. Resolution always works on an owned copy: the base is never
// touched, and resolving the same state twice yields identical output.
package scenario

import (
	"sort"

	"github.com/timegrid/timegrid-api/internal/models"
)

// Resolve applies the active disruption rules, in fixed order, to a deep copy
// of the base timetable. Every rule is scoped to the selected day; rules with
// parameters referencing unknown teachers, classes or slots no-op rather than
// failing the whole resolution.
func Resolve(
	base models.Timetable,
	cfg models.SchoolConfig,
	teachers []models.Teacher,
	classes []models.Class,
	state models.ScenarioState,
) models.Timetable {
	resolved := base.Clone()
	day := state.SelectedDay

	if toggle := state.Toggle(models.ScenarioTeacherAbsent); toggle.Active && toggle.TeacherID != "" {
		applyTeacherAbsent(resolved, day, toggle.TeacherID, teachers)
	}

	if toggle := state.Toggle(models.ScenarioLabUnavailable); toggle.Active {
		labSet := make(map[string]struct{}, len(toggle.LabSubjects))
		for _, s := range toggle.LabSubjects {
			if s != "" {
				labSet[s] = struct{}{}
			}
		}
		for _, ref := range dayRefs(resolved, day) {
			if _, hit := labSet[resolved[ref].Subject]; hit {
				resolved[ref] = models.FreeEntry()
			}
		}
	}

	if toggle := state.Toggle(models.ScenarioShortenedDay); toggle.Active {
		for _, ref := range dayRefs(resolved, day) {
			if ref.Period >= toggle.MaxPeriods {
				resolved[ref] = models.FreeEntry()
			}
		}
	}

	if toggle := state.Toggle(models.ScenarioEmergencyFree); toggle.Active && toggle.ClassID != "" {
		ref := models.SlotRef{ClassID: toggle.ClassID, Day: day, Period: toggle.Period}
		if _, ok := resolved[ref]; ok {
			resolved[ref] = models.FreeEntry()
		}
	}

	if toggle := state.Toggle(models.ScenarioSubstitute); toggle.Active &&
		toggle.OriginalTeacher != "" && toggle.SubstituteTeacher != "" {
		for _, ref := range dayRefs(resolved, day) {
			entry := resolved[ref]
			if entry.TeacherID == toggle.OriginalTeacher {
				entry.TeacherID = toggle.SubstituteTeacher
				resolved[ref] = entry
			}
		}
	}

	return resolved
}

// applyTeacherAbsent reassigns every slot of the absent teacher on the day to
// the first qualifying substitute in roster order, checking occupancy against
// the in-progress resolved state. Slots with no substitute fall back to a
// free period.
func applyTeacherAbsent(resolved models.Timetable, day int, absentID string, teachers []models.Teacher) {
	for _, ref := range dayRefs(resolved, day) {
		entry := resolved[ref]
		if entry.TeacherID != absentID {
			continue
		}

		substitute := ""
		for _, candidate := range teachers {
			if candidate.ID == absentID || !candidate.Teaches(entry.Subject) {
				continue
			}
			if teacherBusyAt(resolved, candidate.ID, day, ref.Period) {
				continue
			}
			substitute = candidate.ID
			break
		}

		if substitute != "" {
			entry.TeacherID = substitute
			resolved[ref] = entry
		} else {
			resolved[ref] = models.FreeEntry()
		}
	}
}

func teacherBusyAt(tt models.Timetable, teacherID string, day, period int) bool {
	for ref, entry := range tt {
		if ref.Day == day && ref.Period == period && entry.TeacherID == teacherID {
			return true
		}
	}
	return false
}

// dayRefs snapshots the keys for one day in deterministic order so rules can
// mutate the map while iterating.
func dayRefs(tt models.Timetable, day int) []models.SlotRef {
	var refs []models.SlotRef
	for ref := range tt {
		if ref.Day == day {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ClassID != refs[j].ClassID {
			return refs[i].ClassID < refs[j].ClassID
		}
		return refs[i].Period < refs[j].Period
	})
	return refs
}
