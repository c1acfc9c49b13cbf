package timetable

import "github.com/timegrid/timegrid-api/internal/models"

// TeacherLoadHeatmap counts teaching periods per teacher per day.
func TeacherLoadHeatmap(tt models.Timetable, cfg models.SchoolConfig) map[string]map[int]int {
	load := make(map[string]map[int]int)
	for ref, entry := range tt {
		if cfg.IsBreak(ref.Period) || entry.TeacherID == "" {
			continue
		}
		if load[entry.TeacherID] == nil {
			load[entry.TeacherID] = make(map[int]int)
		}
		load[entry.TeacherID][ref.Day]++
	}
	return load
}

// DayCongestionHeatmap totals teaching periods across all classes per day.
func DayCongestionHeatmap(tt models.Timetable, cfg models.SchoolConfig) map[int]int {
	totals := make(map[int]int, len(cfg.Days))
	for d := range cfg.Days {
		totals[d] = 0
	}
	for ref, entry := range tt {
		if cfg.IsBreak(ref.Period) || entry.Subject == "" || entry.IsFree() {
			continue
		}
		totals[ref.Day]++
	}
	return totals
}

// ClassFatigueHeatmap estimates per-period difficulty density for each class:
// the share of heavy subjects taught in that period across the week, capped
// at 1.0 (three or more heavy placements saturate the cell).
func ClassFatigueHeatmap(tt models.Timetable, cfg models.SchoolConfig, heavyByClass map[string][]string) map[string]map[int]float64 {
	perPeriod := make(map[string]map[int][]string)
	for ref, entry := range tt {
		if cfg.IsBreak(ref.Period) || entry.Subject == "" || entry.IsFree() {
			continue
		}
		if perPeriod[ref.ClassID] == nil {
			perPeriod[ref.ClassID] = make(map[int][]string)
		}
		perPeriod[ref.ClassID][ref.Period] = append(perPeriod[ref.ClassID][ref.Period], entry.Subject)
	}

	result := make(map[string]map[int]float64, len(perPeriod))
	for classID, periods := range perPeriod {
		heavy := heavyByClass[classID]
		result[classID] = make(map[int]float64, len(periods))
		for p, subjects := range periods {
			count := 0
			for _, s := range subjects {
				if contains(heavy, s) {
					count++
				}
			}
			density := float64(count) / 3.0
			if density > 1.0 {
				density = 1.0
			}
			result[classID][p] = density
		}
	}
	return result
}

// OverloadCell flags a teacher-day whose assigned load exceeds the declared cap.
type OverloadCell struct {
	TeacherID string `json:"teacher_id"`
	Day       int    `json:"day"`
	Count     int    `json:"count"`
}

// ClashRiskReport lists teacher-day cells above the declared daily maximum.
// An overload here is legal (the effective cap may have been relaxed) but
// worth surfacing to the planner.
func ClashRiskReport(tt models.Timetable, cfg models.SchoolConfig, teachers []models.Teacher) []OverloadCell {
	declared := make(map[string]int, len(teachers))
	for _, t := range teachers {
		declared[t.ID] = t.MaxPeriodsPerDay
	}
	var cells []OverloadCell
	for teacherID, days := range TeacherLoadHeatmap(tt, cfg) {
		limit, ok := declared[teacherID]
		if !ok {
			continue
		}
		for d, count := range days {
			if count > limit {
				cells = append(cells, OverloadCell{TeacherID: teacherID, Day: d, Count: count})
			}
		}
	}
	return cells
}
