package timetable

import (
	"sort"

	"github.com/timegrid/timegrid-api/internal/models"
)

const heavyAdjacencyPenalty = 2.0

// Score rates a timetable against the per-class priority configuration.
// Priority subjects earn max(0, 3-period) for early placement; each adjacent
// pair of heavy-subject periods within one class-day costs 2.0. Classes
// without a priority config contribute nothing.
func Score(tt models.Timetable, cfg models.SchoolConfig, priorities []models.ClassPriorityConfig) float64 {
	byClass := make(map[string]models.ClassPriorityConfig, len(priorities))
	for _, pc := range priorities {
		byClass[pc.ClassID] = pc
	}

	score := 0.0
	for ref, entry := range tt {
		pc, ok := byClass[ref.ClassID]
		if !ok {
			continue
		}
		if contains(pc.PrioritySubjects, entry.Subject) {
			if bonus := 3 - ref.Period; bonus > 0 {
				score += float64(bonus)
			}
		}
	}

	for _, classID := range tt.Classes() {
		pc, ok := byClass[classID]
		if !ok || len(pc.HeavySubjects) == 0 {
			continue
		}
		for d := range cfg.Days {
			var heavyPeriods []int
			for p := 0; p < cfg.PeriodsPerDay; p++ {
				if cfg.IsBreak(p) {
					continue
				}
				entry, ok := tt[models.SlotRef{ClassID: classID, Day: d, Period: p}]
				if ok && contains(pc.HeavySubjects, entry.Subject) {
					heavyPeriods = append(heavyPeriods, p)
				}
			}
			sort.Ints(heavyPeriods)
			for i := 0; i+1 < len(heavyPeriods); i++ {
				if heavyPeriods[i+1] == heavyPeriods[i]+1 {
					score -= heavyAdjacencyPenalty
				}
			}
		}
	}
	return score
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
