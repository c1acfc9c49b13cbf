package timetable

import (
	"math/rand"
	"sort"

	"github.com/timegrid/timegrid-api/internal/models"
)

// DefaultImproveIterations bounds the local search when no budget is configured.
const DefaultImproveIterations = 100

// Improve runs a bounded greedy hill-climb over the timetable: each iteration
// picks one class at random, swaps the payloads of two of its slots and keeps
// the candidate only when it is valid and scores strictly higher. Invalid
// swaps waste the iteration rather than being retried. The rand source is
// injected so callers can fix a seed for reproducible runs.
func Improve(
	base models.Timetable,
	cfg models.SchoolConfig,
	classes []models.Class,
	priorities []models.ClassPriorityConfig,
	iterations int,
	rng *rand.Rand,
) models.Timetable {
	if iterations <= 0 {
		iterations = DefaultImproveIterations
	}

	required := make(map[demandKey]int)
	for _, c := range classes {
		for _, cs := range c.Subjects {
			required[demandKey{ClassID: c.ID, Subject: cs.Subject}] = cs.WeeklyPeriods
		}
	}

	best := base.Clone()
	bestScore := Score(best, cfg, priorities)

	for i := 0; i < iterations; i++ {
		candidate, ok := trySwap(best, rng)
		if !ok {
			continue
		}
		if !validAssignment(candidate, required) {
			continue
		}
		if score := Score(candidate, cfg, priorities); score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

// trySwap clones the timetable and swaps two random slots of one random
// class. Classes holding fewer than two slots are not eligible.
func trySwap(tt models.Timetable, rng *rand.Rand) (models.Timetable, bool) {
	slotsByClass := make(map[string][]models.SlotRef)
	for ref := range tt {
		slotsByClass[ref.ClassID] = append(slotsByClass[ref.ClassID], ref)
	}
	var eligible []string
	for classID, refs := range slotsByClass {
		if len(refs) >= 2 {
			eligible = append(eligible, classID)
		}
	}
	if len(eligible) == 0 {
		return nil, false
	}
	sort.Strings(eligible)
	classID := eligible[rng.Intn(len(eligible))]

	refs := slotsByClass[classID]
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Day != refs[j].Day {
			return refs[i].Day < refs[j].Day
		}
		return refs[i].Period < refs[j].Period
	})
	a := rng.Intn(len(refs))
	b := rng.Intn(len(refs) - 1)
	if b >= a {
		b++
	}

	candidate := tt.Clone()
	candidate[refs[a]], candidate[refs[b]] = candidate[refs[b]], candidate[refs[a]]
	return candidate, true
}

// validAssignment re-checks the swap-sensitive hard constraints: teacher
// exclusivity and exact weekly counts per (class, subject).
func validAssignment(tt models.Timetable, required map[demandKey]int) bool {
	teacherSlots := make(map[string]map[models.Slot]struct{})
	counts := make(map[demandKey]int)
	for ref, entry := range tt {
		if entry.TeacherID != "" {
			slot := models.Slot{Day: ref.Day, Period: ref.Period}
			if teacherSlots[entry.TeacherID] == nil {
				teacherSlots[entry.TeacherID] = make(map[models.Slot]struct{})
			}
			if _, clash := teacherSlots[entry.TeacherID][slot]; clash {
				return false
			}
			teacherSlots[entry.TeacherID][slot] = struct{}{}
		}
		if !entry.IsFree() {
			counts[demandKey{ClassID: ref.ClassID, Subject: entry.Subject}]++
		}
	}
	for key, count := range counts {
		if required[key] != count {
			return false
		}
	}
	return true
}
