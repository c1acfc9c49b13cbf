package timetable

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/models"
)

// ErrNoSolution is returned when the model is proven infeasible or the time
// budget runs out before a solution is found. Callers treat both the same:
// there is no timetable to show.
var ErrNoSolution = errors.New("no feasible timetable")

// DefaultTimeBudget bounds a single solve attempt.
const DefaultTimeBudget = 30 * time.Second

// Solver finds a satisfying assignment for a constraint model, or reports
// that none could be found within its budget. Implementations must never
// return a partial assignment.
type Solver interface {
	Solve(ctx context.Context, m *Model) (models.Timetable, error)
}

// BacktrackingSolver is a complete depth-first search with forward pruning.
// It enumerates slot choices per demand unit in canonical order, so the
// search space contains each candidate assignment exactly once.
type BacktrackingSolver struct {
	budget time.Duration
	logger *zap.Logger
}

// NewBacktrackingSolver builds a solver with the given time budget.
func NewBacktrackingSolver(budget time.Duration, logger *zap.Logger) *BacktrackingSolver {
	if budget <= 0 {
		budget = DefaultTimeBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktrackingSolver{budget: budget, logger: logger}
}

type searchState struct {
	slots       []models.Slot
	units       []searchUnit
	classBusy   map[string][]bool
	teacherBusy map[string][]bool
	teacherDay  map[string][]int
	caps        map[string]int
	numDays     int

	deadline time.Time
	ctx      context.Context
	nodes    uint64
	timedOut bool
}

type searchUnit struct {
	demand int // index into ordered demands
	first  bool
}

// Solve returns a timetable satisfying every hard constraint, or ErrNoSolution.
func (s *BacktrackingSolver) Solve(ctx context.Context, m *Model) (models.Timetable, error) {
	started := time.Now()

	demands := make([]Demand, len(m.Demands))
	copy(demands, m.Demands)
	// Most constrained first: biggest weekly counts have the fewest
	// placements available, so failures surface early.
	sort.SliceStable(demands, func(i, j int) bool {
		return demands[i].Count > demands[j].Count
	})

	totalSlots := len(m.Slots)
	perClass := make(map[string]int)
	for _, d := range demands {
		perClass[d.ClassID] += d.Count
		if d.Count > totalSlots {
			return nil, ErrNoSolution
		}
	}
	for _, load := range perClass {
		if load > totalSlots {
			return nil, ErrNoSolution
		}
	}

	state := &searchState{
		slots:       m.Slots,
		classBusy:   make(map[string][]bool),
		teacherBusy: make(map[string][]bool),
		teacherDay:  make(map[string][]int),
		caps:        m.Caps,
		numDays:     len(m.Config.Days),
		deadline:    started.Add(s.budget),
		ctx:         ctx,
	}
	for _, d := range demands {
		if state.classBusy[d.ClassID] == nil {
			state.classBusy[d.ClassID] = make([]bool, totalSlots)
		}
		if state.teacherBusy[d.TeacherID] == nil {
			state.teacherBusy[d.TeacherID] = make([]bool, totalSlots)
			state.teacherDay[d.TeacherID] = make([]int, state.numDays)
		}
	}
	for di, d := range demands {
		for i := 0; i < d.Count; i++ {
			state.units = append(state.units, searchUnit{demand: di, first: i == 0})
		}
	}

	placements := make([]int, len(state.units))
	ok := state.search(demands, placements, 0, 0)
	elapsed := time.Since(started)
	if !ok {
		if state.timedOut {
			s.logger.Warn("solve aborted on time budget",
				zap.Duration("elapsed", elapsed),
				zap.Uint64("nodes", state.nodes))
		} else {
			s.logger.Info("model proven infeasible",
				zap.Duration("elapsed", elapsed),
				zap.Uint64("nodes", state.nodes))
		}
		return nil, ErrNoSolution
	}

	result := make(models.Timetable, len(state.units))
	for ui, slotIdx := range placements {
		d := demands[state.units[ui].demand]
		slot := state.slots[slotIdx]
		result[models.SlotRef{ClassID: d.ClassID, Day: slot.Day, Period: slot.Period}] = models.Entry{
			Subject:   d.Subject,
			TeacherID: d.TeacherID,
		}
	}
	s.logger.Info("timetable solved",
		zap.Int("entries", len(result)),
		zap.Duration("elapsed", elapsed),
		zap.Uint64("nodes", state.nodes))
	return result, nil
}

func (st *searchState) expired() bool {
	st.nodes++
	if st.nodes%1024 == 0 {
		if st.ctx != nil && st.ctx.Err() != nil {
			st.timedOut = true
			return true
		}
		if time.Now().After(st.deadline) {
			st.timedOut = true
			return true
		}
	}
	return st.timedOut
}

// search places units[ui] onto a slot index >= fromSlot (canonical order for
// units of the same demand) and recurses. Returns true on a full assignment.
func (st *searchState) search(demands []Demand, placements []int, ui, fromSlot int) bool {
	if ui == len(st.units) {
		return true
	}
	if st.expired() {
		return false
	}

	unit := st.units[ui]
	if unit.first {
		fromSlot = 0
	}
	d := demands[unit.demand]

	// Remaining units of this demand after the current one.
	remaining := 0
	for i := ui + 1; i < len(st.units) && st.units[i].demand == unit.demand; i++ {
		remaining++
	}

	classRow := st.classBusy[d.ClassID]
	teacherRow := st.teacherBusy[d.TeacherID]
	dayLoad := st.teacherDay[d.TeacherID]
	limit, capped := st.caps[d.TeacherID]

	for slotIdx := fromSlot; slotIdx < len(st.slots)-remaining; slotIdx++ {
		if classRow[slotIdx] || teacherRow[slotIdx] {
			continue
		}
		day := st.slots[slotIdx].Day
		if capped && dayLoad[day] >= limit {
			continue
		}

		classRow[slotIdx] = true
		teacherRow[slotIdx] = true
		dayLoad[day]++
		placements[ui] = slotIdx

		if st.search(demands, placements, ui+1, slotIdx+1) {
			return true
		}

		classRow[slotIdx] = false
		teacherRow[slotIdx] = false
		dayLoad[day]--

		if st.timedOut {
			return false
		}
	}
	return false
}
