// Command solver_bench builds synthetic school instances and measures solver
// and improver performance at increasing sizes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/models"
	"github.com/timegrid/timegrid-api/internal/timetable"
)

func main() {
	var (
		classes    int
		teachers   int
		days       int
		periods    int
		iterations int
		seed       int64
		budget     time.Duration
	)

	flag.IntVar(&classes, "classes", 8, "number of classes")
	flag.IntVar(&teachers, "teachers", 12, "number of teachers")
	flag.IntVar(&days, "days", 5, "days per week")
	flag.IntVar(&periods, "periods", 8, "periods per day")
	flag.IntVar(&iterations, "iterations", 200, "improvement iterations")
	flag.Int64Var(&seed, "seed", 42, "random seed")
	flag.DurationVar(&budget, "budget", 30*time.Second, "solver time budget")
	flag.Parse()

	cfg, roster, demands := buildInstance(classes, teachers, days, periods, seed)

	model := timetable.BuildModel(cfg, roster, demands)
	solver := timetable.NewBacktrackingSolver(budget, zap.NewNop())

	start := time.Now()
	base, err := solver.Solve(context.Background(), model)
	solveTime := time.Since(start)
	if err != nil {
		log.Fatalf("solve failed after %s: %v", solveTime, err)
	}

	initial := timetable.Score(base, cfg, nil)

	start = time.Now()
	improved := timetable.Improve(base, cfg, demands, nil, iterations, rand.New(rand.NewSource(seed)))
	improveTime := time.Since(start)
	final := timetable.Score(improved, cfg, nil)

	fmt.Printf("instance: %d classes, %d teachers, %dx%d grid, %d slots assigned\n",
		classes, teachers, days, periods, len(base))
	fmt.Printf("solve:    %s\n", solveTime)
	fmt.Printf("improve:  %s (%d iterations)\n", improveTime, iterations)
	fmt.Printf("score:    %.2f -> %.2f\n", initial, final)
}

var benchSubjects = []string{"Math", "Science", "English", "History", "Geography", "Art", "Music", "PE"}

func buildInstance(classCount, teacherCount, days, periods int, seed int64) (models.SchoolConfig, []models.Teacher, []models.Class) {
	rng := rand.New(rand.NewSource(seed))

	dayNames := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	cfg := models.SchoolConfig{
		Days:          dayNames[:days],
		PeriodsPerDay: periods,
		BreakPeriods:  map[int]string{periods / 2: "Lunch"},
	}

	roster := make([]models.Teacher, 0, teacherCount)
	for i := 0; i < teacherCount; i++ {
		// Each teacher covers two adjacent subjects so substitution is possible.
		first := i % len(benchSubjects)
		second := (i + 1) % len(benchSubjects)
		roster = append(roster, models.Teacher{
			ID:               fmt.Sprintf("t%02d", i+1),
			FullName:         fmt.Sprintf("Teacher %02d", i+1),
			Subjects:         []string{benchSubjects[first], benchSubjects[second]},
			MaxPeriodsPerDay: periods - 2,
			Active:           true,
		})
	}

	teachersBySubject := make(map[string][]string)
	for _, t := range roster {
		for _, subject := range t.Subjects {
			teachersBySubject[subject] = append(teachersBySubject[subject], t.ID)
		}
	}

	teachingSlots := days * (periods - 1)
	demands := make([]models.Class, 0, classCount)
	for i := 0; i < classCount; i++ {
		subjectCount := 4 + rng.Intn(3)
		if subjectCount > len(benchSubjects) {
			subjectCount = len(benchSubjects)
		}
		perSubject := teachingSlots / subjectCount
		if perSubject < 1 {
			perSubject = 1
		}

		subjects := make([]models.ClassSubject, 0, subjectCount)
		for j := 0; j < subjectCount; j++ {
			name := benchSubjects[j]
			pool := teachersBySubject[name]
			if len(pool) == 0 {
				continue
			}
			subjects = append(subjects, models.ClassSubject{
				Subject:       name,
				WeeklyPeriods: perSubject,
				TeacherID:     pool[rng.Intn(len(pool))],
			})
		}

		demands = append(demands, models.Class{
			ID:       fmt.Sprintf("c%02d", i+1),
			Name:     fmt.Sprintf("Class %02d", i+1),
			Subjects: subjects,
		})
	}

	return cfg, roster, demands
}
