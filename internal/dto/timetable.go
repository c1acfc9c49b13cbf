package dto

import (
	"github.com/timegrid/timegrid-api/internal/models"
	"github.com/timegrid/timegrid-api/internal/timetable"
)

// GenerateTimetableRequest instructs the generator to build a proposal from
// the stored roster and class demands.
type GenerateTimetableRequest struct {
	TimeBudgetSeconds int   `json:"timeBudgetSeconds" validate:"omitempty,min=1,max=300"`
	ImproveIterations int   `json:"improveIterations" validate:"omitempty,min=0,max=10000"`
	Seed              *int64 `json:"seed"`
	Async             bool  `json:"async"`
}

// SolveStats summarises the optimisation passes behind a proposal.
type SolveStats struct {
	SolveMillis    int64   `json:"solveMillis"`
	Iterations     int     `json:"iterations"`
	InitialScore   float64 `json:"initialScore"`
	ImprovedScore  float64 `json:"improvedScore"`
	TotalDemand    int     `json:"totalDemand"`
	ClassesCovered int     `json:"classesCovered"`
}

// GenerateTimetableResponse returns the built proposal. Entries is the full
// timetable keyed per class slot.
type GenerateTimetableResponse struct {
	ProposalID string           `json:"proposalId"`
	Score      float64          `json:"score"`
	Entries    models.Timetable `json:"entries"`
	Stats      SolveStats       `json:"stats"`
}

// GenerateJobResponse acknowledges an async solve request.
type GenerateJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// SaveTimetableRequest persists a proposal as a new draft version.
type SaveTimetableRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Activate   bool   `json:"activate"`
}

// TimetableVersionSummary is the list-view projection of a stored version.
type TimetableVersionSummary struct {
	ID        string                        `json:"id"`
	Version   int                           `json:"version"`
	Status    models.TimetableVersionStatus `json:"status"`
	Score     float64                       `json:"score"`
	CreatedAt string                        `json:"createdAt"`
}

// RotationResponse carries the multi-week rotation derived from one version.
type RotationResponse struct {
	VersionID string             `json:"versionId"`
	Weeks     []models.Timetable `json:"weeks"`
}

// TeacherViewResponse is the teacher-centric inversion of a timetable.
type TeacherViewResponse struct {
	VersionID string             `json:"versionId"`
	Teachers  models.TeacherView `json:"teachers"`
}

// ScoreResponse reports the stored score of a version alongside the score
// recomputed against the current config and priorities. The two drift when
// priorities change after the version was saved.
type ScoreResponse struct {
	VersionID     string  `json:"versionId"`
	StoredScore   float64 `json:"storedScore"`
	CurrentScore  float64 `json:"currentScore"`
	ScoredEntries int     `json:"scoredEntries"`
}

// HeatmapResponse bundles the workload analytics for one version.
type HeatmapResponse struct {
	VersionID     string                     `json:"versionId"`
	TeacherLoad   map[string]map[int]int     `json:"teacherLoad"`
	DayCongestion map[int]int                `json:"dayCongestion"`
	ClassFatigue  map[string]map[int]float64 `json:"classFatigue"`
	ClashRisk     []timetable.OverloadCell   `json:"clashRisk"`
}
