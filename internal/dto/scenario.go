package dto

import "github.com/timegrid/timegrid-api/internal/models"

// ScenarioToggleRequest updates one rule of the what-if state. Fields beyond
// Active are interpreted per rule name.
type ScenarioToggleRequest struct {
	Name   string `json:"name" validate:"required,oneof=teacher_absent lab_unavailable shortened_day emergency_free substitute"`
	Active bool   `json:"active"`

	TeacherID         string   `json:"teacherId" validate:"omitempty"`
	LabSubjects       []string `json:"labSubjects"`
	MaxPeriods        int      `json:"maxPeriods" validate:"omitempty,min=1,max=16"`
	ClassID           string   `json:"classId"`
	Period            int      `json:"period" validate:"omitempty,min=0,max=15"`
	OriginalTeacher   string   `json:"originalTeacher"`
	SubstituteTeacher string   `json:"substituteTeacher"`
}

// SelectDayRequest switches the day under inspection.
type SelectDayRequest struct {
	Day int `json:"day" validate:"min=0,max=6"`
}

// ScenarioStateResponse echoes the stored what-if configuration.
type ScenarioStateResponse struct {
	SelectedDay int                              `json:"selectedDay"`
	Scenarios   map[string]models.ScenarioToggle `json:"scenarios"`
}

// ResolvedDayResponse is the overlay result for the selected day.
type ResolvedDayResponse struct {
	VersionID   string           `json:"versionId"`
	SelectedDay int              `json:"selectedDay"`
	Entries     models.Timetable `json:"entries"`
	Cached      bool             `json:"cached"`
}
