package models

import "time"

// Scenario rule names. Resolution always applies active rules in this order:
// teacher_absent, lab_unavailable, shortened_day, emergency_free, substitute.
const (
	ScenarioTeacherAbsent  = "teacher_absent"
	ScenarioLabUnavailable = "lab_unavailable"
	ScenarioShortenedDay   = "shortened_day"
	ScenarioEmergencyFree  = "emergency_free"
	ScenarioSubstitute     = "substitute"
)

// ScenarioToggle holds the activation flag plus the parameters of one rule.
// Only the fields relevant to the named rule are consulted.
type ScenarioToggle struct {
	Active bool `json:"active"`

	// teacher_absent
	TeacherID string `json:"teacher_id,omitempty"`

	// lab_unavailable: comma-free list of subjects whose rooms are unusable
	LabSubjects []string `json:"lab_subjects,omitempty"`

	// shortened_day
	MaxPeriods int `json:"max_periods,omitempty"`

	// emergency_free
	ClassID string `json:"class_id,omitempty"`
	Period  int    `json:"period,omitempty"`

	// substitute
	OriginalTeacher   string `json:"original_teacher,omitempty"`
	SubstituteTeacher string `json:"substitute_teacher,omitempty"`
}

// ScenarioState is the full what-if configuration: the day under inspection
// plus the per-rule toggles. A zero value (no scenarios) resolves to the base.
type ScenarioState struct {
	SelectedDay int                       `json:"selected_day"`
	Scenarios   map[string]ScenarioToggle `json:"scenarios"`
	UpdatedAt   time.Time                 `json:"-"`
}

// DefaultScenarioState returns an empty state targeting the first day.
func DefaultScenarioState() ScenarioState {
	return ScenarioState{SelectedDay: 0, Scenarios: map[string]ScenarioToggle{}}
}

// Toggle returns the named rule configuration, defaulting to inactive.
func (s ScenarioState) Toggle(name string) ScenarioToggle {
	if s.Scenarios == nil {
		return ScenarioToggle{}
	}
	return s.Scenarios[name]
}
