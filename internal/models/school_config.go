package models

import "time"

// SchoolConfig carries the school-wide grid settings: day names, period count
// and the named break periods (period index -> break name).
type SchoolConfig struct {
	Days          []string       `json:"days" validate:"required,min=1"`
	PeriodsPerDay int            `json:"periods_per_day" validate:"required,min=1"`
	BreakPeriods  map[int]string `json:"break_periods"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DefaultSchoolConfig mirrors the Monday-Friday, eight-period grid with lunch
// after the third period.
func DefaultSchoolConfig() SchoolConfig {
	return SchoolConfig{
		Days:          []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		PeriodsPerDay: 8,
		BreakPeriods:  map[int]string{3: "Lunch"},
	}
}

// IsBreak reports whether the period index is a named break.
func (c SchoolConfig) IsBreak(period int) bool {
	_, ok := c.BreakPeriods[period]
	return ok
}

// BreakName returns the display name of a break period, or "Break" when unnamed.
func (c SchoolConfig) BreakName(period int) string {
	if name, ok := c.BreakPeriods[period]; ok && name != "" {
		return name
	}
	return "Break"
}

// AvailablePeriodsPerDay returns the schedulable period count per day.
func (c SchoolConfig) AvailablePeriodsPerDay() int {
	available := c.PeriodsPerDay - len(c.BreakPeriods)
	if available < 0 {
		return 0
	}
	return available
}
