package models

import "time"

// Teacher represents an instructor record with the subjects and sections they cover.
type Teacher struct {
	ID               string    `db:"id" json:"id"`
	FullName         string    `db:"full_name" json:"full_name"`
	Subjects         []string  `db:"-" json:"subjects"`
	Sections         []string  `db:"-" json:"sections"`
	MaxPeriodsPerDay int       `db:"max_periods_per_day" json:"max_periods_per_day"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Teaches reports whether the teacher covers the given subject.
func (t Teacher) Teaches(subject string) bool {
	for _, s := range t.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
