package models

import "time"

// ClassSubject binds one subject of a class curriculum to a teacher and its weekly demand.
type ClassSubject struct {
	Subject       string `json:"subject" validate:"required"`
	WeeklyPeriods int    `json:"weekly_periods" validate:"required,min=1"`
	TeacherID     string `json:"teacher_id" validate:"required"`
}

// Class represents one class section and its ordered curriculum.
type Class struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Subjects  []ClassSubject `db:"-" json:"subjects"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// ClassFilter describes query params for listing classes.
type ClassFilter struct {
	Search   string
	Page     int
	PageSize int
}
