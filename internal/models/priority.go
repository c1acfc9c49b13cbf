package models

import "time"

// ClassPriorityConfig captures per-class soft scheduling preferences.
// Priority subjects should land early in the day, heavy subjects should not
// run back-to-back. Weak subjects are informational only.
type ClassPriorityConfig struct {
	ClassID          string    `db:"class_id" json:"class_id"`
	PrioritySubjects []string  `db:"-" json:"priority_subjects"`
	WeakSubjects     []string  `db:"-" json:"weak_subjects"`
	HeavySubjects    []string  `db:"-" json:"heavy_subjects"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
