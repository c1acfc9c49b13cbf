package models

import "time"

// ActivityEntry is one row of the audit trail kept for planner actions.
// The log is capped; oldest entries are trimmed on append.
type ActivityEntry struct {
	ID        string    `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	Target    string    `db:"target" json:"target"`
	Summary   string    `db:"summary" json:"summary"`
	Details   string    `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ActivityLogLimit bounds how many entries the trail retains.
const ActivityLogLimit = 500
