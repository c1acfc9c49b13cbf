package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// FreePeriod is the sentinel subject marking a disrupted or unassigned slot.
// Free entries are a deviation from the committed timetable and are exempt
// from the weekly-demand invariant.
const FreePeriod = "Free period"

// Slot identifies one schedulable cell of the weekly grid.
type Slot struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// SlotRef keys a timetable entry by class and grid position.
type SlotRef struct {
	ClassID string
	Day     int
	Period  int
}

/// Entry is the payload of one timetable cell: which subject is taught and by whom.
type Entry struct {
	Subject   string `json:"subject"`
	TeacherID string `json:"teacher_id"`
	Free      bool   `json:"-"`
}

// FreeEntry returns the tagged free-period payload.
func FreeEntry() Entry {
	return Entry{Subject: FreePeriod, Free: true}
}

// IsFree reports whether the entry is the free-period sentinel.
func (e Entry) IsFree() bool {
	return e.Free
}

// Timetable is the canonical flat assignment keyed by (class, day, period).
// Only non-break slots ever carry a key.
type Timetable map[SlotRef]Entry

// Clone returns an independent copy of the timetable.
func (t Timetable) Clone() Timetable {
	out := make(Timetable, len(t))
	for ref, entry := range t {
		out[ref] = entry
	}
	return out
}

// Classes returns the distinct class identifiers present in the timetable.
func (t Timetable) Classes() []string {
	seen := make(map[string]struct{})
	for ref := range t {
		seen[ref.ClassID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

const slotRefDelimiter = "|"

func (r SlotRef) encode() string {
	return r.ClassID + slotRefDelimiter + strconv.Itoa(r.Day) + slotRefDelimiter + strconv.Itoa(r.Period)
}

func decodeSlotRef(raw string) (SlotRef, error) {
	parts := strings.Split(raw, slotRefDelimiter)
	if len(parts) != 3 {
		return SlotRef{}, fmt.Errorf("malformed timetable key %q", raw)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return SlotRef{}, fmt.Errorf("malformed day in timetable key %q", raw)
	}
	period, err := strconv.Atoi(parts[2])
	if err != nil {
		return SlotRef{}, fmt.Errorf("malformed period in timetable key %q", raw)
	}
	return SlotRef{ClassID: parts[0], Day: day, Period: period}, nil
}

// MarshalJSON serializes the timetable as {"classId|day|period": [subject, teacherId]}
// with deterministic key ordering.
func (t Timetable) MarshalJSON() ([]byte, error) {
	keys := make([]SlotRef, 0, len(t))
	for ref := range t {
		keys = append(keys, ref)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ClassID != keys[j].ClassID {
			return keys[i].ClassID < keys[j].ClassID
		}
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].Period < keys[j].Period
	})

	var buf strings.Builder
	buf.WriteByte('{')
	for i, ref := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ref.encode())
		if err != nil {
			return nil, err
		}
		entry := t[ref]
		value, err := json.Marshal([2]string{entry.Subject, entry.TeacherID})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}

// UnmarshalJSON restores a timetable from its serialized form, re-tagging
// free-period sentinels.
func (t *Timetable) UnmarshalJSON(data []byte) error {
	var raw map[string][2]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Timetable, len(raw))
	for key, value := range raw {
		ref, err := decodeSlotRef(key)
		if err != nil {
			return err
		}
		entry := Entry{Subject: value[0], TeacherID: value[1]}
		if entry.Subject == FreePeriod && entry.TeacherID == "" {
			entry.Free = true
		}
		out[ref] = entry
	}
	*t = out
	return nil
}

// TeachingAssignment is one cell of the teacher-keyed view.
type TeachingAssignment struct {
	ClassID string `json:"class_id"`
	Subject string `json:"subject"`
}

// TeacherView maps teacher id -> grid slot -> what they teach there.
// Purely derived from a Timetable, never independently mutated.
type TeacherView map[string]map[Slot]TeachingAssignment

// TimetableVersionStatus enumerates lifecycle states of a stored timetable.
type TimetableVersionStatus string

const (
	TimetableStatusDraft    TimetableVersionStatus = "DRAFT"
	TimetableStatusActive   TimetableVersionStatus = "ACTIVE"
	TimetableStatusArchived TimetableVersionStatus = "ARCHIVED"
)

// TimetableVersion is a persisted base timetable. Entries holds the
// serialized Timetable; Meta carries solver/improver diagnostics.
type TimetableVersion struct {
	ID        string                 `db:"id" json:"id"`
	Version   int                    `db:"version" json:"version"`
	Status    TimetableVersionStatus `db:"status" json:"status"`
	Score     float64                `db:"score" json:"score"`
	Entries   types.JSONText         `db:"entries" json:"entries"`
	Meta      types.JSONText         `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt time.Time              `db:"updated_at" json:"updated_at"`
}

// Decode unpacks the stored entries into a Timetable.
func (v TimetableVersion) Decode() (Timetable, error) {
	var tt Timetable
	if err := json.Unmarshal(v.Entries, &tt); err != nil {
		return nil, fmt.Errorf("decode timetable version %s: %w", v.ID, err)
	}
	return tt, nil
}
