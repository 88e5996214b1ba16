// Package models provides data model definitions for the Driftwood journal.
package models

import "time"

// FirstEncounterID is the fixed key of the singleton settings record.
const FirstEncounterID = "first-encounter"

// FirstEncounter is the singleton record describing an initial meeting.
// It may be saved repeatedly as a draft; once IsLocked is true the record
// is frozen forever. The freeze is enforced at the journal layer, not by
// the store.
type FirstEncounter struct {
	ID        UUID     `json:"id"`
	IsLocked  bool     `json:"is_locked"`
	Time      string   `json:"time,omitempty"`
	Location  string   `json:"location,omitempty"`
	Weather   string   `json:"weather,omitempty"`
	Mood      string   `json:"mood,omitempty"`
	Story     string   `json:"story,omitempty"`
	Dialogues []string `json:"dialogues,omitempty"`
	CreatedAt int64    `json:"created_at,omitempty"`
	LockedAt  *int64   `json:"locked_at,omitempty"`
}

// TableName returns the table name for FirstEncounter.
func (FirstEncounter) TableName() string {
	return "settings"
}

// LockedAtTime returns the lock instant, or the zero time when unlocked.
func (f *FirstEncounter) LockedAtTime() time.Time {
	if f.LockedAt == nil {
		return time.Time{}
	}
	return time.Unix(*f.LockedAt, 0)
}
