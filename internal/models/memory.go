// Package models provides data model definitions for the Driftwood journal.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*u = ""
	case string:
		*u = UUID(v)
	case []byte:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// Status is the derived active/sealed classification of a memory.
// It is computed from SealedUntil at read time and never trusted
// from storage.
type Status string

const (
	StatusActive Status = "active"
	StatusSealed Status = "sealed"
)

// ContentType describes the primary content of a memory.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentAudio ContentType = "audio"
)

// MemoryMeta holds optional contextual metadata recorded with a memory.
type MemoryMeta struct {
	Location string   `json:"location,omitempty"`
	Weather  string   `json:"weather,omitempty"`
	Mood     string   `json:"mood,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Memory represents a recorded journal entry.
type Memory struct {
	ID          UUID        `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Content     string      `db:"content" json:"content"`
	ContentType ContentType `db:"content_type" json:"content_type"`
	// Status is a read-time convenience; StatusAt is the source of truth.
	Status      Status      `json:"status"`
	Meta        *MemoryMeta `json:"meta,omitempty"`
	BlobIDs     []UUID      `json:"blob_ids,omitempty"`
	SealedUntil *int64      `db:"sealed_until" json:"sealed_until,omitempty"`
	CreatedAt   int64       `db:"created_at" json:"created_at"`
	UpdatedAt   int64       `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for Memory.
func (Memory) TableName() string {
	return "records"
}

// StatusAt derives the memory's status at the given evaluation time.
// A memory is sealed iff SealedUntil is set and strictly in the future;
// at exactly the unlock instant the memory is already active.
func (m *Memory) StatusAt(at time.Time) Status {
	if m.SealedUntil != nil && *m.SealedUntil > at.Unix() {
		return StatusSealed
	}
	return StatusActive
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (m *Memory) CreatedAtTime() time.Time {
	return time.Unix(m.CreatedAt, 0)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (m *Memory) UpdatedAtTime() time.Time {
	return time.Unix(m.UpdatedAt, 0)
}

// SealedUntilTime returns the unlock instant, or the zero time when unset.
func (m *Memory) SealedUntilTime() time.Time {
	if m.SealedUntil == nil {
		return time.Time{}
	}
	return time.Unix(*m.SealedUntil, 0)
}

// Touch updates the UpdatedAt timestamp.
func (m *Memory) Touch(now time.Time) {
	m.UpdatedAt = now.Unix()
}
