// Package models provides data model definitions for the Driftwood journal.
package models

import "time"

// BlobKind describes what an attachment blob contains.
type BlobKind string

const (
	BlobImage BlobKind = "image"
	BlobAudio BlobKind = "audio"
)

// BlobRecord is a binary attachment owned by exactly one memory.
// Blobs never outlive their memory: deleting the memory cascades
// to every blob whose MemoryID matches.
type BlobRecord struct {
	ID       UUID     `db:"id" json:"id"`
	MemoryID UUID     `db:"memory_id" json:"memory_id"`
	Kind     BlobKind `db:"kind" json:"kind"`
	MimeType string   `db:"mime_type" json:"mime_type"`
	Size     int64    `db:"size" json:"size"`
	Data     []byte   `db:"data" json:"-"`
	// Width and Height are populated for probed image blobs, 0 otherwise.
	Width     int   `db:"width" json:"width,omitempty"`
	Height    int   `db:"height" json:"height,omitempty"`
	CreatedAt int64 `db:"created_at" json:"created_at"`
}

// TableName returns the table name for BlobRecord.
func (BlobRecord) TableName() string {
	return "blobs"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (b *BlobRecord) CreatedAtTime() time.Time {
	return time.Unix(b.CreatedAt, 0)
}
