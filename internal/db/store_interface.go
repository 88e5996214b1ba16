// Package db provides store interfaces for the Driftwood collections.
package db

import (
	"time"

	"github.com/kimhsiao/driftwood/internal/models"
)

// MemoryStore defines operations for memory record persistence.
// The interface allows faking the store in journal tests.
type MemoryStore interface {
	// GetAllMemories returns all memories, most recent first, with
	// derived status.
	GetAllMemories() ([]models.Memory, error)

	// GetMemoryByID retrieves one memory with derived status.
	GetMemoryByID(id models.UUID) (*models.Memory, error)

	// CreateMemory persists a new memory, assigning id and timestamps.
	CreateMemory(m *models.Memory) error

	// UpdateMemory merges partial fields onto the stored record.
	UpdateMemory(id models.UUID, upd MemoryUpdate) (*models.Memory, error)

	// DeleteMemory removes the memory and its blobs in one transaction.
	DeleteMemory(id models.UUID) error

	// SealMemory hides the memory until unlockAt.
	SealMemory(id models.UUID, unlockAt time.Time) (*models.Memory, error)

	// UnsealMemory clears the unlock time.
	UnsealMemory(id models.UUID) (*models.Memory, error)
}

// EncounterStore defines operations for the first-encounter singleton.
type EncounterStore interface {
	// GetFirstEncounter retrieves the singleton record.
	GetFirstEncounter() (*models.FirstEncounter, error)

	// SaveFirstEncounter upserts the singleton by its fixed id.
	SaveFirstEncounter(fe *models.FirstEncounter) error

	// LockFirstEncounter freezes the record forever. Idempotent.
	LockFirstEncounter() error
}

// BlobStore defines operations for attachment blob persistence.
type BlobStore interface {
	// SaveBlobRecord persists a new attachment blob.
	SaveBlobRecord(b *models.BlobRecord) error

	// GetBlobsByMemoryID returns every blob owned by the memory.
	GetBlobsByMemoryID(memoryID models.UUID) ([]models.BlobRecord, error)

	// DeleteBlobsByMemoryID removes every blob owned by the memory.
	DeleteBlobsByMemoryID(memoryID models.UUID) error
}

// JournalStore groups the stores the journal service depends on.
type JournalStore interface {
	MemoryStore
	EncounterStore
	BlobStore
}

// ArchiveStore adds the raw-insert operations archive restore needs on
// top of the journal operations.
type ArchiveStore interface {
	JournalStore

	// ImportMemory inserts a record preserving id and timestamps.
	ImportMemory(m *models.Memory) error

	// ImportBlob inserts a blob preserving id and creation timestamp.
	ImportBlob(b *models.BlobRecord) error
}

// Ensure *Store implements the interfaces at compile time.
var (
	_ MemoryStore    = (*Store)(nil)
	_ EncounterStore = (*Store)(nil)
	_ BlobStore      = (*Store)(nil)
	_ JournalStore   = (*Store)(nil)
	_ ArchiveStore   = (*Store)(nil)
)
