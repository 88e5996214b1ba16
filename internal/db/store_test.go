// Package db tests for the journal store.
package db

import (
	"bytes"
	"testing"
	"time"

	apperrors "github.com/kimhsiao/driftwood/internal/errors"
	"github.com/kimhsiao/driftwood/internal/models"
	"github.com/kimhsiao/driftwood/internal/uuid"
)

// testClock is a manually advanced clock injected into the store.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// newTestStore opens a migrated in-memory store on a controllable clock.
func newTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()

	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := NewMigrator(database.DB).Up(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	clock := &testClock{now: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStoreWithClock(database, clock.Now)
	t.Cleanup(func() { store.Close() })
	return store, clock
}

func mustCreate(t *testing.T, store *Store, title, content string) *models.Memory {
	t.Helper()
	m := &models.Memory{Title: title, Content: content}
	if err := store.CreateMemory(m); err != nil {
		t.Fatalf("CreateMemory(%q) failed: %v", title, err)
	}
	return m
}

// =====================================================
// Memory CRUD
// =====================================================

// TestCreateMemory_roundTrip verifies create followed by get returns the
// same record, with status recomputed on read.
func TestCreateMemory_roundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	m := &models.Memory{
		Title:   "Trip",
		Content: "We went to the lake",
		Meta:    &models.MemoryMeta{Location: "lake", Mood: "calm", Tags: []string{"travel", "water"}},
	}
	if err := store.CreateMemory(m); err != nil {
		t.Fatalf("CreateMemory() failed: %v", err)
	}

	if !uuid.IsValid(m.ID.String()) {
		t.Errorf("assigned id %q is not a valid UUID v4", m.ID)
	}
	if m.Status != models.StatusActive {
		t.Errorf("new memory status = %v, want active", m.Status)
	}
	if m.CreatedAt != m.UpdatedAt {
		t.Errorf("createdAt (%d) != updatedAt (%d) at creation", m.CreatedAt, m.UpdatedAt)
	}
	if m.ContentType != models.ContentText {
		t.Errorf("default content type = %v, want text", m.ContentType)
	}

	got, err := store.GetMemoryByID(m.ID)
	if err != nil {
		t.Fatalf("GetMemoryByID() failed: %v", err)
	}
	if got.Title != m.Title || got.Content != m.Content {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.Meta == nil || got.Meta.Location != "lake" || len(got.Meta.Tags) != 2 {
		t.Errorf("meta round trip mismatch: %+v", got.Meta)
	}
	if got.Status != models.StatusActive {
		t.Errorf("derived status = %v, want active", got.Status)
	}
	if got.CreatedAt != m.CreatedAt || got.UpdatedAt != m.UpdatedAt {
		t.Error("timestamps changed across round trip")
	}
}

// TestGetMemoryByID_absent verifies absence is reported as a
// MEMORY_NOT_FOUND code, not a bare failure.
func TestGetMemoryByID_absent(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetMemoryByID("nonexistent-id")
	if !apperrors.Is(err, apperrors.ErrMemoryNotFound) {
		t.Errorf("GetMemoryByID(absent) error = %v, want MEMORY_NOT_FOUND", err)
	}
}

// TestGetAllMemories_empty verifies an empty store yields an empty list.
func TestGetAllMemories_empty(t *testing.T) {
	store, _ := newTestStore(t)

	memories, err := store.GetAllMemories()
	if err != nil {
		t.Fatalf("GetAllMemories() failed: %v", err)
	}
	if len(memories) != 0 {
		t.Errorf("expected empty list, got %d entries", len(memories))
	}
}

// TestGetAllMemories_ordering verifies most-recent-first ordering: after
// creating A then B, B precedes A.
func TestGetAllMemories_ordering(t *testing.T) {
	store, clock := newTestStore(t)

	a := mustCreate(t, store, "A", "first")
	clock.Advance(time.Second)
	b := mustCreate(t, store, "B", "second")

	memories, err := store.GetAllMemories()
	if err != nil {
		t.Fatalf("GetAllMemories() failed: %v", err)
	}
	if len(memories) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(memories))
	}
	if memories[0].ID != b.ID || memories[1].ID != a.ID {
		t.Errorf("order = [%s, %s], want [B, A]", memories[0].Title, memories[1].Title)
	}
}

// TestGetAllMemories_orderingSameSecond verifies insertion order still
// wins when two memories share a creation timestamp.
func TestGetAllMemories_orderingSameSecond(t *testing.T) {
	store, _ := newTestStore(t)

	mustCreate(t, store, "A", "first")
	b := mustCreate(t, store, "B", "second") // clock has not advanced

	memories, err := store.GetAllMemories()
	if err != nil {
		t.Fatalf("GetAllMemories() failed: %v", err)
	}
	if memories[0].ID != b.ID {
		t.Errorf("newest-first tiebreak failed: got %s first", memories[0].Title)
	}
}

// TestSealMemory_derivedStatus verifies the seal scenario: sealed
// immediately after sealing, active after the clock passes the unlock
// time with no further write.
func TestSealMemory_derivedStatus(t *testing.T) {
	store, clock := newTestStore(t)
	m := mustCreate(t, store, "Trip", "We went to the lake")

	unlockAt := clock.Now().Add(24 * time.Hour)
	sealed, err := store.SealMemory(m.ID, unlockAt)
	if err != nil {
		t.Fatalf("SealMemory() failed: %v", err)
	}
	if sealed.Status != models.StatusSealed {
		t.Errorf("status right after seal = %v, want sealed", sealed.Status)
	}

	got, err := store.GetMemoryByID(m.ID)
	if err != nil {
		t.Fatalf("GetMemoryByID() failed: %v", err)
	}
	if got.Status != models.StatusSealed {
		t.Errorf("status before unlock = %v, want sealed", got.Status)
	}

	// Advance past the unlock instant; no write happens in between.
	clock.Advance(24*time.Hour + time.Second)
	got, err = store.GetMemoryByID(m.ID)
	if err != nil {
		t.Fatalf("GetMemoryByID() after advance failed: %v", err)
	}
	if got.Status != models.StatusActive {
		t.Errorf("status after unlock = %v, want active", got.Status)
	}

	all, err := store.GetAllMemories()
	if err != nil {
		t.Fatalf("GetAllMemories() failed: %v", err)
	}
	if all[0].Status != models.StatusActive {
		t.Errorf("list status after unlock = %v, want active", all[0].Status)
	}
}

// TestUnsealMemory verifies clearing the unlock time reactivates the
// memory immediately.
func TestUnsealMemory(t *testing.T) {
	store, clock := newTestStore(t)
	m := mustCreate(t, store, "Sealed", "hidden")

	if _, err := store.SealMemory(m.ID, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SealMemory() failed: %v", err)
	}

	got, err := store.UnsealMemory(m.ID)
	if err != nil {
		t.Fatalf("UnsealMemory() failed: %v", err)
	}
	if got.SealedUntil != nil {
		t.Error("SealedUntil should be cleared")
	}
	if got.Status != models.StatusActive {
		t.Errorf("status after unseal = %v, want active", got.Status)
	}
}

// TestUpdateMemory verifies partial merge semantics and the updated_at
// bump.
func TestUpdateMemory(t *testing.T) {
	store, clock := newTestStore(t)
	m := mustCreate(t, store, "Old title", "old content")

	clock.Advance(time.Minute)
	newTitle := "New title"
	got, err := store.UpdateMemory(m.ID, MemoryUpdate{Title: &newTitle})
	if err != nil {
		t.Fatalf("UpdateMemory() failed: %v", err)
	}

	if got.Title != "New title" {
		t.Errorf("title = %q, want New title", got.Title)
	}
	if got.Content != "old content" {
		t.Errorf("content changed by partial update: %q", got.Content)
	}
	if got.UpdatedAt <= m.CreatedAt {
		t.Errorf("updated_at not bumped: %d", got.UpdatedAt)
	}
	if got.CreatedAt != m.CreatedAt {
		t.Error("created_at must not change on update")
	}
}

// TestUpdateMemory_absent verifies no implicit creation.
func TestUpdateMemory_absent(t *testing.T) {
	store, _ := newTestStore(t)

	title := "ghost"
	_, err := store.UpdateMemory("nonexistent-id", MemoryUpdate{Title: &title})
	if !apperrors.Is(err, apperrors.ErrMemoryNotFound) {
		t.Errorf("UpdateMemory(absent) error = %v, want MEMORY_NOT_FOUND", err)
	}

	memories, err := store.GetAllMemories()
	if err != nil {
		t.Fatalf("GetAllMemories() failed: %v", err)
	}
	if len(memories) != 0 {
		t.Error("update of absent id must not create a record")
	}
}

// =====================================================
// Cascade delete
// =====================================================

// TestDeleteMemory_cascade verifies the memory and all of its blobs go
// together, and unrelated blobs survive.
func TestDeleteMemory_cascade(t *testing.T) {
	store, _ := newTestStore(t)
	doomed := mustCreate(t, store, "Doomed", "will drift away")
	kept := mustCreate(t, store, "Kept", "stays")

	for i := 0; i < 2; i++ {
		b := &models.BlobRecord{MemoryID: doomed.ID, Kind: models.BlobImage, MimeType: "image/png", Data: []byte{1, 2, 3}}
		if err := store.SaveBlobRecord(b); err != nil {
			t.Fatalf("SaveBlobRecord() failed: %v", err)
		}
	}
	keptBlob := &models.BlobRecord{MemoryID: kept.ID, Kind: models.BlobAudio, MimeType: "audio/ogg", Data: []byte{4}}
	if err := store.SaveBlobRecord(keptBlob); err != nil {
		t.Fatalf("SaveBlobRecord() failed: %v", err)
	}

	if err := store.DeleteMemory(doomed.ID); err != nil {
		t.Fatalf("DeleteMemory() failed: %v", err)
	}

	if _, err := store.GetMemoryByID(doomed.ID); !apperrors.Is(err, apperrors.ErrMemoryNotFound) {
		t.Error("deleted memory still readable")
	}
	blobs, err := store.GetBlobsByMemoryID(doomed.ID)
	if err != nil {
		t.Fatalf("GetBlobsByMemoryID() failed: %v", err)
	}
	if len(blobs) != 0 {
		t.Errorf("%d orphaned blobs survived their memory", len(blobs))
	}

	survivors, err := store.GetBlobsByMemoryID(kept.ID)
	if err != nil {
		t.Fatalf("GetBlobsByMemoryID(kept) failed: %v", err)
	}
	if len(survivors) != 1 {
		t.Errorf("unrelated blobs affected by cascade: %d left", len(survivors))
	}
}

// TestDeleteMemory_absent verifies absence reporting.
func TestDeleteMemory_absent(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.DeleteMemory("nonexistent-id")
	if !apperrors.Is(err, apperrors.ErrMemoryNotFound) {
		t.Errorf("DeleteMemory(absent) error = %v, want MEMORY_NOT_FOUND", err)
	}
}

// TestDeleteMemory_atomicRollback verifies that when the blob side of the
// cascade fails, the record side rolls back too. The fault is injected by
// renaming the blobs table out from under the transaction.
func TestDeleteMemory_atomicRollback(t *testing.T) {
	store, _ := newTestStore(t)
	m := mustCreate(t, store, "Survivor", "stays whole")

	if _, err := store.db.Exec(`ALTER TABLE blobs RENAME TO blobs_hidden`); err != nil {
		t.Fatalf("failed to inject fault: %v", err)
	}

	err := store.DeleteMemory(m.ID)
	if err == nil {
		t.Fatal("DeleteMemory() should fail when the blob delete fails")
	}
	if !apperrors.Is(err, apperrors.ErrStorage) {
		t.Errorf("error = %v, want STORAGE_ERROR", err)
	}

	if _, err := store.db.Exec(`ALTER TABLE blobs_hidden RENAME TO blobs`); err != nil {
		t.Fatalf("failed to restore table: %v", err)
	}

	// The record delete must have rolled back with the blob failure.
	got, err := store.GetMemoryByID(m.ID)
	if err != nil {
		t.Fatalf("memory lost despite rollback: %v", err)
	}
	if got.Title != "Survivor" {
		t.Errorf("unexpected record after rollback: %+v", got)
	}
}

// =====================================================
// First encounter
// =====================================================

// TestFirstEncounter_draftOverwrite verifies repeated draft saves
// overwrite each other while unlocked.
func TestFirstEncounter_draftOverwrite(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.GetFirstEncounter(); !apperrors.Is(err, apperrors.ErrEncounterNotFound) {
		t.Error("fresh store should report ENCOUNTER_NOT_FOUND")
	}

	first := &models.FirstEncounter{Story: "We met at the pier"}
	if err := store.SaveFirstEncounter(first); err != nil {
		t.Fatalf("SaveFirstEncounter() failed: %v", err)
	}
	if first.ID != models.FirstEncounterID {
		t.Errorf("singleton id = %q, want %q", first.ID, models.FirstEncounterID)
	}
	if first.CreatedAt == 0 {
		t.Error("CreatedAt not assigned on first save")
	}

	second := &models.FirstEncounter{
		Story:     "We met at the station",
		Dialogues: []string{"hello", "hi"},
		CreatedAt: first.CreatedAt,
	}
	if err := store.SaveFirstEncounter(second); err != nil {
		t.Fatalf("second SaveFirstEncounter() failed: %v", err)
	}

	got, err := store.GetFirstEncounter()
	if err != nil {
		t.Fatalf("GetFirstEncounter() failed: %v", err)
	}
	if got.Story != "We met at the station" {
		t.Errorf("second save did not overwrite: %q", got.Story)
	}
	if len(got.Dialogues) != 2 || got.Dialogues[0] != "hello" {
		t.Errorf("dialogues mismatch: %v", got.Dialogues)
	}
	if got.IsLocked {
		t.Error("draft saves must not lock the record")
	}
}

// TestLockFirstEncounter verifies the lock transition and its
// idempotence: a second lock is a no-op that keeps the first timestamp.
func TestLockFirstEncounter(t *testing.T) {
	store, clock := newTestStore(t)

	if err := store.SaveFirstEncounter(&models.FirstEncounter{Story: "We met"}); err != nil {
		t.Fatalf("SaveFirstEncounter() failed: %v", err)
	}

	if err := store.LockFirstEncounter(); err != nil {
		t.Fatalf("LockFirstEncounter() failed: %v", err)
	}
	got, err := store.GetFirstEncounter()
	if err != nil {
		t.Fatalf("GetFirstEncounter() failed: %v", err)
	}
	if !got.IsLocked {
		t.Fatal("IsLocked not set")
	}
	if got.LockedAt == nil {
		t.Fatal("LockedAt not set")
	}
	firstLockedAt := *got.LockedAt

	clock.Advance(time.Hour)
	if err := store.LockFirstEncounter(); err != nil {
		t.Fatalf("second LockFirstEncounter() failed: %v", err)
	}
	got, err = store.GetFirstEncounter()
	if err != nil {
		t.Fatalf("GetFirstEncounter() failed: %v", err)
	}
	if *got.LockedAt != firstLockedAt {
		t.Errorf("second lock changed LockedAt: %d -> %d", firstLockedAt, *got.LockedAt)
	}
}

// TestLockFirstEncounter_absent verifies locking an unrecorded encounter
// is a silent no-op.
func TestLockFirstEncounter_absent(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.LockFirstEncounter(); err != nil {
		t.Errorf("LockFirstEncounter() on empty store = %v, want nil", err)
	}
	if _, err := store.GetFirstEncounter(); !apperrors.Is(err, apperrors.ErrEncounterNotFound) {
		t.Error("lock on empty store must not create a record")
	}
}

// =====================================================
// Blobs
// =====================================================

// TestBlobs_crud verifies blob save, owner query, and bulk delete.
func TestBlobs_crud(t *testing.T) {
	store, clock := newTestStore(t)
	m := mustCreate(t, store, "With attachments", "pictures below")

	b1 := &models.BlobRecord{MemoryID: m.ID, Kind: models.BlobImage, MimeType: "image/png", Data: []byte{1, 2, 3, 4}}
	if err := store.SaveBlobRecord(b1); err != nil {
		t.Fatalf("SaveBlobRecord() failed: %v", err)
	}
	if !uuid.IsValid(b1.ID.String()) {
		t.Errorf("blob id %q is not a valid UUID v4", b1.ID)
	}
	if b1.Size != 4 {
		t.Errorf("size = %d, want 4", b1.Size)
	}
	if b1.CreatedAt == 0 {
		t.Error("blob CreatedAt not assigned")
	}

	clock.Advance(time.Second)
	b2 := &models.BlobRecord{MemoryID: m.ID, Kind: models.BlobAudio, MimeType: "audio/ogg", Data: []byte{9}}
	if err := store.SaveBlobRecord(b2); err != nil {
		t.Fatalf("SaveBlobRecord() failed: %v", err)
	}

	blobs, err := store.GetBlobsByMemoryID(m.ID)
	if err != nil {
		t.Fatalf("GetBlobsByMemoryID() failed: %v", err)
	}
	if len(blobs) != 2 {
		t.Fatalf("expected 2 blobs, got %d", len(blobs))
	}
	if blobs[0].ID != b1.ID || blobs[1].ID != b2.ID {
		t.Error("blobs not ordered oldest first")
	}
	if !bytes.Equal(blobs[0].Data, []byte{1, 2, 3, 4}) {
		t.Error("blob payload mismatch")
	}

	if err := store.DeleteBlobsByMemoryID(m.ID); err != nil {
		t.Fatalf("DeleteBlobsByMemoryID() failed: %v", err)
	}
	blobs, err = store.GetBlobsByMemoryID(m.ID)
	if err != nil {
		t.Fatalf("GetBlobsByMemoryID() after delete failed: %v", err)
	}
	if len(blobs) != 0 {
		t.Errorf("expected no blobs after bulk delete, got %d", len(blobs))
	}
}
