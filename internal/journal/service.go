// Package journal implements the action layer of the Driftwood core: the
// public operations that orchestrate the persistence store and keep the
// state container in sync with it.
package journal

import (
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kimhsiao/driftwood/internal/db"
	apperrors "github.com/kimhsiao/driftwood/internal/errors"
	"github.com/kimhsiao/driftwood/internal/logging"
	"github.com/kimhsiao/driftwood/internal/media"
	"github.com/kimhsiao/driftwood/internal/models"
	"github.com/kimhsiao/driftwood/internal/state"
)

// Service exposes the journal operations to presentation consumers. Every
// write goes to the store first; the container is only updated after the
// durable write succeeds, so a failed write leaves last-known-good state.
type Service struct {
	store db.JournalStore
	state *state.Container
	log   *logging.Logger
	now   func() time.Time

	startOnce sync.Once
}

// NewService creates a Service on the wall clock.
func NewService(store db.JournalStore, container *state.Container, log *logging.Logger) *Service {
	return NewServiceWithClock(store, container, log, time.Now)
}

// NewServiceWithClock creates a Service with an injected clock, used by
// tests to control seal validation.
func NewServiceWithClock(store db.JournalStore, container *state.Container, log *logging.Logger, now func() time.Time) *Service {
	return &Service{store: store, state: container, log: log, now: now}
}

// State returns the container consumers read snapshots from.
func (s *Service) State() *state.Container {
	return s.state
}

// Start seeds the container from the store: memories and the first
// encounter load in parallel, once, at application startup.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.LoadMemories()
		}()
		go func() {
			defer wg.Done()
			s.LoadFirstEncounter()
		}()
		wg.Wait()
	})
}

// =====================================================
// Memories
// =====================================================

// LoadMemories fetches all memories and replaces the container's list.
// A failure lands in the container's error field and leaves the list
// unchanged; the loading flag always clears.
func (s *Service) LoadMemories() error {
	s.state.Dispatch(state.SetLoading{Loading: true})
	defer s.state.Dispatch(state.SetLoading{Loading: false})

	memories, err := s.store.GetAllMemories()
	if err != nil {
		s.log.Error("failed to load memories", err)
		s.state.Dispatch(state.SetError{Message: err.Error()})
		return err
	}

	s.state.Dispatch(state.SetMemories{Memories: memories})
	s.log.Debug("memories loaded", map[string]interface{}{"count": len(memories)})
	return nil
}

// CreateMemory validates and persists a new memory, then prepends it to
// the container's list. The created record is returned so callers can
// navigate to it immediately.
func (s *Service) CreateMemory(draft models.Memory) (*models.Memory, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "title must not be empty")
	}
	if strings.TrimSpace(draft.Content) == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "content must not be empty")
	}

	if err := s.store.CreateMemory(&draft); err != nil {
		s.log.Error("failed to create memory", err)
		return nil, err
	}

	s.state.Dispatch(state.AddMemory{Memory: draft})
	s.log.Info("memory created", map[string]interface{}{"id": draft.ID.String()})
	return &draft, nil
}

// UpdateMemory merges partial fields onto a stored memory. The container
// is updated only when the store returned a record; an absent id is
// reported back without touching state.
func (s *Service) UpdateMemory(id models.UUID, upd db.MemoryUpdate) (*models.Memory, error) {
	m, err := s.store.UpdateMemory(id, upd)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrMemoryNotFound) {
			s.log.Error("failed to update memory", err, map[string]interface{}{"id": id.String()})
		}
		return nil, err
	}

	s.state.Dispatch(state.UpdateMemory{Memory: *m})
	return m, nil
}

// DeleteMemory lets a memory drift: the record and all of its attachment
// blobs are removed in one durable transaction before the container
// entry goes away. Never optimistic.
func (s *Service) DeleteMemory(id models.UUID) error {
	if err := s.store.DeleteMemory(id); err != nil {
		if !apperrors.Is(err, apperrors.ErrMemoryNotFound) {
			s.log.Error("failed to delete memory", err, map[string]interface{}{"id": id.String()})
		}
		return err
	}

	s.state.Dispatch(state.DeleteMemory{ID: id})
	s.log.Info("memory deleted", map[string]interface{}{"id": id.String()})
	return nil
}

// SealMemory hides a memory until unlockAt, which must be strictly in
// the future.
func (s *Service) SealMemory(id models.UUID, unlockAt time.Time) (*models.Memory, error) {
	if !unlockAt.After(s.now()) {
		return nil, apperrors.New(apperrors.ErrValidation, "unlock time must be in the future")
	}

	m, err := s.store.SealMemory(id, unlockAt)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrMemoryNotFound) {
			s.log.Error("failed to seal memory", err, map[string]interface{}{"id": id.String()})
		}
		return nil, err
	}

	s.state.Dispatch(state.UpdateMemory{Memory: *m})
	s.log.Info("memory sealed", map[string]interface{}{
		"id":        id.String(),
		"unlock_at": unlockAt.UTC().Format(time.RFC3339),
	})
	return m, nil
}

// UnsealMemory clears a memory's unlock time ahead of schedule.
func (s *Service) UnsealMemory(id models.UUID) (*models.Memory, error) {
	m, err := s.store.UnsealMemory(id)
	if err != nil {
		return nil, err
	}

	s.state.Dispatch(state.UpdateMemory{Memory: *m})
	s.log.Info("memory unsealed", map[string]interface{}{"id": id.String()})
	return m, nil
}

// GetMemory reads one memory with freshly derived status, bypassing the
// container so sealed/active is never stale.
func (s *Service) GetMemory(id models.UUID) (*models.Memory, error) {
	return s.store.GetMemoryByID(id)
}

// =====================================================
// First encounter
// =====================================================

// LoadFirstEncounter seeds the container's first-encounter snapshot.
// Absence leaves the snapshot unset and is not an error.
func (s *Service) LoadFirstEncounter() error {
	fe, err := s.store.GetFirstEncounter()
	if apperrors.Is(err, apperrors.ErrEncounterNotFound) {
		return nil
	}
	if err != nil {
		s.log.Error("failed to load first encounter", err)
		return err
	}

	s.state.Dispatch(state.SetFirstEncounter{Encounter: *fe})
	return nil
}

// SaveFirstEncounter persists a draft of the singleton. Once the stored
// record is locked every save is refused; this boundary is what keeps
// the record frozen, since the store itself upserts unconditionally.
// Draft saves can never set the lock flag: the only way to lock is
// LockFirstEncounter.
func (s *Service) SaveFirstEncounter(fe models.FirstEncounter) error {
	existing, err := s.store.GetFirstEncounter()
	if err != nil && !apperrors.Is(err, apperrors.ErrEncounterNotFound) {
		return err
	}
	if existing != nil {
		if existing.IsLocked {
			return apperrors.New(apperrors.ErrEncounterLocked, "first encounter is locked and can no longer change")
		}
		if fe.CreatedAt == 0 {
			fe.CreatedAt = existing.CreatedAt
		}
	}
	fe.IsLocked = false
	fe.LockedAt = nil

	if err := s.store.SaveFirstEncounter(&fe); err != nil {
		s.log.Error("failed to save first encounter", err)
		return err
	}

	// Write-through: state mirrors what was just written, no re-read.
	s.state.Dispatch(state.SetFirstEncounter{Encounter: fe})
	return nil
}

// LockFirstEncounter freezes the singleton forever, then re-reads it so
// the container picks up the store-assigned lock timestamp. Idempotent.
func (s *Service) LockFirstEncounter() error {
	if err := s.store.LockFirstEncounter(); err != nil {
		s.log.Error("failed to lock first encounter", err)
		return err
	}

	fe, err := s.store.GetFirstEncounter()
	if apperrors.Is(err, apperrors.ErrEncounterNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.state.Dispatch(state.SetFirstEncounter{Encounter: *fe})
	s.log.Info("first encounter locked")
	return nil
}

// =====================================================
// Attachments
// =====================================================

// SaveAttachment stores a binary attachment for an existing memory and
// links it into the memory's blob id list. The MIME type is sniffed from
// the payload when the caller does not supply one; image payloads are
// probed for their dimensions.
func (s *Service) SaveAttachment(memoryID models.UUID, kind models.BlobKind, mimeType string, data []byte) (*models.BlobRecord, error) {
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.ErrAttachmentInvalid, "attachment payload is empty")
	}

	mem, err := s.store.GetMemoryByID(memoryID)
	if err != nil {
		return nil, err
	}

	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	if !kindMatchesMime(kind, mimeType) {
		return nil, apperrors.Newf(apperrors.ErrAttachmentInvalid,
			"%s attachment cannot carry %s payload", kind, mimeType)
	}

	blob := &models.BlobRecord{
		MemoryID: memoryID,
		Kind:     kind,
		MimeType: mimeType,
		Data:     data,
	}
	if kind == models.BlobImage {
		info, err := media.ProbeImage(data)
		if err != nil {
			return nil, err
		}
		blob.Width = info.Width
		blob.Height = info.Height
	}

	if err := s.store.SaveBlobRecord(blob); err != nil {
		s.log.Error("failed to save attachment", err, map[string]interface{}{"memory_id": memoryID.String()})
		return nil, err
	}

	ids := append(append([]models.UUID{}, mem.BlobIDs...), blob.ID)
	updated, err := s.store.UpdateMemory(memoryID, db.MemoryUpdate{BlobIDs: &ids})
	if err != nil {
		return nil, err
	}

	s.state.Dispatch(state.UpdateMemory{Memory: *updated})
	s.log.Info("attachment saved", map[string]interface{}{
		"memory_id": memoryID.String(),
		"blob_id":   blob.ID.String(),
		"mime_type": mimeType,
		"size":      blob.Size,
	})
	return blob, nil
}

// Attachments returns every blob owned by the memory, oldest first.
func (s *Service) Attachments(memoryID models.UUID) ([]models.BlobRecord, error) {
	return s.store.GetBlobsByMemoryID(memoryID)
}

// kindMatchesMime checks the declared or sniffed MIME type against the
// attachment kind.
func kindMatchesMime(kind models.BlobKind, mimeType string) bool {
	switch kind {
	case models.BlobImage:
		return strings.HasPrefix(mimeType, "image/")
	case models.BlobAudio:
		return strings.HasPrefix(mimeType, "audio/")
	default:
		return false
	}
}
