// Package db provides CRUD operations for the Driftwood collections.
package db

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	apperrors "github.com/kimhsiao/driftwood/internal/errors"
	"github.com/kimhsiao/driftwood/internal/models"
	"github.com/kimhsiao/driftwood/internal/uuid"
)

// Store provides durable, transactional access to the three journal
// collections: memory records, attachment blobs, and the settings
// singleton. A memory's status is derived from sealed_until against the
// store clock on every read; the stored status column is written as a
// convenience but never trusted.
type Store struct {
	db  *sql.DB
	now func() time.Time

	// Prepared statement cache for hot read paths.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewStore creates a Store using the wall clock.
func NewStore(db *DB) *Store {
	return NewStoreWithClock(db, time.Now)
}

// NewStoreWithClock creates a Store with an injected clock. Tests use
// this to advance time past an unlock instant without sleeping.
func NewStoreWithClock(db *DB, now func() time.Time) *Store {
	return &Store{db: db.DB, now: now}
}

// prepare gets or creates a cached prepared statement.
func (s *Store) prepare(query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare statement", err)
	}
	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (s *Store) Close() error {
	var firstErr error
	s.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// Memory Operations
// =====================================================

const memoryColumns = `id, title, content, content_type, meta, blob_ids, sealed_until, created_at, updated_at`

// scanMemory reads one row into a Memory and derives its status.
func (s *Store) scanMemory(row interface{ Scan(...interface{}) error }) (*models.Memory, error) {
	var m models.Memory
	var meta, blobIDs sql.NullString
	var sealedUntil sql.NullInt64

	err := row.Scan(&m.ID, &m.Title, &m.Content, &m.ContentType,
		&meta, &blobIDs, &sealedUntil, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if meta.Valid && meta.String != "" {
		var mm models.MemoryMeta
		if err := json.Unmarshal([]byte(meta.String), &mm); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "corrupt meta payload", err)
		}
		m.Meta = &mm
	}
	if blobIDs.Valid && blobIDs.String != "" {
		var ids []models.UUID
		if err := json.Unmarshal([]byte(blobIDs.String), &ids); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "corrupt blob_ids payload", err)
		}
		m.BlobIDs = ids
	}
	if sealedUntil.Valid {
		v := sealedUntil.Int64
		m.SealedUntil = &v
	}

	m.Status = m.StatusAt(s.now())
	return &m, nil
}

// encodeMeta serializes the optional metadata block for storage.
func encodeMeta(meta *models.MemoryMeta) (interface{}, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to encode meta", err)
	}
	return string(data), nil
}

// encodeBlobIDs serializes the attachment id list for storage.
func encodeBlobIDs(ids []models.UUID) (interface{}, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to encode blob ids", err)
	}
	return string(data), nil
}

// GetAllMemories returns every memory, most recent first, with status
// freshly derived. An empty store yields an empty slice, not an error.
func (s *Store) GetAllMemories() ([]models.Memory, error) {
	// rowid breaks created_at ties in insertion order, so two memories
	// recorded within the same second still list newest first.
	query := `SELECT ` + memoryColumns + ` FROM records ORDER BY created_at DESC, rowid DESC`
	stmt, err := s.prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list memories", err)
	}
	defer rows.Close()

	memories := []models.Memory{}
	for rows.Next() {
		m, err := s.scanMemory(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan memory", err)
		}
		memories = append(memories, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to iterate memories", err)
	}
	return memories, nil
}

// GetMemoryByID retrieves a memory with derived status. Absence is
// reported as MEMORY_NOT_FOUND.
func (s *Store) GetMemoryByID(id models.UUID) (*models.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM records WHERE id = ?`
	stmt, err := s.prepare(query)
	if err != nil {
		return nil, err
	}

	m, err := s.scanMemory(stmt.QueryRow(id))
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrMemoryNotFound, "memory not found: %s", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to get memory", err)
	}
	return m, nil
}

// CreateMemory persists a new memory. The id and both timestamps are
// assigned here; the stored representation always starts active.
func (s *Store) CreateMemory(m *models.Memory) error {
	now := s.now()
	m.ID = models.UUID(uuid.New())
	m.CreatedAt = now.Unix()
	m.UpdatedAt = now.Unix()
	m.Status = models.StatusActive
	if m.ContentType == "" {
		m.ContentType = models.ContentText
	}

	meta, err := encodeMeta(m.Meta)
	if err != nil {
		return err
	}
	blobIDs, err := encodeBlobIDs(m.BlobIDs)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO records (id, title, content, content_type, status, meta, blob_ids, sealed_until, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query, m.ID, m.Title, m.Content, m.ContentType,
		m.Status, meta, blobIDs, m.SealedUntil, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to create memory", err)
	}
	return nil
}

// MemoryUpdate carries the partial fields of an update. Nil pointers
// leave the stored value untouched; ClearSealedUntil expresses the
// otherwise unrepresentable "unset the unlock time".
type MemoryUpdate struct {
	Title            *string
	Content          *string
	ContentType      *models.ContentType
	Meta             *models.MemoryMeta
	BlobIDs          *[]models.UUID
	SealedUntil      *int64
	ClearSealedUntil bool
}

// UpdateMemory merges the partial fields onto the stored record, bumps
// updated_at, and returns the merged record with derived status.
// Absence is reported as MEMORY_NOT_FOUND; nothing is created implicitly.
func (s *Store) UpdateMemory(id models.UUID, upd MemoryUpdate) (*models.Memory, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to begin update", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+memoryColumns+` FROM records WHERE id = ?`, id)
	m, err := s.scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrMemoryNotFound, "memory not found: %s", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to read memory for update", err)
	}

	if upd.Title != nil {
		m.Title = *upd.Title
	}
	if upd.Content != nil {
		m.Content = *upd.Content
	}
	if upd.ContentType != nil {
		m.ContentType = *upd.ContentType
	}
	if upd.Meta != nil {
		m.Meta = upd.Meta
	}
	if upd.BlobIDs != nil {
		m.BlobIDs = *upd.BlobIDs
	}
	if upd.ClearSealedUntil {
		m.SealedUntil = nil
	} else if upd.SealedUntil != nil {
		m.SealedUntil = upd.SealedUntil
	}
	m.Touch(s.now())

	meta, err := encodeMeta(m.Meta)
	if err != nil {
		return nil, err
	}
	blobIDs, err := encodeBlobIDs(m.BlobIDs)
	if err != nil {
		return nil, err
	}

	m.Status = m.StatusAt(s.now())
	query := `
	UPDATE records
	SET title = ?, content = ?, content_type = ?, status = ?, meta = ?, blob_ids = ?, sealed_until = ?, updated_at = ?
	WHERE id = ?
	`
	if _, err := tx.Exec(query, m.Title, m.Content, m.ContentType, m.Status,
		meta, blobIDs, m.SealedUntil, m.UpdatedAt, m.ID); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to update memory", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to commit update", err)
	}
	return m, nil
}

// DeleteMemory removes the memory and every blob it owns in one
// transaction. Either both sides commit or neither does.
func (s *Store) DeleteMemory(id models.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to begin delete", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to delete memory", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.Newf(apperrors.ErrMemoryNotFound, "memory not found: %s", id)
	}

	if _, err := tx.Exec(`DELETE FROM blobs WHERE memory_id = ?`, id); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to delete attachment blobs", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to commit delete", err)
	}
	return nil
}

// SealMemory hides the memory until unlockAt. The caller is responsible
// for ensuring unlockAt is in the future; the store does not validate.
func (s *Store) SealMemory(id models.UUID, unlockAt time.Time) (*models.Memory, error) {
	until := unlockAt.Unix()
	return s.UpdateMemory(id, MemoryUpdate{SealedUntil: &until})
}

// UnsealMemory clears the unlock time, making the memory active again.
func (s *Store) UnsealMemory(id models.UUID) (*models.Memory, error) {
	return s.UpdateMemory(id, MemoryUpdate{ClearSealedUntil: true})
}

// =====================================================
// First Encounter Operations
// =====================================================

// GetFirstEncounter retrieves the singleton record. Absence is reported
// as ENCOUNTER_NOT_FOUND.
func (s *Store) GetFirstEncounter() (*models.FirstEncounter, error) {
	stmt, err := s.prepare(`SELECT payload FROM settings WHERE id = ?`)
	if err != nil {
		return nil, err
	}

	var payload string
	err = stmt.QueryRow(models.FirstEncounterID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrEncounterNotFound, "first encounter not recorded")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to get first encounter", err)
	}

	var fe models.FirstEncounter
	if err := json.Unmarshal([]byte(payload), &fe); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "corrupt first encounter payload", err)
	}
	return &fe, nil
}

// SaveFirstEncounter upserts the singleton by its fixed id. The
// locked-is-frozen invariant is enforced by the journal layer, not here.
func (s *Store) SaveFirstEncounter(fe *models.FirstEncounter) error {
	fe.ID = models.FirstEncounterID
	if fe.CreatedAt == 0 {
		fe.CreatedAt = s.now().Unix()
	}

	payload, err := json.Marshal(fe)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to encode first encounter", err)
	}

	query := `
	INSERT INTO settings (id, payload) VALUES (?, ?)
	ON CONFLICT(id) DO UPDATE SET payload = excluded.payload
	`
	if _, err := s.db.Exec(query, fe.ID, string(payload)); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to save first encounter", err)
	}
	return nil
}

// LockFirstEncounter makes the singleton read-only forever. A missing or
// already-locked record is a no-op, so locking is idempotent.
func (s *Store) LockFirstEncounter() error {
	fe, err := s.GetFirstEncounter()
	if apperrors.Is(err, apperrors.ErrEncounterNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if fe.IsLocked {
		return nil
	}

	lockedAt := s.now().Unix()
	fe.IsLocked = true
	fe.LockedAt = &lockedAt
	return s.SaveFirstEncounter(fe)
}

// =====================================================
// Blob Operations
// =====================================================

// SaveBlobRecord persists a new attachment blob. The id, size, and
// creation timestamp are assigned here.
func (s *Store) SaveBlobRecord(b *models.BlobRecord) error {
	b.ID = models.UUID(uuid.New())
	b.CreatedAt = s.now().Unix()
	b.Size = int64(len(b.Data))

	query := `
	INSERT INTO blobs (id, memory_id, kind, mime_type, size, data, width, height, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, b.ID, b.MemoryID, b.Kind, b.MimeType,
		b.Size, b.Data, b.Width, b.Height, b.CreatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to save blob", err)
	}
	return nil
}

// GetBlobsByMemoryID returns every blob owned by the given memory,
// oldest first.
func (s *Store) GetBlobsByMemoryID(memoryID models.UUID) ([]models.BlobRecord, error) {
	stmt, err := s.prepare(`
	SELECT id, memory_id, kind, mime_type, size, data, width, height, created_at
	FROM blobs WHERE memory_id = ? ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(memoryID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list blobs", err)
	}
	defer rows.Close()

	blobs := []models.BlobRecord{}
	for rows.Next() {
		var b models.BlobRecord
		if err := rows.Scan(&b.ID, &b.MemoryID, &b.Kind, &b.MimeType,
			&b.Size, &b.Data, &b.Width, &b.Height, &b.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan blob", err)
		}
		blobs = append(blobs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to iterate blobs", err)
	}
	return blobs, nil
}

// ImportMemory inserts a record preserving its id, timestamps, and seal
// state. Archive restore uses this; CreateMemory is the normal path.
func (s *Store) ImportMemory(m *models.Memory) error {
	meta, err := encodeMeta(m.Meta)
	if err != nil {
		return err
	}
	blobIDs, err := encodeBlobIDs(m.BlobIDs)
	if err != nil {
		return err
	}
	if m.ContentType == "" {
		m.ContentType = models.ContentText
	}

	query := `
	INSERT INTO records (id, title, content, content_type, status, meta, blob_ids, sealed_until, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query, m.ID, m.Title, m.Content, m.ContentType,
		m.StatusAt(s.now()), meta, blobIDs, m.SealedUntil, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to import memory", err)
	}
	return nil
}

// ImportBlob inserts a blob preserving its id and creation timestamp.
func (s *Store) ImportBlob(b *models.BlobRecord) error {
	query := `
	INSERT INTO blobs (id, memory_id, kind, mime_type, size, data, width, height, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, b.ID, b.MemoryID, b.Kind, b.MimeType,
		b.Size, b.Data, b.Width, b.Height, b.CreatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to import blob", err)
	}
	return nil
}

// DeleteBlobsByMemoryID removes every blob owned by the given memory.
func (s *Store) DeleteBlobsByMemoryID(memoryID models.UUID) error {
	if _, err := s.db.Exec(`DELETE FROM blobs WHERE memory_id = ?`, memoryID); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to delete blobs", err)
	}
	return nil
}
