// Package export provides journal backup archives: export to a single
// file, import back, with optional password encryption.
package export

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kimhsiao/driftwood/internal/db"
	apperrors "github.com/kimhsiao/driftwood/internal/errors"
	"github.com/kimhsiao/driftwood/internal/logging"
	"github.com/kimhsiao/driftwood/internal/models"
)

const manifestVersion = 1

// Service builds and restores journal archives.
type Service struct {
	store db.ArchiveStore
	log   *logging.Logger
	now   func() time.Time
}

// NewService creates an export Service using the wall clock.
func NewService(store db.ArchiveStore, log *logging.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// Manifest describes an archive's contents. It never carries the
// password or anything derived from it.
type Manifest struct {
	Version      int       `json:"version"`
	ExportedAt   time.Time `json:"exported_at"`
	MemoryCount  int       `json:"memory_count"`
	BlobCount    int       `json:"blob_count"`
	HasEncounter bool      `json:"has_encounter"`
	Checksum     string    `json:"checksum"`
}

// Result reports a completed export.
type Result struct {
	FilePath    string
	SizeBytes   int64
	MemoryCount int
	BlobCount   int
	Checksum    string
	Encrypted   bool
}

// ImportResult reports a completed import.
type ImportResult struct {
	ImportedMemories  int
	SkippedMemories   int
	ImportedBlobs     int
	ImportedEncounter bool
}

// Export writes every memory, blob, and the first-encounter record to a
// single archive file. A non-empty password encrypts the archive.
func (s *Service) Export(outputPath, password string) (*Result, error) {
	memories, err := s.store.GetAllMemories()
	if err != nil {
		return nil, err
	}

	blobs := []models.BlobRecord{}
	for _, m := range memories {
		bs, err := s.store.GetBlobsByMemoryID(m.ID)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, bs...)
	}

	encounter, err := s.store.GetFirstEncounter()
	if err != nil && !apperrors.Is(err, apperrors.ErrEncounterNotFound) {
		return nil, err
	}

	memoriesJSON, err := json.Marshal(memories)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to encode memories", err)
	}

	manifest := Manifest{
		Version:      manifestVersion,
		ExportedAt:   s.now().UTC(),
		MemoryCount:  len(memories),
		BlobCount:    len(blobs),
		HasEncounter: encounter != nil,
		Checksum:     checksum(memoriesJSON),
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	if err := writeEntry(tw, "manifest.json", mustJSON(manifest)); err != nil {
		return nil, err
	}
	if err := writeEntry(tw, "memories.json", memoriesJSON); err != nil {
		return nil, err
	}
	if encounter != nil {
		if err := writeEntry(tw, "encounter.json", mustJSON(encounter)); err != nil {
			return nil, err
		}
	}
	for i := range blobs {
		name := fmt.Sprintf("blobs/%s.json", blobs[i].ID)
		if err := writeEntry(tw, name, mustJSON(&blobs[i])); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to finish archive", err)
	}
	if err := gz.Close(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to compress archive", err)
	}

	data := buf.Bytes()
	encrypted := password != ""
	if encrypted {
		data, err = sealArchive(data, password)
		if err != nil {
			return nil, err
		}
	}

	if err := os.WriteFile(outputPath, data, 0o600); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to write archive file", err)
	}

	s.log.Info("exported journal archive", map[string]interface{}{
		"path":      outputPath,
		"memories":  len(memories),
		"blobs":     len(blobs),
		"encrypted": encrypted,
	})

	return &Result{
		FilePath:    outputPath,
		SizeBytes:   int64(len(data)),
		MemoryCount: len(memories),
		BlobCount:   len(blobs),
		Checksum:    checksum(data),
		Encrypted:   encrypted,
	}, nil
}

// Import restores an archive. Memories already present keep their
// stored version and are skipped, along with their blobs; an existing
// first-encounter record is never overwritten.
func (s *Service) Import(archivePath, password string) (*ImportResult, error) {
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read archive file", err)
	}

	if isSealed(data) {
		if password == "" {
			return nil, apperrors.New(apperrors.ErrPasswordInvalid, "archive is encrypted, a password is required")
		}
		data, err = openArchive(data, password)
		if err != nil {
			return nil, err
		}
	}

	entries, err := readEntries(data)
	if err != nil {
		return nil, err
	}

	manifestJSON, ok := entries["manifest.json"]
	if !ok {
		return nil, apperrors.New(apperrors.ErrArchiveInvalid, "archive has no manifest")
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrArchiveInvalid, "corrupt manifest", err)
	}
	if manifest.Version != manifestVersion {
		return nil, apperrors.Newf(apperrors.ErrArchiveInvalid, "unsupported archive version %d", manifest.Version)
	}

	memoriesJSON, ok := entries["memories.json"]
	if !ok {
		return nil, apperrors.New(apperrors.ErrArchiveInvalid, "archive has no memories entry")
	}
	if manifest.Checksum != checksum(memoriesJSON) {
		return nil, apperrors.New(apperrors.ErrArchiveInvalid, "memories checksum mismatch")
	}
	var memories []models.Memory
	if err := json.Unmarshal(memoriesJSON, &memories); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrArchiveInvalid, "corrupt memories entry", err)
	}

	result := &ImportResult{}
	for i := range memories {
		m := memories[i]
		if _, err := s.store.GetMemoryByID(m.ID); err == nil {
			result.SkippedMemories++
			continue
		} else if !apperrors.Is(err, apperrors.ErrMemoryNotFound) {
			return nil, err
		}

		if err := s.store.ImportMemory(&m); err != nil {
			return nil, err
		}
		result.ImportedMemories++

		for _, blobID := range m.BlobIDs {
			blobJSON, ok := entries[fmt.Sprintf("blobs/%s.json", blobID)]
			if !ok {
				return nil, apperrors.Newf(apperrors.ErrArchiveInvalid, "archive is missing blob %s", blobID)
			}
			var b models.BlobRecord
			if err := json.Unmarshal(blobJSON, &b); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrArchiveInvalid, "corrupt blob entry", err)
			}
			if err := s.store.ImportBlob(&b); err != nil {
				return nil, err
			}
			result.ImportedBlobs++
		}
	}

	if encounterJSON, ok := entries["encounter.json"]; ok {
		_, err := s.store.GetFirstEncounter()
		if apperrors.Is(err, apperrors.ErrEncounterNotFound) {
			var fe models.FirstEncounter
			if err := json.Unmarshal(encounterJSON, &fe); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrArchiveInvalid, "corrupt encounter entry", err)
			}
			if err := s.store.SaveFirstEncounter(&fe); err != nil {
				return nil, err
			}
			result.ImportedEncounter = true
		} else if err != nil {
			return nil, err
		}
	}

	s.log.Info("imported journal archive", map[string]interface{}{
		"path":     archivePath,
		"imported": result.ImportedMemories,
		"skipped":  result.SkippedMemories,
	})
	return result, nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{Name: name, Mode: 0o600, Size: int64(len(data))}
	if err := tw.WriteHeader(hdr); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to write archive header", err)
	}
	if _, err := tw.Write(data); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to write archive entry", err)
	}
	return nil
}

func readEntries(data []byte) (map[string][]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrArchiveInvalid, "archive is not gzip", err)
	}
	defer gz.Close()

	entries := map[string][]byte{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrArchiveInvalid, "corrupt archive stream", err)
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrArchiveInvalid, "corrupt archive entry", err)
		}
		entries[hdr.Name] = content
	}
	return entries, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func mustJSON(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}
