package export

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	apperrors "github.com/kimhsiao/driftwood/internal/errors"
)

// Encrypted archives open with a fixed magic so Import can tell them
// apart from plain gzip archives. The password itself is never stored;
// it must be supplied again on import.
const (
	archiveMagic = "DWARC1"

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	saltLength  = 32
	nonceLength = 12
)

// deriveKey stretches the password into a 32-byte AES key with an
// iterated SHA-256 chain over password and salt.
func deriveKey(password string, salt []byte) []byte {
	hash := sha256.Sum256([]byte(password))
	for i := 0; i < 100000; i++ {
		hash = sha256.Sum256(append(hash[:], salt...))
	}
	return hash[:]
}

// sealArchive encrypts the archive payload with AES-256-GCM. Layout:
// magic | salt | nonce | ciphertext.
func sealArchive(data []byte, password string) ([]byte, error) {
	if len(password) < MinPasswordLength {
		return nil, apperrors.Newf(apperrors.ErrPasswordInvalid, "password must be at least %d characters", MinPasswordLength)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to generate salt", err)
	}
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to generate nonce", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to create GCM", err)
	}

	out := make([]byte, 0, len(archiveMagic)+saltLength+nonceLength+len(data)+gcm.Overhead())
	out = append(out, archiveMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, data, nil)
	return out, nil
}

// isSealed reports whether the bytes carry the encrypted-archive magic.
func isSealed(data []byte) bool {
	return len(data) >= len(archiveMagic) && string(data[:len(archiveMagic)]) == archiveMagic
}

// openArchive decrypts an archive produced by sealArchive. A GCM
// authentication failure almost always means a wrong password.
func openArchive(data []byte, password string) ([]byte, error) {
	if !isSealed(data) {
		return nil, apperrors.New(apperrors.ErrArchiveInvalid, "not an encrypted archive")
	}
	rest := data[len(archiveMagic):]
	if len(rest) < saltLength+nonceLength {
		return nil, apperrors.New(apperrors.ErrArchiveInvalid, "truncated archive header")
	}
	salt := rest[:saltLength]
	nonce := rest[saltLength : saltLength+nonceLength]
	ciphertext := rest[saltLength+nonceLength:]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to create GCM", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPasswordInvalid, "failed to decrypt archive", err)
	}
	return plaintext, nil
}
