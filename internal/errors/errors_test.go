// Package errors tests for error code definitions.
package errors

import (
	"fmt"
	"testing"
)

// TestAppError_Error verifies the formatted error string.
func TestAppError_Error(t *testing.T) {
	e := New(ErrValidation, "title must not be empty")
	want := "[VALIDATION_ERROR] title must not be empty"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

// TestAppError_Error_wrapped verifies the cause is appended.
func TestAppError_Error_wrapped(t *testing.T) {
	cause := fmt.Errorf("disk full")
	e := Wrap(ErrStorage, "write failed", cause)
	want := "[STORAGE_ERROR] write failed: disk full"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

// TestAppError_Unwrap verifies the cause is reachable.
func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	e := Wrap(ErrStorage, "write failed", cause)
	if e.Unwrap() != cause {
		t.Error("Unwrap() did not return the cause")
	}

	if New(ErrValidation, "x").Unwrap() != nil {
		t.Error("Unwrap() on unwrapped error should be nil")
	}
}

// TestIs verifies code matching, including through fmt.Errorf chains.
func TestIs(t *testing.T) {
	e := New(ErrMemoryNotFound, "no such memory")

	if !Is(e, ErrMemoryNotFound) {
		t.Error("Is() should match the error's own code")
	}
	if Is(e, ErrStorage) {
		t.Error("Is() should not match a different code")
	}
	if Is(nil, ErrMemoryNotFound) {
		t.Error("Is(nil) should be false")
	}
	if Is(fmt.Errorf("plain"), ErrMemoryNotFound) {
		t.Error("Is() on a plain error should be false")
	}

	wrapped := fmt.Errorf("loading: %w", e)
	if !Is(wrapped, ErrMemoryNotFound) {
		t.Error("Is() should see through %w wrapping")
	}
}

// TestNewf verifies message formatting.
func TestNewf(t *testing.T) {
	e := Newf(ErrMemoryNotFound, "memory not found: %s", "abc")
	if e.Message != "memory not found: abc" {
		t.Errorf("Newf message = %q", e.Message)
	}
	if e.Code != ErrMemoryNotFound {
		t.Errorf("Newf code = %q", e.Code)
	}
}

// TestCodeOf verifies code extraction with the internal fallback.
func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(ErrEncounterLocked, "frozen")); got != ErrEncounterLocked {
		t.Errorf("CodeOf() = %q, want ENCOUNTER_LOCKED", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != ErrInternal {
		t.Errorf("CodeOf(plain) = %q, want INTERNAL_ERROR", got)
	}
}
