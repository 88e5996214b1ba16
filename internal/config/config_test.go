package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/kimhsiao/driftwood/internal/errors"
)

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("default data dir is empty")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Journal.DefaultSealDuration != 365*24*time.Hour {
		t.Errorf("default seal duration = %v", cfg.Journal.DefaultSealDuration)
	}
}

func TestLoad_fileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  data_dir: /tmp/driftwood-test
journal:
  default_seal_duration: 48h
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Storage.DataDir != "/tmp/driftwood-test" {
		t.Errorf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Journal.DefaultSealDuration != 48*time.Hour {
		t.Errorf("seal duration = %v", cfg.Journal.DefaultSealDuration)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoad_partialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("unspecified data dir must keep its default")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("DRIFTWOOD_DATA_DIR", "/tmp/from-env")
	t.Setenv("DRIFTWOOD_LOG_LEVEL", "error")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Storage.DataDir != "/tmp/from-env" {
		t.Errorf("data dir = %q, want env override", cfg.Storage.DataDir)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("level = %q, want env override", cfg.Logging.Level)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "storage: [not\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"negative seal duration", "journal:\n  default_seal_duration: -1h\n"},
		{"empty data dir", "storage:\n  data_dir: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write failed: %v", err)
			}
			if _, err := Load(path); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("Load() error = %v, want CONFIG_INVALID", err)
			}
		})
	}
}
