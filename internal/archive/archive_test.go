package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/farmaudit/farmaudit/internal/config"
	"github.com/farmaudit/farmaudit/internal/domain"
)

func TestShouldArchive(t *testing.T) {
	on := &config.Config{ArchiveBanned: true, ArchiveLimited: true}
	off := &config.Config{}

	tests := []struct {
		status domain.Status
		cfg    *config.Config
		want   bool
	}{
		{domain.StatusActive, on, false},
		{domain.StatusBanned, on, true},
		{domain.StatusBanned, off, false},
		{domain.StatusLimited, on, true},
		{domain.StatusLimited, off, false},
		{domain.StatusUnknown, on, false},
		{domain.StatusUnknown, off, false},
	}

	for _, tt := range tests {
		if got := ShouldArchive(tt.status, tt.cfg); got != tt.want {
			t.Errorf("ShouldArchive(%s, %+v) = %v, want %v", tt.status, tt.cfg, got, tt.want)
		}
	}
}

func TestArchive_MovesPrimaryAndSidecars(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "farms")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	primary := []byte(`{"username":"u","password":"p"}`)
	if err := os.WriteFile(filepath.Join(dir, "a1.json"), primary, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a1.mafile"), []byte(`{"shared_secret":"s"}`), 0644); err != nil {
		t.Fatal(err)
	}
	// No .secret.yaml or .secret sidecar: those must be skipped silently.

	a := &Archiver{Root: root}
	if err := a.Archive("farms/a1", domain.StatusBanned); err != nil {
		t.Fatalf("Archive() = %v", err)
	}

	moved, err := os.ReadFile(filepath.Join(dir, "banned", "a1.json"))
	if err != nil {
		t.Fatalf("primary not moved: %v", err)
	}
	if string(moved) != string(primary) {
		t.Error("moved primary differs from original bytes")
	}
	if _, err := os.Stat(filepath.Join(dir, "banned", "a1.mafile")); err != nil {
		t.Errorf("sidecar not moved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a1.json")); !os.IsNotExist(err) {
		t.Error("primary still present in source directory")
	}
}

func TestArchive_MissingPrimaryFails(t *testing.T) {
	a := &Archiver{Root: t.TempDir()}
	if err := a.Archive("ghost", domain.StatusLimited); err == nil {
		t.Error("want error for missing primary file")
	}
}
