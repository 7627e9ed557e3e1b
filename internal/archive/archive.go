package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/farmaudit/farmaudit/internal/config"
	"github.com/farmaudit/farmaudit/internal/domain"
)

// sidecarExtensions are the optional files tried next to an account's
// primary record when archiving. Missing ones are silently skipped.
var sidecarExtensions = []string{".mafile", ".secret.yaml", ".secret"}

// ShouldArchive decides archive-or-skip for a terminal status. Active
// accounts stay put; Unknown accounts are always left in place for manual
// inspection, regardless of configuration.
func ShouldArchive(status domain.Status, cfg *config.Config) bool {
	switch status {
	case domain.StatusBanned:
		return cfg.ArchiveBanned
	case domain.StatusLimited:
		return cfg.ArchiveLimited
	default:
		return false
	}
}

// Archiver moves an account's files into a status-labeled subdirectory
// alongside the primary file.
type Archiver struct {
	Root string
}

// Archive moves the account's primary record plus any sidecars into a
// subdirectory named after the status, creating it if absent. Files are
// renamed, not rewritten, so their bytes are untouched.
func (a *Archiver) Archive(id string, status domain.Status) error {
	base := filepath.Join(a.Root, filepath.FromSlash(id))
	destDir := filepath.Join(filepath.Dir(base), string(status))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}

	name := filepath.Base(base)
	if err := os.Rename(base+".json", filepath.Join(destDir, name+".json")); err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}

	for _, ext := range sidecarExtensions {
		src := base + ext
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, filepath.Join(destDir, name+ext)); err != nil {
			return fmt.Errorf("archive %s sidecar: %w", id, err)
		}
	}
	return nil
}
