// Package fileutil provides crash-safe file writes and quarantine of corrupt
// state files.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kanbansync/pkg/protocol"
)

// AtomicWrite writes content to path through a temp file in the same
// directory, fsyncs it, and renames it into place. Parent directories are
// created as needed. A reader never observes a partially written file.
// perm applies to new files; an existing file keeps its permission bits.
func AtomicWrite(path string, content []byte, perm os.FileMode) error {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		perm = info.Mode().Perm()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // project directories are world-readable
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".kanbansync-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// Quarantine moves a corrupt file into <stateDir>/quarantine, suffixed with
// a timestamp, and returns its new path.
func Quarantine(stateDir, path string, now time.Time) (string, error) {
	dir := filepath.Join(stateDir, protocol.QuarantineDir)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // state directory mirrors project permissions
		return "", fmt.Errorf("create quarantine dir: %w", err)
	}

	name := fmt.Sprintf("%s.%s.corrupt", filepath.Base(path), now.UTC().Format("20060102T150405"))
	dest := filepath.Join(dir, name)
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("move to quarantine: %w", err)
	}
	return dest, nil
}
