package safeio

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename. A crash mid-write leaves either the old content or
// the new content, never a truncated file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("safeio: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("safeio: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op if the rename already happened.
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("safeio: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("safeio: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("safeio: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("safeio: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("safeio: rename %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic writes data under the SafeFS root with traversal checks.
func (s *SafeFS) WriteFileAtomic(userPath string, data []byte, perm os.FileMode) error {
	p, err := s.resolve(userPath)
	if err != nil {
		return err
	}
	return WriteFileAtomic(p, data, perm)
}
