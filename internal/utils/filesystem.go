package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary file in the same directory,
// fsyncs it and renames it over path. Readers observe either the old or the
// new content, never a partial write. The parent directory must exist.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary file for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary file for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}
	if err := os.Chmod(temporaryPath, perm); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}

	SyncDir(dir)
	return nil
}

// SyncDir fsyncs a directory so a preceding rename survives power loss.
// Errors are ignored; not every platform supports syncing directories.
func SyncDir(dir string) {
	parent, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = parent.Sync()
	_ = parent.Close()
}

// CreateExclusive creates path with data only if it does not already exist.
// It reports false, with a nil error, when the file was already present.
func CreateExclusive(path string, data []byte, perm os.FileMode) (bool, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", path, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		return true, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return true, fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return true, fmt.Errorf("closing %s: %w", path, err)
	}

	SyncDir(filepath.Dir(path))
	return true, nil
}

// FileExists reports whether path exists. Errors other than "not exist"
// (permission denied, for example) are returned.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// RemoveIfExists removes path. It returns nil when the file does not exist.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
