package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
)

// ReadFile returns the raw bytes stored at key.
func (s *Store) ReadFile(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.AbsPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if isNotExist(err) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// WriteFile atomically replaces the content at key, snapshotting the
// previous content first when backups are enabled.
func (s *Store) WriteFile(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.AbsPath(key)
	if err != nil {
		return err
	}
	if s.enableBackups {
		s.backup(full)
	}
	return s.writeAtomic(full, data)
}

func (s *Store) writeAtomic(full string, data []byte) error {
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: ensure directory: %w", err)
	}
	pf, err := renameio.NewPendingFile(full, renameio.WithTempDir(dir), renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	defer func() {
		_ = pf.Cleanup()
	}()
	if _, err := pf.Write(data); err != nil {
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if s.beforeCommit != nil {
		if err := s.beforeCommit(full); err != nil {
			return fmt.Errorf("storage: write %s: %w", filepath.Base(full), err)
		}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("storage: replace %s: %w", filepath.Base(full), err)
	}
	return nil
}

// FileExists reports whether a regular file or directory exists at key.
func (s *Store) FileExists(ctx context.Context, key string) bool {
	if ctx.Err() != nil {
		return false
	}
	full, err := s.AbsPath(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// DeleteFile removes the file at key. The content is snapshotted first when
// backups are enabled. A missing file is not an error.
func (s *Store) DeleteFile(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.AbsPath(key)
	if err != nil {
		return err
	}
	if s.enableBackups {
		s.backup(full)
	}
	if err := os.Remove(full); err != nil && !isNotExist(err) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// DeleteDirectory removes the directory at key. Without recursive the
// directory must be empty. A missing directory is not an error.
func (s *Store) DeleteDirectory(ctx context.Context, key string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.AbsPath(key)
	if err != nil {
		return err
	}
	if recursive {
		err = os.RemoveAll(full)
	} else {
		err = os.Remove(full)
	}
	if err != nil && !isNotExist(err) {
		return fmt.Errorf("storage: delete directory %s: %w", key, err)
	}
	return nil
}

// EnsureDir creates the directory at key and any missing parents.
func (s *Store) EnsureDir(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.AbsPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return fmt.Errorf("storage: ensure directory %s: %w", key, err)
	}
	return nil
}

// ListFiles returns the sorted entry names of the directory at key. Hidden
// entries (backups, temp files) are skipped and a missing directory yields
// an empty list.
func (s *Store) ListFiles(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.AbsPath(key)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		if isNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("storage: list %s: %w", key, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
