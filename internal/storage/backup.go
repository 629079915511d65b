package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"assettool/internal/domain"
)

const (
	backupDirName = ".backups"
	backupSuffix  = ".backup"
)

var backupStampLen = len(backupStamp(time.Unix(0, 0)))

// backupStamp renders t as a filename-safe ISO timestamp.
func backupStamp(t time.Time) string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(domain.FormatTimestamp(t))
}

func backupDir(full string) string {
	return filepath.Join(filepath.Dir(full), backupDirName)
}

// backup snapshots the current content of full into the sibling .backups
// directory and prunes old snapshots. Failures are logged and swallowed so
// the caller's write still goes ahead.
func (s *Store) backup(full string) {
	data, err := os.ReadFile(full)
	if err != nil {
		if !isNotExist(err) {
			s.logger.Warn().Err(err).Str("file", full).Msg("backup: read source failed")
		}
		return
	}
	if err := s.writeBackup(full, data); err != nil {
		s.logger.Warn().Err(err).Str("file", full).Msg("backup: create failed")
		return
	}
	if err := s.pruneBackups(full); err != nil {
		s.logger.Warn().Err(err).Str("file", full).Msg("backup: cleanup failed")
	}
}

// writeBackup stores data under a name unique for full. Two snapshots within
// the same millisecond get consecutive stamps so name order matches
// creation order.
func (s *Store) writeBackup(full string, data []byte) error {
	dir := backupDir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	s.backupMu.Lock()
	defer s.backupMu.Unlock()

	stamp := s.clock().UTC().Truncate(time.Millisecond)
	if !stamp.After(s.lastStamp) {
		stamp = s.lastStamp.Add(time.Millisecond)
	}
	base := filepath.Base(full)
	for attempt := 0; attempt < 1000; attempt++ {
		name := filepath.Join(dir, base+"."+backupStamp(stamp)+backupSuffix)
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			stamp = stamp.Add(time.Millisecond)
			continue
		}
		if err != nil {
			return err
		}
		s.lastStamp = stamp
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(name)
			return err
		}
		return f.Close()
	}
	return fmt.Errorf("no free backup name for %s", base)
}

// listBackups returns the snapshot paths of full, newest first.
func listBackups(full string) ([]string, error) {
	dir := backupDir(full)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	prefix := filepath.Base(full) + "."
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), backupSuffix)
		if len(stamp) != backupStampLen {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

func (s *Store) pruneBackups(full string) error {
	paths, err := listBackups(full)
	if err != nil {
		return err
	}
	if len(paths) <= s.maxBackups {
		return nil
	}
	var errs []error
	for _, p := range paths[s.maxBackups:] {
		if err := os.Remove(p); err != nil && !isNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Backups returns the snapshot keys of key, newest first.
func (s *Store) Backups(key string) ([]string, error) {
	full, err := s.AbsPath(key)
	if err != nil {
		return nil, err
	}
	paths, err := listBackups(full)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil, err
		}
		keys[i] = filepath.ToSlash(rel)
	}
	return keys, nil
}
