package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"

	"assettool/internal/domain"
)

// ErrSkipWrite may be returned by an UpdateIndex mutator to leave the index
// untouched without reporting an error.
var ErrSkipWrite = errors.New("storage: skip write")

// ReadJSON decodes the document at key into v. A document that no longer
// parses is restored from the newest readable backup, which is also written
// back as the primary copy.
func (s *Store) ReadJSON(ctx context.Context, key string, v any) error {
	data, err := s.ReadFile(ctx, key)
	if err != nil {
		return err
	}
	parseErr := decodeJSON(data, v)
	if parseErr == nil {
		return nil
	}
	s.logger.Warn().Err(parseErr).Str("key", key).Msg("document corrupt, trying backups")

	full, err := s.AbsPath(key)
	if err != nil {
		return err
	}
	backups, err := listBackups(full)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("list backups failed")
	}
	for _, path := range backups {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := decodeJSON(raw, v); err != nil {
			continue
		}
		if err := s.writeAtomic(full, raw); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("restore primary from backup failed")
		}
		s.logger.Info().Str("key", key).Str("backup", path).Msg("document recovered from backup")
		return nil
	}
	resetValue(v)
	return fmt.Errorf("storage: %s: %w: %w", key, domain.ErrCorruptData, parseErr)
}

// WriteJSON serializes v with two-space indentation and writes it atomically.
func (s *Store) WriteJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return s.WriteFile(ctx, key, data)
}

// ReadIndex loads a JSON array document. A missing index reads as empty.
func ReadIndex[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	var items []T
	if err := s.ReadJSON(ctx, key, &items); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []T{}, nil
		}
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// UpdateIndex runs load, mutate and write on a JSON array document while
// holding the per-key lock, so concurrent updaters in this process never
// lose each other's changes.
func UpdateIndex[T any](ctx context.Context, s *Store, key string, mutate func([]T) ([]T, error)) error {
	unlock := s.Lock(key)
	defer unlock()

	items, err := ReadIndex[T](ctx, s, key)
	if err != nil {
		return err
	}
	next, err := mutate(items)
	if err != nil {
		if errors.Is(err, ErrSkipWrite) {
			return nil
		}
		return err
	}
	if next == nil {
		next = []T{}
	}
	return s.WriteJSON(ctx, key, next)
}

func decodeJSON(data []byte, v any) error {
	resetValue(v)
	return json.Unmarshal(data, v)
}

func resetValue(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
	}
}
