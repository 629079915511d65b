package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"assettool/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

func newTestStore(t *testing.T, mutate func(*Options)) *Store {
	t.Helper()
	opts := DefaultOptions()
	opts.DataDir = t.TempDir()
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	opts.Clock = func() time.Time { return frozen }
	if mutate != nil {
		mutate(&opts)
	}
	s, err := NewStore(opts, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestInitializeCreatesLayoutIdempotently(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	for _, dir := range []string{"projects", "jobs", "prompts"} {
		require.True(t, s.FileExists(ctx, dir), dir)
	}
	require.NoError(t, s.WriteJSON(ctx, ProjectsIndex, []doc{{Name: "keep"}}))
	require.NoError(t, s.Initialize(ctx))

	items, err := ReadIndex[doc](ctx, s, ProjectsIndex)
	require.NoError(t, err)
	require.Equal(t, []doc{{Name: "keep"}}, items)

	jobs, err := ReadIndex[doc](ctx, s, JobsIndex)
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestReadJSONMissingIsNotFound(t *testing.T) {
	s := newTestStore(t, nil)
	var d doc
	err := s.ReadJSON(context.Background(), "nope/missing.json", &d)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWriteJSONFaultLeavesPreviousContent(t *testing.T) {
	ctx := context.Background()
	var fail bool
	s := newTestStore(t, func(o *Options) {
		o.BeforeCommit = func(string) error {
			if fail {
				return errors.New("disk full")
			}
			return nil
		}
	})

	require.NoError(t, s.WriteJSON(ctx, "projects/p/project.json", doc{Name: "a", Version: 1}))
	fail = true
	err := s.WriteJSON(ctx, "projects/p/project.json", doc{Name: "b", Version: 2})
	require.Error(t, err)

	fail = false
	var got doc
	require.NoError(t, s.ReadJSON(ctx, "projects/p/project.json", &got))
	require.Equal(t, doc{Name: "a", Version: 1}, got)

	entries, err := os.ReadDir(filepath.Join(s.Root(), "projects", "p"))
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), ".project.json"), "temp file left behind: %s", e.Name())
	}
}

func TestBackupRotationKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, func(o *Options) { o.MaxBackups = 3 })
	key := "projects/p/project.json"

	for i := 1; i <= 6; i++ {
		require.NoError(t, s.WriteJSON(ctx, key, doc{Version: i}))
	}

	backups, err := s.Backups(key)
	require.NoError(t, err)
	require.Len(t, backups, 3)

	var newest doc
	raw, err := s.ReadFile(ctx, backups[0])
	require.NoError(t, err)
	require.NoError(t, decodeJSON(raw, &newest))
	require.Equal(t, 5, newest.Version)

	for _, b := range backups {
		require.True(t, strings.HasPrefix(filepath.Base(b), "project.json.2024-05-01T12-00-00-"), b)
		require.True(t, strings.HasSuffix(b, ".backup"))
	}
	require.Greater(t, backups[0], backups[2])
}

func TestBackupsDisabled(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, func(o *Options) { o.EnableBackups = false })
	key := "projects/p/project.json"
	require.NoError(t, s.WriteJSON(ctx, key, doc{Version: 1}))
	require.NoError(t, s.WriteJSON(ctx, key, doc{Version: 2}))
	require.False(t, s.FileExists(ctx, "projects/p/.backups"))
}

func TestReadJSONRecoversFromBackup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	key := "projects/p/project.json"
	require.NoError(t, s.WriteJSON(ctx, key, doc{Name: "good", Version: 1}))
	require.NoError(t, s.WriteJSON(ctx, key, doc{Name: "good", Version: 2}))

	full, err := s.AbsPath(key)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(full, []byte("{ not json"), 0o644))

	var got doc
	require.NoError(t, s.ReadJSON(ctx, key, &got))
	require.Equal(t, doc{Name: "good", Version: 1}, got)

	raw, err := os.ReadFile(full)
	require.NoError(t, err)
	var onDisk doc
	require.NoError(t, decodeJSON(raw, &onDisk))
	require.Equal(t, got, onDisk)
}

func TestReadJSONSkipsCorruptBackups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	key := "jobs/generation-jobs.json"
	require.NoError(t, s.WriteJSON(ctx, key, []doc{{Version: 1}}))
	require.NoError(t, s.WriteFile(ctx, key, []byte("garbage")))
	require.NoError(t, s.WriteJSON(ctx, key, []doc{{Version: 3}}))

	full, err := s.AbsPath(key)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(full, []byte("]["), 0o644))

	items, err := ReadIndex[doc](ctx, s, key)
	require.NoError(t, err)
	require.Equal(t, []doc{{Version: 1}}, items)
}

func TestReadJSONCorruptWithoutBackups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, func(o *Options) { o.EnableBackups = false })
	key := "projects/p/project.json"
	require.NoError(t, s.WriteFile(ctx, key, []byte("nope")))

	var got doc
	err := s.ReadJSON(ctx, key, &got)
	require.ErrorIs(t, err, domain.ErrCorruptData)
}

func TestDeleteFileSnapshotsFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	key := "projects/p/assets/a.json"
	require.NoError(t, s.WriteJSON(ctx, key, doc{Name: "asset"}))
	require.NoError(t, s.DeleteFile(ctx, key))
	require.False(t, s.FileExists(ctx, key))

	backups, err := s.Backups(key)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	require.NoError(t, s.DeleteFile(ctx, key))
}

func TestListFilesHidesDotEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	require.NoError(t, s.WriteJSON(ctx, "projects/x/b.json", doc{}))
	require.NoError(t, s.WriteJSON(ctx, "projects/x/a.json", doc{}))
	require.NoError(t, s.WriteJSON(ctx, "projects/x/a.json", doc{Version: 2}))

	names, err := s.ListFiles(ctx, "projects/x")
	require.NoError(t, err)
	require.Equal(t, []string{"a.json", "b.json"}, names)

	names, err = s.ListFiles(ctx, "projects/missing")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestDeleteDirectoryRecursive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	require.NoError(t, s.WriteJSON(ctx, "projects/x/assets/a.json", doc{}))
	require.NoError(t, s.DeleteDirectory(ctx, "projects/x", true))
	require.False(t, s.FileExists(ctx, "projects/x"))
	require.NoError(t, s.DeleteDirectory(ctx, "projects/x", true))
}

func TestUpdateIndexSerializesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := UpdateIndex(ctx, s, ProjectsIndex, func(items []doc) ([]doc, error) {
				return append(items, doc{Name: fmt.Sprintf("p%d", i)}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	items, err := ReadIndex[doc](ctx, s, ProjectsIndex)
	require.NoError(t, err)
	require.Len(t, items, writers)
}

func TestUpdateIndexSkipWrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	err := UpdateIndex(ctx, s, "prompts/history.json", func(items []doc) ([]doc, error) {
		return nil, ErrSkipWrite
	})
	require.NoError(t, err)
	require.False(t, s.FileExists(ctx, "prompts/history.json"))
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "projects/a.json", want: "projects/a.json"},
		{in: "/projects//a.json", want: "projects/a.json"},
		{in: `projects\a.json`, want: "projects/a.json"},
		{in: "./jobs/x.json", want: "jobs/x.json"},
		{in: "../etc/passwd", wantErr: true},
		{in: "projects/../../x", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range tests {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
	}
}

func TestCurrentTimestampFormat(t *testing.T) {
	s := newTestStore(t, nil)
	require.Equal(t, "2024-05-01T12:00:00.000Z", s.CurrentTimestamp())
	require.Len(t, s.GenerateID(), 36)
}
