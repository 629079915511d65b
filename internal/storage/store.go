package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"assettool/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	ProjectsIndex = "projects/projects.json"
	JobsIndex     = "jobs/generation-jobs.json"

	defaultDataDir    = "data"
	defaultMaxBackups = 5
)

// Options configures a Store.
type Options struct {
	DataDir       string
	EnableBackups bool
	MaxBackups    int

	// Clock overrides time.Now for timestamps and backup names.
	Clock func() time.Time
	// BeforeCommit runs after the temp file is written and before it is
	// renamed into place. A non-nil error aborts the write.
	BeforeCommit func(path string) error
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DataDir:       defaultDataDir,
		EnableBackups: true,
		MaxBackups:    defaultMaxBackups,
	}
}

// Store persists JSON documents and blobs below a data directory. Every
// write goes to a sibling temp file which is then renamed over the target,
// so readers observe either the old or the new content.
type Store struct {
	root          string
	enableBackups bool
	maxBackups    int
	clock         func() time.Time
	beforeCommit  func(path string) error
	logger        zerolog.Logger

	locks     keyedMutex
	backupMu  sync.Mutex
	lastStamp time.Time
}

// NewStore builds a Store rooted at opts.DataDir. The directory is created on
// Initialize, not here.
func NewStore(opts Options, logger zerolog.Logger) (*Store, error) {
	root := strings.TrimSpace(opts.DataDir)
	if root == "" {
		root = defaultDataDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve data dir: %w", err)
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		root:          abs,
		enableBackups: opts.EnableBackups,
		maxBackups:    maxBackups,
		clock:         clock,
		beforeCommit:  opts.BeforeCommit,
		logger:        logger.With().Str("component", "storage").Logger(),
		locks:         keyedMutex{locks: map[string]*sync.Mutex{}},
	}, nil
}

// Root returns the absolute data directory.
func (s *Store) Root() string {
	return s.root
}

// Initialize creates the directory skeleton and the empty top-level
// indexes. Calling it again leaves existing data untouched.
func (s *Store) Initialize(ctx context.Context) error {
	for _, dir := range []string{"", "projects", "jobs", "prompts"} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("storage: create %q: %w", dir, err)
		}
	}
	for _, index := range []string{ProjectsIndex, JobsIndex} {
		if s.FileExists(ctx, index) {
			continue
		}
		if err := s.WriteJSON(ctx, index, []any{}); err != nil {
			return err
		}
	}
	s.logger.Debug().Str("data_dir", s.root).Msg("storage initialized")
	return nil
}

// GenerateID returns a random v4 UUID.
func (s *Store) GenerateID() string {
	return uuid.NewString()
}

// CurrentTimestamp returns now as an ISO-8601 UTC string with milliseconds.
func (s *Store) CurrentTimestamp() string {
	return domain.FormatTimestamp(s.clock())
}

// AbsPath resolves a relative key to an absolute path inside the root.
func (s *Store) AbsPath(key string) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Lock serializes read-modify-write cycles on key within this process.
// The returned func releases the lock.
func (s *Store) Lock(key string) func() {
	clean, err := sanitizeKey(key)
	if err != nil {
		clean = key
	}
	return s.locks.lock(clean)
}

func notFound(key string) error {
	return fmt.Errorf("storage: %s: %w", key, domain.ErrNotFound)
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
