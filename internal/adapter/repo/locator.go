package repo

import (
	"context"
	"sync"

	"assettool/internal/domain"
	"assettool/internal/storage"

	"golang.org/x/sync/errgroup"
)

const defaultScanConcurrency = 8

// ScanLocator finds an asset by probing every project directory for its
// metadata file. Cost grows with the number of projects.
type ScanLocator struct {
	store       *storage.Store
	concurrency int
}

// NewScanLocator creates a locator that scans the projects directory.
func NewScanLocator(store *storage.Store) *ScanLocator {
	return &ScanLocator{store: store, concurrency: defaultScanConcurrency}
}

// Locate returns the id of the project holding assetID, or "" when none does.
func (l *ScanLocator) Locate(ctx context.Context, assetID string) (string, error) {
	if !safeID(assetID) {
		return "", nil
	}
	entries, err := l.store.ListFiles(ctx, "projects")
	if err != nil {
		return "", err
	}

	var (
		mu    sync.Mutex
		found string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, name := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !l.store.FileExists(gctx, assetFile(name, assetID)) {
				return nil
			}
			mu.Lock()
			if found == "" {
				found = name
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return found, nil
}

var _ domain.AssetLocator = (*ScanLocator)(nil)
