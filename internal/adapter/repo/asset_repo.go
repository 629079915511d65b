package repo

import (
	"context"
	"errors"
	"fmt"
	"path"

	"assettool/internal/domain"
	"assettool/internal/storage"
)

// AssetRepositoryFS implements domain.AssetRepository. Each asset is stored
// as its own document plus an entry in the owning project's asset index.
type AssetRepositoryFS struct {
	store   *storage.Store
	locator domain.AssetLocator
}

// NewAssetRepository creates an asset repository. A nil locator falls back
// to scanning project directories.
func NewAssetRepository(store *storage.Store, locator domain.AssetLocator) *AssetRepositoryFS {
	if locator == nil {
		locator = NewScanLocator(store)
	}
	return &AssetRepositoryFS{store: store, locator: locator}
}

func assetID(a domain.Asset) string { return a.ID }

// Create assigns identity, validates a and stores it under its project.
func (r *AssetRepositoryFS) Create(ctx context.Context, a *domain.Asset) error {
	if !safeID(a.ProjectID) || !r.store.FileExists(ctx, projectFile(a.ProjectID)) {
		return fmt.Errorf("project %s %w", a.ProjectID, domain.ErrNotFound)
	}
	a.ID = r.store.GenerateID()
	a.CreatedAt = r.store.CurrentTimestamp()
	if a.Status == "" {
		a.Status = domain.AssetStatusPending
	}
	a.Normalize()
	if err := domain.Validate("asset", a); err != nil {
		return err
	}
	return r.persist(ctx, *a)
}

func (r *AssetRepositoryFS) persist(ctx context.Context, a domain.Asset) error {
	if err := r.store.WriteJSON(ctx, assetFile(a.ProjectID, a.ID), a); err != nil {
		return err
	}
	return storage.UpdateIndex(ctx, r.store, assetsIndex(a.ProjectID), func(items []domain.Asset) ([]domain.Asset, error) {
		return upsert(items, a, assetID), nil
	})
}

// GetByID returns nil when no project holds the asset.
func (r *AssetRepositoryFS) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	projectID, err := r.locator.Locate(ctx, id)
	if err != nil || projectID == "" {
		return nil, err
	}
	return r.load(ctx, projectID, id)
}

func (r *AssetRepositoryFS) load(ctx context.Context, projectID, id string) (*domain.Asset, error) {
	var a domain.Asset
	if err := r.store.ReadJSON(ctx, assetFile(projectID, id), &a); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	a.Normalize()
	return &a, nil
}

// ListByProject returns the asset index of a project. Unknown projects
// yield an empty list.
func (r *AssetRepositoryFS) ListByProject(ctx context.Context, projectID string) ([]domain.Asset, error) {
	if !safeID(projectID) {
		return []domain.Asset{}, nil
	}
	return storage.ReadIndex[domain.Asset](ctx, r.store, assetsIndex(projectID))
}

// Update merges patch into the stored asset. id, projectId and createdAt
// never change. It returns nil when the asset does not exist.
func (r *AssetRepositoryFS) Update(ctx context.Context, id string, patch domain.AssetPatch) (*domain.Asset, error) {
	projectID, err := r.locator.Locate(ctx, id)
	if err != nil || projectID == "" {
		return nil, err
	}
	unlock := r.store.Lock(assetFile(projectID, id))
	defer unlock()

	existing, err := r.load(ctx, projectID, id)
	if err != nil || existing == nil {
		return nil, err
	}
	updated := *existing
	patch.Apply(&updated)
	updated.ID = existing.ID
	updated.ProjectID = existing.ProjectID
	updated.CreatedAt = existing.CreatedAt
	if err := domain.Validate("asset", updated); err != nil {
		return nil, err
	}
	if err := r.persist(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the asset document, its binary file when present and its
// index entry. It reports false when the asset does not exist.
func (r *AssetRepositoryFS) Delete(ctx context.Context, id string) (bool, error) {
	projectID, err := r.locator.Locate(ctx, id)
	if err != nil || projectID == "" {
		return false, err
	}
	existing, err := r.load(ctx, projectID, id)
	if err != nil || existing == nil {
		return false, err
	}
	if existing.FilePath != "" {
		blob := path.Join(AssetFilesDir(projectID), path.Base(existing.FilePath))
		if err := r.store.DeleteFile(ctx, blob); err != nil {
			return false, err
		}
	}
	if err := r.store.DeleteFile(ctx, assetFile(projectID, id)); err != nil {
		return false, err
	}
	err = storage.UpdateIndex(ctx, r.store, assetsIndex(projectID), func(items []domain.Asset) ([]domain.Asset, error) {
		out, _ := remove(items, id, assetID)
		return out, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ domain.AssetRepository = (*AssetRepositoryFS)(nil)
