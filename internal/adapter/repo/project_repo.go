package repo

import (
	"context"
	"errors"
	"fmt"

	"assettool/internal/domain"
	"assettool/internal/storage"
)

// ProjectRepositoryFS implements domain.ProjectRepository on the document store.
type ProjectRepositoryFS struct {
	store *storage.Store
}

// NewProjectRepository creates a project repository backed by store.
func NewProjectRepository(store *storage.Store) *ProjectRepositoryFS {
	return &ProjectRepositoryFS{store: store}
}

func projectID(p domain.Project) string { return p.ID }

// Create assigns identity and timestamps, validates p and lays out the
// project directory with an empty asset index.
func (r *ProjectRepositoryFS) Create(ctx context.Context, p *domain.Project) error {
	now := r.store.CurrentTimestamp()
	p.ID = r.store.GenerateID()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.ArtStyle.Normalize()
	if err := domain.Validate("project", p); err != nil {
		return err
	}

	if err := r.store.EnsureDir(ctx, AssetFilesDir(p.ID)); err != nil {
		return err
	}
	if err := r.store.WriteJSON(ctx, projectFile(p.ID), p); err != nil {
		return err
	}
	if err := r.store.WriteJSON(ctx, assetsIndex(p.ID), []domain.Asset{}); err != nil {
		return err
	}
	return storage.UpdateIndex(ctx, r.store, storage.ProjectsIndex, func(items []domain.Project) ([]domain.Project, error) {
		return upsert(items, *p, projectID), nil
	})
}

// GetByID returns nil when the project does not exist.
func (r *ProjectRepositoryFS) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if !safeID(id) {
		return nil, nil
	}
	var p domain.Project
	if err := r.store.ReadJSON(ctx, projectFile(id), &p); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	p.ArtStyle.Normalize()
	return &p, nil
}

// List returns the projects index in insertion order.
func (r *ProjectRepositoryFS) List(ctx context.Context) ([]domain.Project, error) {
	return storage.ReadIndex[domain.Project](ctx, r.store, storage.ProjectsIndex)
}

// Update merges patch into the stored project. It returns nil when the
// project does not exist.
func (r *ProjectRepositoryFS) Update(ctx context.Context, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	return r.mutate(ctx, id, func(p *domain.Project) {
		patch.Apply(p)
	})
}

// AddStyleImages appends uploaded reference image paths to the art style.
func (r *ProjectRepositoryFS) AddStyleImages(ctx context.Context, id string, paths []string) (*domain.Project, error) {
	return r.mutate(ctx, id, func(p *domain.Project) {
		p.ArtStyle.Normalize()
		p.ArtStyle.ReferenceImages = append(p.ArtStyle.ReferenceImages, paths...)
	})
}

func (r *ProjectRepositoryFS) mutate(ctx context.Context, id string, apply func(*domain.Project)) (*domain.Project, error) {
	if !safeID(id) {
		return nil, nil
	}
	unlock := r.store.Lock(projectFile(id))
	defer unlock()

	existing, err := r.GetByID(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}
	updated := *existing
	apply(&updated)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = r.store.CurrentTimestamp()
	if err := domain.Validate("project", updated); err != nil {
		return nil, err
	}
	if err := r.store.WriteJSON(ctx, projectFile(id), updated); err != nil {
		return nil, err
	}
	err = storage.UpdateIndex(ctx, r.store, storage.ProjectsIndex, func(items []domain.Project) ([]domain.Project, error) {
		return upsert(items, updated, projectID), nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the project directory, including every asset, and drops
// the project from the index. It reports false when nothing was deleted.
func (r *ProjectRepositoryFS) Delete(ctx context.Context, id string) (bool, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil || existing == nil {
		return false, err
	}
	if err := r.store.DeleteDirectory(ctx, projectDir(id), true); err != nil {
		return false, fmt.Errorf("delete project %s: %w", id, err)
	}
	err = storage.UpdateIndex(ctx, r.store, storage.ProjectsIndex, func(items []domain.Project) ([]domain.Project, error) {
		out, _ := remove(items, id, projectID)
		return out, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryFS)(nil)
