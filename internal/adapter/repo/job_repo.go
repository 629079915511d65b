package repo

import (
	"context"
	"time"

	"assettool/internal/domain"
	"assettool/internal/storage"
)

// JobRepositoryFS implements domain.JobRepository. All jobs share a single
// index document.
type JobRepositoryFS struct {
	store *storage.Store
}

// NewJobRepository creates a job repository backed by store.
func NewJobRepository(store *storage.Store) *JobRepositoryFS {
	return &JobRepositoryFS{store: store}
}

func jobID(j domain.GenerationJob) string { return j.ID }

// Create inserts a new job record.
func (r *JobRepositoryFS) Create(ctx context.Context, job *domain.GenerationJob) error {
	job.ID = r.store.GenerateID()
	job.CreatedAt = r.store.CurrentTimestamp()
	if job.Status == "" {
		job.Status = domain.JobStatusQueued
	}
	if err := domain.Validate("job", job); err != nil {
		return err
	}
	return storage.UpdateIndex(ctx, r.store, storage.JobsIndex, func(items []domain.GenerationJob) ([]domain.GenerationJob, error) {
		return upsert(items, *job, jobID), nil
	})
}

// GetByID fetches a job by its identifier, nil when absent.
func (r *JobRepositoryFS) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	jobs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		if jobs[i].ID == id {
			return &jobs[i], nil
		}
	}
	return nil, nil
}

// List returns every job in creation order.
func (r *JobRepositoryFS) List(ctx context.Context) ([]domain.GenerationJob, error) {
	return storage.ReadIndex[domain.GenerationJob](ctx, r.store, storage.JobsIndex)
}

// ListByAsset returns the jobs of one asset in creation order.
func (r *JobRepositoryFS) ListByAsset(ctx context.Context, assetID string) ([]domain.GenerationJob, error) {
	return r.filter(ctx, func(j domain.GenerationJob) bool { return j.AssetID == assetID })
}

// ListByStatus returns the jobs in any of the given states.
func (r *JobRepositoryFS) ListByStatus(ctx context.Context, statuses ...domain.JobStatus) ([]domain.GenerationJob, error) {
	want := make(map[domain.JobStatus]struct{}, len(statuses))
	for _, s := range statuses {
		want[s] = struct{}{}
	}
	return r.filter(ctx, func(j domain.GenerationJob) bool {
		_, ok := want[j.Status]
		return ok
	})
}

func (r *JobRepositoryFS) filter(ctx context.Context, keep func(domain.GenerationJob) bool) ([]domain.GenerationJob, error) {
	jobs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.GenerationJob{}
	for _, j := range jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	return out, nil
}

// Update applies patch inside one locked index rewrite, so updates from the
// background task and a concurrent cancel never interleave. It returns nil
// when the job does not exist.
func (r *JobRepositoryFS) Update(ctx context.Context, id string, patch domain.JobPatch) (*domain.GenerationJob, error) {
	var updated *domain.GenerationJob
	err := storage.UpdateIndex(ctx, r.store, storage.JobsIndex, func(items []domain.GenerationJob) ([]domain.GenerationJob, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			next := items[i]
			patch.Apply(&next, r.store.CurrentTimestamp())
			next.ID = items[i].ID
			next.AssetID = items[i].AssetID
			next.CreatedAt = items[i].CreatedAt
			if err := domain.Validate("job", next); err != nil {
				return nil, err
			}
			items[i] = next
			updated = &next
			return items, nil
		}
		return nil, storage.ErrSkipWrite
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateIf applies patch only when cond holds for the stored job. The
// check and the write happen under the same lock. It returns nil when the
// job does not exist or cond rejected it.
func (r *JobRepositoryFS) UpdateIf(ctx context.Context, id string, cond func(domain.GenerationJob) bool, patch domain.JobPatch) (*domain.GenerationJob, error) {
	var updated *domain.GenerationJob
	err := storage.UpdateIndex(ctx, r.store, storage.JobsIndex, func(items []domain.GenerationJob) ([]domain.GenerationJob, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if !cond(items[i]) {
				return nil, storage.ErrSkipWrite
			}
			next := items[i]
			patch.Apply(&next, r.store.CurrentTimestamp())
			if err := domain.Validate("job", next); err != nil {
				return nil, err
			}
			items[i] = next
			updated = &next
			return items, nil
		}
		return nil, storage.ErrSkipWrite
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a job from the index.
func (r *JobRepositoryFS) Delete(ctx context.Context, id string) (bool, error) {
	var found bool
	err := storage.UpdateIndex(ctx, r.store, storage.JobsIndex, func(items []domain.GenerationJob) ([]domain.GenerationJob, error) {
		out, ok := remove(items, id, jobID)
		if !ok {
			return nil, storage.ErrSkipWrite
		}
		found = true
		return out, nil
	})
	return found, err
}

// CleanupOlderThan drops completed and failed jobs created before cutoff.
// Queued and processing jobs are always kept.
func (r *JobRepositoryFS) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var removed int
	err := storage.UpdateIndex(ctx, r.store, storage.JobsIndex, func(items []domain.GenerationJob) ([]domain.GenerationJob, error) {
		kept := items[:0]
		for _, j := range items {
			created, err := domain.ParseTimestamp(j.CreatedAt)
			if j.Status.Terminal() && err == nil && created.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, j)
		}
		if removed == 0 {
			return nil, storage.ErrSkipWrite
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

var _ domain.JobRepository = (*JobRepositoryFS)(nil)
