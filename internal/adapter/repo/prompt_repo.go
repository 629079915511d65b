package repo

import (
	"context"
	"slices"
	"sort"

	"assettool/internal/domain"
	"assettool/internal/storage"
)

// PromptRepositoryFS persists prompt history, templates and breakdowns as
// three index documents under prompts/.
type PromptRepositoryFS struct {
	store *storage.Store
}

// NewPromptRepository creates a prompt repository backed by store.
func NewPromptRepository(store *storage.Store) *PromptRepositoryFS {
	return &PromptRepositoryFS{store: store}
}

// SaveHistory appends h with the next version number for its
// (project, asset) pair. Numbering and append share one locked rewrite.
func (r *PromptRepositoryFS) SaveHistory(ctx context.Context, h *domain.PromptHistory) error {
	return storage.UpdateIndex(ctx, r.store, historyIndex, func(items []domain.PromptHistory) ([]domain.PromptHistory, error) {
		latest := 0
		for _, it := range items {
			if it.ProjectID == h.ProjectID && it.AssetID == h.AssetID && it.Version > latest {
				latest = it.Version
			}
		}
		h.ID = r.store.GenerateID()
		h.CreatedAt = r.store.CurrentTimestamp()
		h.Version = latest + 1
		if h.Metadata.EnhancementType == "" {
			h.Metadata.EnhancementType = domain.EnhancementManual
		}
		if err := domain.Validate("prompt history", h); err != nil {
			return nil, err
		}
		return append(items, *h), nil
	})
}

// ListHistory returns a project's history newest first. A non-empty
// assetID narrows the result to that asset.
func (r *PromptRepositoryFS) ListHistory(ctx context.Context, projectID, assetID string) ([]domain.PromptHistory, error) {
	items, err := storage.ReadIndex[domain.PromptHistory](ctx, r.store, historyIndex)
	if err != nil {
		return nil, err
	}
	out := []domain.PromptHistory{}
	for _, it := range items {
		if it.ProjectID != projectID {
			continue
		}
		if assetID != "" && it.AssetID != assetID {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].Version > out[j].Version
	})
	return out, nil
}

// SaveBreakdown appends b to the breakdown log.
func (r *PromptRepositoryFS) SaveBreakdown(ctx context.Context, b *domain.PromptBreakdown) error {
	if b.ID == "" {
		b.ID = r.store.GenerateID()
	}
	if b.CreatedAt == "" {
		b.CreatedAt = r.store.CurrentTimestamp()
	}
	if b.Components == nil {
		b.Components = []domain.PromptComponent{}
	}
	if err := domain.Validate("prompt breakdown", b); err != nil {
		return err
	}
	return storage.UpdateIndex(ctx, r.store, breakdownsIndex, func(items []domain.PromptBreakdown) ([]domain.PromptBreakdown, error) {
		return append(items, *b), nil
	})
}

// ListTemplates returns templates matching every non-empty filter field.
func (r *PromptRepositoryFS) ListTemplates(ctx context.Context, filter domain.TemplateFilter) ([]domain.PromptTemplate, error) {
	items, err := storage.ReadIndex[domain.PromptTemplate](ctx, r.store, templatesIndex)
	if err != nil {
		return nil, err
	}
	out := []domain.PromptTemplate{}
	for _, t := range items {
		if filter.AssetType != "" && t.AssetType != filter.AssetType {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if len(filter.Tags) > 0 && !slices.ContainsFunc(filter.Tags, func(tag string) bool {
			return slices.Contains(t.Tags, tag)
		}) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateTemplate assigns identity and appends t.
func (r *PromptRepositoryFS) CreateTemplate(ctx context.Context, t *domain.PromptTemplate) error {
	now := r.store.CurrentTimestamp()
	t.ID = r.store.GenerateID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Components == nil {
		t.Components = []domain.TemplateComponent{}
	}
	if err := domain.Validate("prompt template", t); err != nil {
		return err
	}
	return storage.UpdateIndex(ctx, r.store, templatesIndex, func(items []domain.PromptTemplate) ([]domain.PromptTemplate, error) {
		return append(items, *t), nil
	})
}

// SeedTemplates writes defaults when no template exists yet.
func (r *PromptRepositoryFS) SeedTemplates(ctx context.Context, defaults []domain.PromptTemplate) error {
	return storage.UpdateIndex(ctx, r.store, templatesIndex, func(items []domain.PromptTemplate) ([]domain.PromptTemplate, error) {
		if len(items) > 0 {
			return nil, storage.ErrSkipWrite
		}
		now := r.store.CurrentTimestamp()
		seeded := make([]domain.PromptTemplate, 0, len(defaults))
		for _, t := range defaults {
			t.ID = r.store.GenerateID()
			t.CreatedAt = now
			t.UpdatedAt = now
			if t.Tags == nil {
				t.Tags = []string{}
			}
			if err := domain.Validate("prompt template", t); err != nil {
				return nil, err
			}
			seeded = append(seeded, t)
		}
		return seeded, nil
	})
}

var _ domain.PromptRepository = (*PromptRepositoryFS)(nil)
