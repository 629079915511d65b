package domain

import (
	"context"
	"time"
)

// ProjectRepository defines persistence for projects.
type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	Update(ctx context.Context, id string, patch ProjectPatch) (*Project, error)
	Delete(ctx context.Context, id string) (bool, error)
	AddStyleImages(ctx context.Context, id string, paths []string) (*Project, error)
}

// AssetRepository defines persistence for assets.
type AssetRepository interface {
	Create(ctx context.Context, a *Asset) error
	GetByID(ctx context.Context, id string) (*Asset, error)
	ListByProject(ctx context.Context, projectID string) ([]Asset, error)
	Update(ctx context.Context, id string, patch AssetPatch) (*Asset, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// AssetLocator resolves the owning project of an asset id. An empty
// project id with a nil error means the asset does not exist.
type AssetLocator interface {
	Locate(ctx context.Context, assetID string) (string, error)
}

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	GetByID(ctx context.Context, id string) (*GenerationJob, error)
	List(ctx context.Context) ([]GenerationJob, error)
	ListByAsset(ctx context.Context, assetID string) ([]GenerationJob, error)
	ListByStatus(ctx context.Context, statuses ...JobStatus) ([]GenerationJob, error)
	Update(ctx context.Context, id string, patch JobPatch) (*GenerationJob, error)
	// UpdateIf applies patch only while cond holds for the stored job.
	UpdateIf(ctx context.Context, id string, cond func(GenerationJob) bool, patch JobPatch) (*GenerationJob, error)
	Delete(ctx context.Context, id string) (bool, error)
	CleanupOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// PromptRepository persists the prompt audit trail, templates and breakdowns.
type PromptRepository interface {
	SaveHistory(ctx context.Context, h *PromptHistory) error
	ListHistory(ctx context.Context, projectID, assetID string) ([]PromptHistory, error)
	SaveBreakdown(ctx context.Context, b *PromptBreakdown) error
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]PromptTemplate, error)
	CreateTemplate(ctx context.Context, t *PromptTemplate) error
	SeedTemplates(ctx context.Context, defaults []PromptTemplate) error
}
