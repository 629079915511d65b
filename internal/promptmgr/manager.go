package promptmgr

import (
	"context"
	"fmt"

	"assettool/internal/domain"
	"assettool/internal/providers/prompt"

	"github.com/rs/zerolog"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Analysis is the shared input of the prompt tooling endpoints.
type Analysis struct {
	Prompt        string                `json:"prompt" validate:"required,max=2000"`
	ProjectID     string                `json:"projectId,omitempty"`
	AssetType     domain.AssetType      `json:"assetType,omitempty" validate:"omitempty,oneof=image video prompt"`
	StyleOverride *domain.StyleOverride `json:"styleOverride,omitempty"`
	AIConfig      *domain.AICredentials `json:"aiConfig,omitempty"`
	Count         int                   `json:"count,omitempty" validate:"gte=0,lte=10"`
}

// HistoryEntry is a caller-supplied history record.
type HistoryEntry struct {
	ProjectID      string                       `json:"projectId" validate:"required"`
	AssetID        string                       `json:"assetId,omitempty"`
	OriginalPrompt string                       `json:"originalPrompt" validate:"required"`
	EnhancedPrompt string                       `json:"enhancedPrompt,omitempty"`
	Metadata       domain.PromptHistoryMetadata `json:"metadata"`
}

type HistoryPage struct {
	History []domain.PromptHistory `json:"history"`
	Total   int                    `json:"total"`
	HasMore bool                   `json:"hasMore"`
}

// Manager combines the prompt facade with the persisted prompt records.
type Manager struct {
	facade   *prompt.Facade
	prompts  domain.PromptRepository
	projects domain.ProjectRepository
	log      zerolog.Logger
}

func New(facade *prompt.Facade, prompts domain.PromptRepository, projects domain.ProjectRepository, log zerolog.Logger) *Manager {
	return &Manager{facade: facade, prompts: prompts, projects: projects, log: log}
}

// Init seeds the default templates when none exist.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.prompts.SeedTemplates(ctx, DefaultTemplates()); err != nil {
		return fmt.Errorf("seed prompt templates: %w", err)
	}
	return nil
}

func (m *Manager) scope(ctx context.Context, a Analysis) (prompt.Scope, error) {
	if err := domain.Validate("prompt request", a); err != nil {
		return prompt.Scope{}, err
	}
	s := prompt.Scope{AssetType: a.AssetType, Credentials: a.AIConfig}
	if a.ProjectID == "" {
		return s, nil
	}
	p, err := m.projects.GetByID(ctx, a.ProjectID)
	if err != nil {
		return prompt.Scope{}, err
	}
	if p == nil {
		return prompt.Scope{}, fmt.Errorf("project %s %w", a.ProjectID, domain.ErrNotFound)
	}
	s.Project = p
	return s, nil
}

// Enhance returns the style-merged and, when possible, AI-refined prompt.
func (m *Manager) Enhance(ctx context.Context, a Analysis) (prompt.Enhancement, error) {
	s, err := m.scope(ctx, a)
	if err != nil {
		return prompt.Enhancement{}, err
	}
	return m.facade.Enhance(ctx, prompt.EnhanceRequest{
		Prompt:        a.Prompt,
		Project:       s.Project,
		AssetType:     a.AssetType,
		StyleOverride: a.StyleOverride,
		Credentials:   a.AIConfig,
	}), nil
}

// Breakdown decomposes the prompt and stores the result.
func (m *Manager) Breakdown(ctx context.Context, a Analysis) (*domain.PromptBreakdown, error) {
	s, err := m.scope(ctx, a)
	if err != nil {
		return nil, err
	}
	b, err := m.facade.Breakdown(ctx, a.Prompt, s)
	if err != nil {
		return nil, err
	}
	if err := m.prompts.SaveBreakdown(ctx, b); err != nil {
		return nil, fmt.Errorf("save breakdown: %w", err)
	}
	return b, nil
}

func (m *Manager) Suggest(ctx context.Context, a Analysis) ([]domain.PromptSuggestion, error) {
	s, err := m.scope(ctx, a)
	if err != nil {
		return nil, err
	}
	return m.facade.Suggest(ctx, a.Prompt, s, a.Count)
}

func (m *Manager) Score(ctx context.Context, a Analysis) (domain.PromptScore, error) {
	s, err := m.scope(ctx, a)
	if err != nil {
		return domain.PromptScore{}, err
	}
	return m.facade.Score(ctx, a.Prompt, s)
}

func (m *Manager) Templates(ctx context.Context, filter domain.TemplateFilter) ([]domain.PromptTemplate, error) {
	return m.prompts.ListTemplates(ctx, filter)
}

func (m *Manager) CreateTemplate(ctx context.Context, t *domain.PromptTemplate) error {
	return m.prompts.CreateTemplate(ctx, t)
}

// SaveHistory appends a versioned history record for an existing project.
func (m *Manager) SaveHistory(ctx context.Context, in HistoryEntry) (*domain.PromptHistory, error) {
	if in.Metadata.EnhancementType == "" {
		in.Metadata.EnhancementType = domain.EnhancementManual
	}
	if err := domain.Validate("prompt history", in); err != nil {
		return nil, err
	}
	p, err := m.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s %w", in.ProjectID, domain.ErrNotFound)
	}
	h := &domain.PromptHistory{
		ProjectID:      in.ProjectID,
		AssetID:        in.AssetID,
		OriginalPrompt: in.OriginalPrompt,
		EnhancedPrompt: in.EnhancedPrompt,
		Metadata:       in.Metadata,
	}
	if err := m.prompts.SaveHistory(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// History pages through a project's history, newest first. limit is
// clamped to [1, MaxHistoryLimit] with 0 meaning DefaultHistoryLimit.
func (m *Manager) History(ctx context.Context, projectID, assetID string, limit, offset int) (HistoryPage, error) {
	switch {
	case limit == 0:
		limit = DefaultHistoryLimit
	case limit < 1 || limit > MaxHistoryLimit:
		return HistoryPage{}, &domain.ValidationError{Entity: "history query", Fields: []domain.FieldError{
			{Path: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxHistoryLimit)},
		}}
	}
	if offset < 0 {
		return HistoryPage{}, &domain.ValidationError{Entity: "history query", Fields: []domain.FieldError{
			{Path: "offset", Message: "must be >= 0"},
		}}
	}
	all, err := m.prompts.ListHistory(ctx, projectID, assetID)
	if err != nil {
		return HistoryPage{}, err
	}
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	return HistoryPage{
		History: all[start:end],
		Total:   len(all),
		HasMore: end < len(all),
	}, nil
}
