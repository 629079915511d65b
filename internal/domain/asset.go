package domain

// AssetType enumerates asset kinds.
type AssetType string

const (
	AssetTypeImage  AssetType = "image"
	AssetTypeVideo  AssetType = "video"
	AssetTypePrompt AssetType = "prompt"
)

// Valid reports whether t is a known asset type.
func (t AssetType) Valid() bool {
	switch t {
	case AssetTypeImage, AssetTypeVideo, AssetTypePrompt:
		return true
	}
	return false
}

// AssetStatus enumerates asset lifecycle states.
type AssetStatus string

const (
	AssetStatusPending    AssetStatus = "pending"
	AssetStatusGenerating AssetStatus = "generating"
	AssetStatusCompleted  AssetStatus = "completed"
	AssetStatusFailed     AssetStatus = "failed"
)

// Asset is a generated or uploaded artifact that belongs to a project.
type Asset struct {
	ID                   string         `json:"id" validate:"required"`
	ProjectID            string         `json:"projectId" validate:"required"`
	Type                 AssetType      `json:"type" validate:"required,oneof=image video prompt"`
	Name                 string         `json:"name" validate:"required,max=100"`
	Description          string         `json:"description,omitempty" validate:"max=500"`
	FilePath             string         `json:"filePath,omitempty"`
	GenerationPrompt     string         `json:"generationPrompt"`
	GenerationParameters map[string]any `json:"generationParameters"`
	Status               AssetStatus    `json:"status" validate:"required,oneof=pending generating completed failed"`
	CreatedAt            string         `json:"createdAt" validate:"required"`
	Metadata             map[string]any `json:"metadata"`
}

// AssetPatch holds the mutable asset fields; nil means unchanged.
type AssetPatch struct {
	Type                 *AssetType     `json:"type"`
	Name                 *string        `json:"name"`
	Description          *string        `json:"description"`
	FilePath             *string        `json:"filePath"`
	GenerationPrompt     *string        `json:"generationPrompt"`
	GenerationParameters map[string]any `json:"generationParameters"`
	Status               *AssetStatus   `json:"status"`
	Metadata             map[string]any `json:"metadata"`
}

// Apply merges the patch into a. Maps replace the stored value wholesale.
func (patch AssetPatch) Apply(a *Asset) {
	if patch.Type != nil {
		a.Type = *patch.Type
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.FilePath != nil {
		a.FilePath = *patch.FilePath
	}
	if patch.GenerationPrompt != nil {
		a.GenerationPrompt = *patch.GenerationPrompt
	}
	if patch.GenerationParameters != nil {
		a.GenerationParameters = patch.GenerationParameters
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.Metadata != nil {
		a.Metadata = patch.Metadata
	}
	a.Normalize()
}

// Normalize replaces nil maps so they serialize as empty objects.
func (a *Asset) Normalize() {
	if a.GenerationParameters == nil {
		a.GenerationParameters = map[string]any{}
	}
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
}

// StatusPtr is a convenience for building patches.
func StatusPtr(s AssetStatus) *AssetStatus {
	return &s
}
