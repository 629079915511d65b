package domain

// EnhancementType records how a prompt reached its final form.
type EnhancementType string

const (
	EnhancementManual   EnhancementType = "manual"
	EnhancementAI       EnhancementType = "ai"
	EnhancementTemplate EnhancementType = "template"
)

// ProviderGoogle is the only AI provider the prompt tooling can call.
const ProviderGoogle = "google"

// AICredentials are supplied per request; they are never persisted.
type AICredentials struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"apiKey"`
}

// Usable reports whether enough was supplied to attempt an AI call.
func (c *AICredentials) Usable() bool {
	return c != nil && c.Provider != "" && c.APIKey != ""
}

// StyleOverride replaces the project art style for a single generation.
type StyleOverride struct {
	Description string   `json:"description,omitempty" validate:"max=2000"`
	Keywords    []string `json:"keywords,omitempty"`
}

// PromptHistoryMetadata describes how a history entry was produced.
type PromptHistoryMetadata struct {
	AIProvider      string          `json:"aiProvider,omitempty"`
	AIModel         string          `json:"aiModel,omitempty"`
	EnhancementType EnhancementType `json:"enhancementType" validate:"required,oneof=manual ai template"`
	Score           *int            `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Feedback        string          `json:"feedback,omitempty"`
}

// PromptHistory is one versioned entry of the prompt audit trail.
type PromptHistory struct {
	ID             string                `json:"id" validate:"required"`
	ProjectID      string                `json:"projectId" validate:"required"`
	AssetID        string                `json:"assetId,omitempty"`
	OriginalPrompt string                `json:"originalPrompt" validate:"required"`
	EnhancedPrompt string                `json:"enhancedPrompt,omitempty"`
	Version        int                   `json:"version" validate:"gte=1"`
	Metadata       PromptHistoryMetadata `json:"metadata"`
	CreatedAt      string                `json:"createdAt" validate:"required"`
}

// ComponentType classifies a fragment of a prompt.
type ComponentType string

const (
	ComponentSubject     ComponentType = "subject"
	ComponentStyle       ComponentType = "style"
	ComponentComposition ComponentType = "composition"
	ComponentLighting    ComponentType = "lighting"
	ComponentCamera      ComponentType = "camera"
	ComponentMood        ComponentType = "mood"
	ComponentQuality     ComponentType = "quality"
	ComponentTechnical   ComponentType = "technical"
)

// PromptComponent is one weighted fragment of a prompt.
type PromptComponent struct {
	ID          string        `json:"id" validate:"required"`
	Type        ComponentType `json:"type" validate:"required,oneof=subject style composition lighting camera mood quality technical"`
	Label       string        `json:"label" validate:"required"`
	Value       string        `json:"value" validate:"required"`
	Description string        `json:"description,omitempty"`
	Weight      int           `json:"weight,omitempty" validate:"omitempty,gte=1,lte=10"`
}

// EffectiveWeight is the weight used for ordering; unset weights count as 5.
func (c PromptComponent) EffectiveWeight() int {
	if c.Weight == 0 {
		return 5
	}
	return c.Weight
}

// PromptBreakdown is a prompt decomposed into components and rebuilt.
type PromptBreakdown struct {
	ID                  string            `json:"id" validate:"required"`
	OriginalPrompt      string            `json:"originalPrompt" validate:"required"`
	Components          []PromptComponent `json:"components" validate:"dive"`
	ReconstructedPrompt string            `json:"reconstructedPrompt"`
	ProjectID           string            `json:"projectId,omitempty"`
	AssetType           AssetType         `json:"assetType,omitempty" validate:"omitempty,oneof=image video prompt"`
	CreatedAt           string            `json:"createdAt" validate:"required"`
}

// SuggestionType classifies a prompt suggestion.
type SuggestionType string

const (
	SuggestionImprovement SuggestionType = "improvement"
	SuggestionAlternative SuggestionType = "alternative"
	SuggestionComponent   SuggestionType = "component"
	SuggestionStyle       SuggestionType = "style"
)

// PromptSuggestion is a proposed edit to a prompt.
type PromptSuggestion struct {
	ID              string         `json:"id"`
	Type            SuggestionType `json:"type"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	SuggestedChange string         `json:"suggestedChange"`
	Confidence      float64        `json:"confidence"`
	Category        string         `json:"category"`
	Reasoning       string         `json:"reasoning,omitempty"`
}

// PromptScore rates a prompt on a 0..100 scale.
type PromptScore struct {
	Score       int      `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// TemplateComponent describes one slot of a prompt template.
type TemplateComponent struct {
	Type        ComponentType `json:"type" validate:"required,oneof=subject style composition lighting camera mood quality technical"`
	Label       string        `json:"label" validate:"required"`
	Description string        `json:"description,omitempty"`
}

// PromptTemplate is a reusable prompt skeleton.
type PromptTemplate struct {
	ID            string              `json:"id" validate:"required"`
	Name          string              `json:"name" validate:"required,max=100"`
	Description   string              `json:"description" validate:"max=500"`
	AssetType     AssetType           `json:"assetType" validate:"required,oneof=image video prompt"`
	Category      string              `json:"category" validate:"required"`
	Components    []TemplateComponent `json:"components" validate:"dive"`
	ExamplePrompt string              `json:"examplePrompt"`
	Tags          []string            `json:"tags"`
	CreatedAt     string              `json:"createdAt" validate:"required"`
	UpdatedAt     string              `json:"updatedAt" validate:"required"`
}

// TemplateFilter narrows template listings; empty fields match everything.
type TemplateFilter struct {
	AssetType AssetType
	Category  string
	Tags      []string
}
