package domain

// ArtStyle carries the visual direction shared by every asset of a project.
type ArtStyle struct {
	Description     string   `json:"description" validate:"max=2000"`
	ReferenceImages []string `json:"referenceImages"`
	StyleKeywords   []string `json:"styleKeywords"`
}

// Project groups assets under a common context and art style.
type Project struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Context     string   `json:"context" validate:"max=1000"`
	ArtStyle    ArtStyle `json:"artStyle"`
	CreatedAt   string   `json:"createdAt" validate:"required"`
	UpdatedAt   string   `json:"updatedAt" validate:"required"`
}

// ProjectPatch holds the mutable project fields; nil means unchanged.
type ProjectPatch struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Context     *string   `json:"context"`
	ArtStyle    *ArtStyle `json:"artStyle"`
}

// Apply merges the patch into p. Identity and timestamps are untouched.
func (patch ProjectPatch) Apply(p *Project) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Context != nil {
		p.Context = *patch.Context
	}
	if patch.ArtStyle != nil {
		p.ArtStyle = *patch.ArtStyle
	}
	p.ArtStyle.Normalize()
}

// Normalize replaces nil slices so they serialize as empty arrays.
func (s *ArtStyle) Normalize() {
	if s.ReferenceImages == nil {
		s.ReferenceImages = []string{}
	}
	if s.StyleKeywords == nil {
		s.StyleKeywords = []string{}
	}
}
