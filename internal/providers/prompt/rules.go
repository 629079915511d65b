package prompt

import (
	"sort"
	"strings"
	"unicode/utf8"

	"assettool/internal/domain"

	"github.com/google/uuid"
)

var (
	scoreQualityTerms  = []string{"4k", "8k", "high resolution", "detailed", "sharp", "crisp"}
	scoreStyleTerms    = []string{"photorealistic", "artistic", "painting", "sketch", "cartoon", "anime"}
	scoreLightingTerms = []string{"lighting", "light", "shadow", "golden hour", "dramatic"}

	breakdownStyleTerms    = []string{"photorealistic", "cartoon", "anime", "oil painting", "watercolor", "sketch"}
	breakdownLightingTerms = []string{"golden hour", "dramatic lighting", "soft light", "harsh shadows"}
	breakdownQualityTerms  = []string{"4k", "8k", "high resolution", "detailed", "sharp"}
)

const (
	minPromptLength = 10
	maxPromptLength = 500
)

// mergeStyle appends the art style to base. An override description wins
// when non-empty; override keywords win whenever they were supplied at all.
func mergeStyle(base string, project *domain.Project, override *domain.StyleOverride) (string, string, []string) {
	var description string
	var keywords []string
	if project != nil {
		description = project.ArtStyle.Description
		keywords = project.ArtStyle.StyleKeywords
	}
	if override != nil {
		if override.Description != "" {
			description = override.Description
		}
		if override.Keywords != nil {
			keywords = override.Keywords
		}
	}

	out := base
	if description != "" {
		out += " Style: " + description
	}
	if len(keywords) > 0 {
		out += " Keywords: " + strings.Join(keywords, ", ")
	}
	return out, description, keywords
}

func scoreRules(prompt string) domain.PromptScore {
	text := fold(prompt)
	score := 50
	feedback := []string{}
	suggestions := []string{}

	switch n := utf8.RuneCountInString(prompt); {
	case n < minPromptLength:
		score -= 20
		feedback = append(feedback, "Prompt is too short")
		suggestions = append(suggestions, "Add more descriptive details")
	case n > maxPromptLength:
		score -= 10
		feedback = append(feedback, "Prompt might be too long")
		suggestions = append(suggestions, "Consider condensing to key elements")
	default:
		score += 10
		feedback = append(feedback, "Good prompt length")
	}

	if containsAny(text, scoreQualityTerms) {
		score += 15
		feedback = append(feedback, "Includes quality descriptors")
	} else {
		suggestions = append(suggestions, `Add quality descriptors like "4k, detailed"`)
	}
	if containsAny(text, scoreStyleTerms) {
		score += 15
		feedback = append(feedback, "Includes style information")
	} else {
		suggestions = append(suggestions, "Specify artistic style or rendering approach")
	}
	if containsAny(text, scoreLightingTerms) {
		score += 10
		feedback = append(feedback, "Includes lighting details")
	} else {
		suggestions = append(suggestions, "Add lighting description for better visual appeal")
	}

	return domain.PromptScore{
		Score:       clampScore(score),
		Feedback:    strings.Join(feedback, ". "),
		Suggestions: suggestions,
	}
}

func clampScore(score int) int {
	return max(0, min(100, score))
}

func breakdownRules(prompt string) []domain.PromptComponent {
	text := fold(prompt)
	var components []domain.PromptComponent
	add := func(terms []string, typ domain.ComponentType, label string, weight int) {
		for _, term := range terms {
			if strings.Contains(text, term) {
				components = append(components, domain.PromptComponent{
					ID:     uuid.NewString(),
					Type:   typ,
					Label:  label,
					Value:  term,
					Weight: weight,
				})
			}
		}
	}
	add(breakdownStyleTerms, domain.ComponentStyle, "Art Style", 7)
	add(breakdownLightingTerms, domain.ComponentLighting, "Lighting", 6)
	add(breakdownQualityTerms, domain.ComponentQuality, "Quality", 5)

	subject := strings.TrimSpace(strings.SplitN(prompt, ",", 2)[0])
	if subject == "" {
		subject = strings.TrimSpace(prompt)
	}
	return append([]domain.PromptComponent{{
		ID:     uuid.NewString(),
		Type:   domain.ComponentSubject,
		Label:  "Main Subject",
		Value:  subject,
		Weight: 10,
	}}, components...)
}

// reconstruct orders components by descending weight, in place, and joins
// their values.
func reconstruct(components []domain.PromptComponent) string {
	sort.SliceStable(components, func(i, j int) bool {
		return components[i].EffectiveWeight() > components[j].EffectiveWeight()
	})
	values := make([]string, 0, len(components))
	for _, c := range components {
		values = append(values, c.Value)
	}
	return strings.Join(values, ", ")
}

func suggestRules(prompt string) []domain.PromptSuggestion {
	text := fold(prompt)
	suggestions := []domain.PromptSuggestion{}
	if !strings.Contains(text, "4k") && !strings.Contains(text, "high resolution") {
		suggestions = append(suggestions, domain.PromptSuggestion{
			ID:              uuid.NewString(),
			Type:            domain.SuggestionImprovement,
			Title:           "Add Quality Descriptors",
			Description:     "Adding quality descriptors can improve the detail and resolution of generated images",
			SuggestedChange: `Add "4k, high resolution, detailed" to the end`,
			Confidence:      0.8,
			Category:        "quality",
		})
	}
	if !strings.Contains(text, "light") {
		suggestions = append(suggestions, domain.PromptSuggestion{
			ID:              uuid.NewString(),
			Type:            domain.SuggestionImprovement,
			Title:           "Specify Lighting",
			Description:     "Lighting specifications help create more visually appealing results",
			SuggestedChange: `Add lighting description like "golden hour lighting" or "dramatic shadows"`,
			Confidence:      0.7,
			Category:        "lighting",
		})
	}
	return suggestions
}
