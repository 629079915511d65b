package prompt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"assettool/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ClientFactory builds a text generator for one request's credentials.
type ClientFactory func(creds domain.AICredentials) (TextGenerator, error)

type Options struct {
	NewClient    ClientFactory
	HTTPClient   *http.Client
	BaseURL      string
	DefaultModel string
	Logger       zerolog.Logger
	// OnFallback is called whenever an AI path was requested but rules
	// produced the result.
	OnFallback func(op, reason string)
}

// Facade decides between the Gemini-backed and the rule-based prompt
// tooling. It holds no state besides its configuration.
type Facade struct {
	newClient    ClientFactory
	defaultModel string
	log          zerolog.Logger
	onFallback   func(op, reason string)
}

func NewFacade(opts Options) *Facade {
	f := &Facade{
		newClient:    opts.NewClient,
		defaultModel: coalesce(opts.DefaultModel, geminiDefaultModel),
		log:          opts.Logger,
		onFallback:   opts.OnFallback,
	}
	if f.newClient == nil {
		baseURL, httpClient := opts.BaseURL, opts.HTTPClient
		f.newClient = func(creds domain.AICredentials) (TextGenerator, error) {
			return NewGeminiClient(GeminiOptions{
				APIKey:     creds.APIKey,
				Model:      creds.Model,
				BaseURL:    baseURL,
				HTTPClient: httpClient,
			})
		}
	}
	return f
}

// Scope is the context a scoring, breakdown or suggestion call runs in.
type Scope struct {
	Project     *domain.Project
	AssetType   domain.AssetType
	Credentials *domain.AICredentials
}

type EnhanceRequest struct {
	Prompt        string
	Project       *domain.Project
	AssetType     domain.AssetType
	StyleOverride *domain.StyleOverride
	Credentials   *domain.AICredentials
}

// Enhancement is the outcome of Enhance. Prompt is the text to use; Merged
// is the deterministic style-merged text it was derived from.
type Enhancement struct {
	Prompt         string
	Merged         string
	AIUsed         bool
	Provider       string
	Model          string
	FallbackReason string
}

// Enhance merges the art style into the prompt and, when credentials allow,
// asks the model to refine it. It never fails: any AI problem yields the
// merged text.
func (f *Facade) Enhance(ctx context.Context, req EnhanceRequest) Enhancement {
	merged, description, keywords := mergeStyle(req.Prompt, req.Project, req.StyleOverride)
	out := Enhancement{Prompt: merged, Merged: merged}

	creds := req.Credentials
	if creds == nil || creds.Provider == "" {
		return out
	}
	if creds.Provider != domain.ProviderGoogle {
		out.FallbackReason = "unsupported_provider"
		f.fallback("enhance", out.FallbackReason, nil)
		return out
	}
	gen, model, err := f.client(*creds)
	if err != nil {
		out.FallbackReason = failureReason(err)
		f.fallback("enhance", out.FallbackReason, err)
		return out
	}
	text, err := gen.GenerateText(ctx, buildEnhanceRequest(merged, req.AssetType, description, keywords), GenerateOptions{
		Temperature:     0.8,
		MaxOutputTokens: 800,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = callError("empty_response", nil)
	}
	if err != nil {
		out.FallbackReason = failureReason(err)
		f.fallback("enhance", out.FallbackReason, err)
		return out
	}
	out.Prompt = text
	out.AIUsed = true
	out.Provider = creds.Provider
	out.Model = model
	return out
}

type scorePayload struct {
	Score       *float64 `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

func neutralScore() domain.PromptScore {
	return domain.PromptScore{
		Score:    50,
		Feedback: "Unable to analyze prompt quality",
		Suggestions: []string{
			"Add more specific details",
			"Include quality descriptors",
			"Specify style preferences",
		},
	}
}

// Score rates prompt between 0 and 100.
func (f *Facade) Score(ctx context.Context, prompt string, scope Scope) (domain.PromptScore, error) {
	gen, ok, err := f.aiFor("score", scope.Credentials)
	if err != nil {
		return domain.PromptScore{}, err
	}
	if !ok {
		return scoreRules(prompt), nil
	}
	text, err := gen.GenerateText(ctx, buildScoreRequest(prompt, scope.AssetType, scope.Project), GenerateOptions{
		Temperature:     0.3,
		MaxOutputTokens: 800,
	})
	if err != nil {
		f.fallback("score", failureReason(err), err)
		return scoreRules(prompt), nil
	}
	payload, err := parseModelPayload[scorePayload](text)
	if err != nil || payload.Score == nil {
		f.log.Warn().Err(err).Msg("unparseable score response")
		return neutralScore(), nil
	}
	result := domain.PromptScore{
		Score:       clampScore(int(*payload.Score)),
		Feedback:    coalesce(payload.Feedback, "No feedback available"),
		Suggestions: payload.Suggestions,
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}
	return result, nil
}

type componentPayload struct {
	Components []struct {
		Type        string `json:"type"`
		Label       string `json:"label"`
		Value       string `json:"value"`
		Description string `json:"description"`
		Weight      int    `json:"weight"`
	} `json:"components"`
}

var componentTypes = map[domain.ComponentType]struct{}{
	domain.ComponentSubject:     {},
	domain.ComponentStyle:       {},
	domain.ComponentComposition: {},
	domain.ComponentLighting:    {},
	domain.ComponentCamera:      {},
	domain.ComponentMood:        {},
	domain.ComponentQuality:     {},
	domain.ComponentTechnical:   {},
}

// Breakdown splits prompt into weighted components and rebuilds it from
// them, heaviest first. The result carries no id or timestamp yet.
func (f *Facade) Breakdown(ctx context.Context, prompt string, scope Scope) (*domain.PromptBreakdown, error) {
	gen, ok, err := f.aiFor("breakdown", scope.Credentials)
	if err != nil {
		return nil, err
	}
	var components []domain.PromptComponent
	if ok {
		components, err = f.breakdownAI(ctx, gen, prompt, scope.AssetType)
		if err != nil {
			f.fallback("breakdown", failureReason(err), err)
			components = nil
		}
	}
	if components == nil {
		components = breakdownRules(prompt)
	}
	out := &domain.PromptBreakdown{
		OriginalPrompt:      prompt,
		Components:          components,
		ReconstructedPrompt: reconstruct(components),
		AssetType:           scope.AssetType,
	}
	if scope.Project != nil {
		out.ProjectID = scope.Project.ID
	}
	return out, nil
}

func (f *Facade) breakdownAI(ctx context.Context, gen TextGenerator, prompt string, assetType domain.AssetType) ([]domain.PromptComponent, error) {
	text, err := gen.GenerateText(ctx, buildBreakdownRequest(prompt, assetType), GenerateOptions{
		Temperature:     0.3,
		MaxOutputTokens: 1000,
	})
	if err != nil {
		return nil, err
	}
	payload, err := parseModelPayload[componentPayload](text)
	if err != nil {
		return nil, callError("malformed_response", err)
	}
	title := cases.Title(language.English)
	components := make([]domain.PromptComponent, 0, len(payload.Components))
	for _, c := range payload.Components {
		value := strings.TrimSpace(c.Value)
		if value == "" {
			continue
		}
		typ := domain.ComponentType(strings.ToLower(strings.TrimSpace(c.Type)))
		if _, known := componentTypes[typ]; !known {
			typ = domain.ComponentTechnical
		}
		components = append(components, domain.PromptComponent{
			ID:          uuid.NewString(),
			Type:        typ,
			Label:       coalesce(c.Label, title.String(string(typ))),
			Value:       value,
			Description: c.Description,
			Weight:      max(1, min(10, coalesceWeight(c.Weight))),
		})
	}
	if len(components) == 0 {
		return nil, callError("malformed_response", fmt.Errorf("no components in response"))
	}
	return components, nil
}

func coalesceWeight(w int) int {
	if w == 0 {
		return 5
	}
	return w
}

type suggestionPayload struct {
	Suggestions []struct {
		Type            string  `json:"type"`
		Title           string  `json:"title"`
		Description     string  `json:"description"`
		SuggestedChange string  `json:"suggestedChange"`
		Confidence      float64 `json:"confidence"`
		Category        string  `json:"category"`
		Reasoning       string  `json:"reasoning"`
	} `json:"suggestions"`
}

// Suggest proposes edits to prompt. A positive count caps the result.
func (f *Facade) Suggest(ctx context.Context, prompt string, scope Scope, count int) ([]domain.PromptSuggestion, error) {
	gen, ok, err := f.aiFor("suggest", scope.Credentials)
	if err != nil {
		return nil, err
	}
	var suggestions []domain.PromptSuggestion
	if ok {
		suggestions, err = f.suggestAI(ctx, gen, prompt, scope, count)
		if err != nil {
			f.fallback("suggest", failureReason(err), err)
			suggestions = nil
		}
	}
	if suggestions == nil {
		suggestions = suggestRules(prompt)
	}
	if count > 0 && len(suggestions) > count {
		suggestions = suggestions[:count]
	}
	return suggestions, nil
}

func (f *Facade) suggestAI(ctx context.Context, gen TextGenerator, prompt string, scope Scope, count int) ([]domain.PromptSuggestion, error) {
	text, err := gen.GenerateText(ctx, buildSuggestRequest(prompt, scope.AssetType, scope.Project, count), GenerateOptions{
		Temperature:     0.7,
		MaxOutputTokens: 1200,
	})
	if err != nil {
		return nil, err
	}
	payload, err := parseModelPayload[suggestionPayload](text)
	if err != nil {
		return nil, callError("malformed_response", err)
	}
	out := make([]domain.PromptSuggestion, 0, len(payload.Suggestions))
	for _, s := range payload.Suggestions {
		if strings.TrimSpace(s.Title) == "" && strings.TrimSpace(s.SuggestedChange) == "" {
			continue
		}
		typ := domain.SuggestionType(coalesce(s.Type, string(domain.SuggestionImprovement)))
		out = append(out, domain.PromptSuggestion{
			ID:              uuid.NewString(),
			Type:            typ,
			Title:           s.Title,
			Description:     s.Description,
			SuggestedChange: s.SuggestedChange,
			Confidence:      max(0, min(1, s.Confidence)),
			Category:        s.Category,
			Reasoning:       s.Reasoning,
		})
	}
	if len(out) == 0 {
		return nil, callError("malformed_response", fmt.Errorf("no suggestions in response"))
	}
	return out, nil
}

// aiFor resolves the generator for an analysis call. ok is false when the
// rules should run instead; an unsupported provider is an error.
func (f *Facade) aiFor(op string, creds *domain.AICredentials) (TextGenerator, bool, error) {
	if creds == nil || creds.Provider == "" {
		return nil, false, nil
	}
	if creds.Provider != domain.ProviderGoogle {
		return nil, false, fmt.Errorf("provider %q: %w", creds.Provider, domain.ErrUnsupportedProvider)
	}
	gen, _, err := f.client(*creds)
	if err != nil {
		f.fallback(op, failureReason(err), err)
		return nil, false, nil
	}
	return gen, true, nil
}

func (f *Facade) client(creds domain.AICredentials) (TextGenerator, string, error) {
	if strings.TrimSpace(creds.APIKey) == "" {
		return nil, "", callError("missing_api_key", nil)
	}
	creds.Model = coalesce(creds.Model, f.defaultModel)
	gen, err := f.newClient(creds)
	if err != nil {
		return nil, "", err
	}
	return gen, creds.Model, nil
}

func (f *Facade) fallback(op, reason string, err error) {
	f.log.Warn().Err(err).Str("op", op).Str("reason", reason).Msg("prompt ai fallback to rules")
	if f.onFallback != nil {
		f.onFallback(op, reason)
	}
}
