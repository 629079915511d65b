package prompt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"assettool/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) GenerateText(_ context.Context, prompt string, _ GenerateOptions) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

type fallbackCall struct{ op, reason string }

func newTestFacade(gen TextGenerator) (*Facade, *[]fallbackCall) {
	var calls []fallbackCall
	f := NewFacade(Options{
		NewClient: func(domain.AICredentials) (TextGenerator, error) { return gen, nil },
		Logger:    zerolog.Nop(),
		OnFallback: func(op, reason string) {
			calls = append(calls, fallbackCall{op, reason})
		},
	})
	return f, &calls
}

func googleCreds() *domain.AICredentials {
	return &domain.AICredentials{Provider: domain.ProviderGoogle, Model: "gemini-1.5-pro", APIKey: "k"}
}

func styledProject() *domain.Project {
	return &domain.Project{
		ID:   "p1",
		Name: "Fables",
		ArtStyle: domain.ArtStyle{
			Description:   "watercolor",
			StyleKeywords: []string{"soft", "pastel"},
		},
	}
}

func TestEnhanceMergesProjectStyle(t *testing.T) {
	f, calls := newTestFacade(&fakeGenerator{})
	res := f.Enhance(context.Background(), EnhanceRequest{Prompt: "A cat", Project: styledProject()})
	require.Equal(t, "A cat Style: watercolor Keywords: soft, pastel", res.Prompt)
	require.Equal(t, res.Prompt, res.Merged)
	require.False(t, res.AIUsed)
	require.Empty(t, *calls)
}

func TestEnhanceOverrideReplacesStyle(t *testing.T) {
	f, _ := newTestFacade(&fakeGenerator{})

	res := f.Enhance(context.Background(), EnhanceRequest{
		Prompt:        "A cat",
		Project:       styledProject(),
		StyleOverride: &domain.StyleOverride{Description: "ink sketch", Keywords: []string{}},
	})
	require.Equal(t, "A cat Style: ink sketch", res.Prompt)

	res = f.Enhance(context.Background(), EnhanceRequest{
		Prompt:        "A cat",
		Project:       styledProject(),
		StyleOverride: &domain.StyleOverride{Keywords: []string{"noir"}},
	})
	require.Equal(t, "A cat Style: watercolor Keywords: noir", res.Prompt)

	res = f.Enhance(context.Background(), EnhanceRequest{Prompt: "A cat", Project: &domain.Project{ID: "p2", Name: "Plain"}})
	require.Equal(t, "A cat", res.Prompt)
}

func TestEnhanceUsesModelText(t *testing.T) {
	gen := &fakeGenerator{text: "A majestic cat, watercolor, soft pastel tones"}
	f, calls := newTestFacade(gen)
	res := f.Enhance(context.Background(), EnhanceRequest{
		Prompt:      "A cat",
		Project:     styledProject(),
		AssetType:   domain.AssetTypeImage,
		Credentials: googleCreds(),
	})
	require.True(t, res.AIUsed)
	require.Equal(t, "A majestic cat, watercolor, soft pastel tones", res.Prompt)
	require.Equal(t, "A cat Style: watercolor Keywords: soft, pastel", res.Merged)
	require.Equal(t, domain.ProviderGoogle, res.Provider)
	require.Equal(t, "gemini-1.5-pro", res.Model)
	require.Empty(t, *calls)
	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "Asset type: image")
	require.Contains(t, gen.prompts[0], "Style keywords: soft, pastel")
}

func TestEnhanceFallsBackOnTransportError(t *testing.T) {
	var calls []fallbackCall
	f := NewFacade(Options{
		Logger: zerolog.Nop(),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("boom")
		})},
		OnFallback: func(op, reason string) { calls = append(calls, fallbackCall{op, reason}) },
	})
	res := f.Enhance(context.Background(), EnhanceRequest{Prompt: "A cat", Project: styledProject(), Credentials: googleCreds()})
	require.False(t, res.AIUsed)
	require.Equal(t, "A cat Style: watercolor Keywords: soft, pastel", res.Prompt)
	require.Equal(t, "http_request", res.FallbackReason)
	require.Equal(t, []fallbackCall{{"enhance", "http_request"}}, calls)
}

func TestEnhanceUnsupportedProviderFallsBack(t *testing.T) {
	gen := &fakeGenerator{text: "never"}
	f, calls := newTestFacade(gen)
	res := f.Enhance(context.Background(), EnhanceRequest{
		Prompt:      "A cat",
		Credentials: &domain.AICredentials{Provider: "openai", APIKey: "k"},
	})
	require.Equal(t, "A cat", res.Prompt)
	require.Equal(t, "unsupported_provider", res.FallbackReason)
	require.Equal(t, []fallbackCall{{"enhance", "unsupported_provider"}}, *calls)
	require.Empty(t, gen.prompts)
}

func TestEnhanceMissingKeyFallsBack(t *testing.T) {
	f, calls := newTestFacade(&fakeGenerator{text: "never"})
	res := f.Enhance(context.Background(), EnhanceRequest{
		Prompt:      "A cat",
		Credentials: &domain.AICredentials{Provider: domain.ProviderGoogle},
	})
	require.Equal(t, "A cat", res.Prompt)
	require.Equal(t, []fallbackCall{{"enhance", "missing_api_key"}}, *calls)
}

func TestScoreRules(t *testing.T) {
	f, _ := newTestFacade(nil)

	short, err := f.Score(context.Background(), "cat", Scope{})
	require.NoError(t, err)
	require.Equal(t, 30, short.Score)
	require.Equal(t, "Prompt is too short", short.Feedback)
	require.Len(t, short.Suggestions, 4)

	rich, err := f.Score(context.Background(), "A detailed photorealistic portrait, dramatic lighting", Scope{})
	require.NoError(t, err)
	require.Equal(t, 100, rich.Score)
	require.Equal(t, "Good prompt length. Includes quality descriptors. Includes style information. Includes lighting details", rich.Feedback)
	require.Empty(t, rich.Suggestions)

	long, err := f.Score(context.Background(), strings.Repeat("a", 501), Scope{})
	require.NoError(t, err)
	require.Equal(t, 40, long.Score)
}

func TestScoreRejectsUnsupportedProvider(t *testing.T) {
	f, _ := newTestFacade(&fakeGenerator{})
	_, err := f.Score(context.Background(), "A cat", Scope{Credentials: &domain.AICredentials{Provider: "anthropic", APIKey: "k"}})
	require.ErrorIs(t, err, domain.ErrUnsupportedProvider)

	_, err = f.Breakdown(context.Background(), "A cat", Scope{Credentials: &domain.AICredentials{Provider: "anthropic", APIKey: "k"}})
	require.ErrorIs(t, err, domain.ErrUnsupportedProvider)

	_, err = f.Suggest(context.Background(), "A cat", Scope{Credentials: &domain.AICredentials{Provider: "anthropic", APIKey: "k"}}, 3)
	require.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestScoreModelResponses(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"score\": 140, \"feedback\": \"\", \"suggestions\": [\"more light\"]}\n```"}
	f, _ := newTestFacade(gen)
	res, err := f.Score(context.Background(), "A cat", Scope{Project: styledProject(), Credentials: googleCreds()})
	require.NoError(t, err)
	require.Equal(t, 100, res.Score)
	require.Equal(t, "No feedback available", res.Feedback)
	require.Equal(t, []string{"more light"}, res.Suggestions)
	require.Contains(t, gen.prompts[0], "Project art style: watercolor")

	gen.text = "I cannot score this."
	res, err = f.Score(context.Background(), "A cat", Scope{Credentials: googleCreds()})
	require.NoError(t, err)
	require.Equal(t, neutralScore(), res)

	gen.err = errors.New("quota")
	res, err = f.Score(context.Background(), "cat", Scope{Credentials: googleCreds()})
	require.NoError(t, err)
	require.Equal(t, 30, res.Score)
}

func TestBreakdownRules(t *testing.T) {
	f, _ := newTestFacade(nil)
	bd, err := f.Breakdown(context.Background(), "A castle on a hill, Watercolor, golden hour, 4k detailed", Scope{
		Project:   styledProject(),
		AssetType: domain.AssetTypeImage,
	})
	require.NoError(t, err)
	require.Equal(t, "p1", bd.ProjectID)
	require.Equal(t, domain.AssetTypeImage, bd.AssetType)
	require.Len(t, bd.Components, 5)
	require.Equal(t, domain.ComponentSubject, bd.Components[0].Type)
	require.Equal(t, "Main Subject", bd.Components[0].Label)
	require.Equal(t, "A castle on a hill, watercolor, golden hour, 4k, detailed", bd.ReconstructedPrompt)
}

func TestBreakdownModelComponentsSortedByWeight(t *testing.T) {
	gen := &fakeGenerator{text: `{"components": [
		{"type": "lighting", "label": "Light", "value": "neon glow", "weight": 3},
		{"type": "subject", "label": "", "value": "a robot", "weight": 9},
		{"type": "mystery", "label": "Extra", "value": "f/1.8"}
	]}`}
	f, calls := newTestFacade(gen)
	bd, err := f.Breakdown(context.Background(), "a robot in neon glow", Scope{Credentials: googleCreds()})
	require.NoError(t, err)
	require.Empty(t, *calls)
	require.Equal(t, "a robot, f/1.8, neon glow", bd.ReconstructedPrompt)
	require.Equal(t, "Subject", bd.Components[0].Label)
	require.Equal(t, domain.ComponentTechnical, bd.Components[1].Type)
	require.Equal(t, 5, bd.Components[1].Weight)

	gen.text = "not json"
	bd, err = f.Breakdown(context.Background(), "a robot, sketch", Scope{Credentials: googleCreds()})
	require.NoError(t, err)
	require.Equal(t, "a robot, sketch", bd.ReconstructedPrompt)
	require.Equal(t, []fallbackCall{{"breakdown", "malformed_response"}}, *calls)
}

func TestSuggestRules(t *testing.T) {
	f, _ := newTestFacade(nil)

	all, err := f.Suggest(context.Background(), "a cat", Scope{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Add Quality Descriptors", all[0].Title)
	require.Equal(t, 0.8, all[0].Confidence)
	require.Equal(t, "Specify Lighting", all[1].Title)

	capped, err := f.Suggest(context.Background(), "a cat", Scope{}, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)

	none, err := f.Suggest(context.Background(), "a cat in 4K soft light", Scope{}, 3)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSuggestModel(t *testing.T) {
	gen := &fakeGenerator{text: `{"suggestions": [
		{"type": "style", "title": "Lean into ink", "description": "d", "suggestedChange": "add ink wash", "confidence": 1.4, "category": "style"}
	]}`}
	f, _ := newTestFacade(gen)
	out, err := f.Suggest(context.Background(), "a cat", Scope{Credentials: googleCreds()}, 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, domain.SuggestionStyle, out[0].Type)
	require.Equal(t, 1.0, out[0].Confidence)
	require.NotEmpty(t, out[0].ID)
}
