package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"assettool/internal/domain"
	"assettool/internal/promptmgr"

	"github.com/go-chi/chi/v5"
)

type enhanceResponse struct {
	OriginalPrompt string `json:"originalPrompt"`
	EnhancedPrompt string `json:"enhancedPrompt"`
	StyleMerged    string `json:"styleMergedPrompt"`
	AIUsed         bool   `json:"aiUsed"`
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model,omitempty"`
}

// analysis decodes the shared prompt tooling body and resolves AI
// credentials from the X-AI-* headers when the body carries none.
func (a *App) analysis(w http.ResponseWriter, r *http.Request) (promptmgr.Analysis, bool) {
	var req promptmgr.Analysis
	if !a.decode(w, r, &req) {
		return req, false
	}
	req.AIConfig = aiConfig(r, req.AIConfig)
	return req, true
}

func (a *App) PromptEnhance(w http.ResponseWriter, r *http.Request) {
	req, ok := a.analysis(w, r)
	if !ok {
		return
	}
	res, err := a.Prompts.Enhance(r.Context(), req)
	if err != nil {
		a.fail(w, r, err, "enhance prompt")
		return
	}
	a.json(w, http.StatusOK, enhanceResponse{
		OriginalPrompt: req.Prompt,
		EnhancedPrompt: res.Prompt,
		StyleMerged:    res.Merged,
		AIUsed:         res.AIUsed,
		Provider:       res.Provider,
		Model:          res.Model,
	})
}

func (a *App) PromptBreakdown(w http.ResponseWriter, r *http.Request) {
	req, ok := a.analysis(w, r)
	if !ok {
		return
	}
	breakdown, err := a.Prompts.Breakdown(r.Context(), req)
	if err != nil {
		a.fail(w, r, err, "breakdown prompt")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"breakdown": breakdown})
}

func (a *App) PromptSuggestions(w http.ResponseWriter, r *http.Request) {
	req, ok := a.analysis(w, r)
	if !ok {
		return
	}
	suggestions, err := a.Prompts.Suggest(r.Context(), req)
	if err != nil {
		a.fail(w, r, err, "generate suggestions")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (a *App) PromptScore(w http.ResponseWriter, r *http.Request) {
	req, ok := a.analysis(w, r)
	if !ok {
		return
	}
	score, err := a.Prompts.Score(r.Context(), req)
	if err != nil {
		a.fail(w, r, err, "score prompt")
		return
	}
	a.json(w, http.StatusOK, score)
}

// ListTemplates filters by assetType, category and tags. Tags may repeat
// or be comma separated.
func (a *App) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TemplateFilter{
		AssetType: domain.AssetType(q.Get("assetType")),
		Category:  q.Get("category"),
	}
	if filter.AssetType != "" && !filter.AssetType.Valid() {
		a.error(w, http.StatusBadRequest, "INVALID_ASSET_TYPE", "Asset type must be one of image, video, prompt")
		return
	}
	for _, raw := range q["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}
	templates, err := a.Prompts.Templates(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err, "get templates")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"templates": templates})
}

func (a *App) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl domain.PromptTemplate
	if !a.decode(w, r, &tpl) {
		return
	}
	tpl.ID, tpl.CreatedAt, tpl.UpdatedAt = "", "", ""
	if err := a.Prompts.CreateTemplate(r.Context(), &tpl); err != nil {
		a.fail(w, r, err, "create template")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"template": tpl})
}

func (a *App) PromptHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := a.queryInt(w, q.Get("limit"), "limit")
	if !ok {
		return
	}
	offset, ok := a.queryInt(w, q.Get("offset"), "offset")
	if !ok {
		return
	}
	page, err := a.Prompts.History(r.Context(), chi.URLParam(r, "projectId"), q.Get("assetId"), limit, offset)
	if err != nil {
		a.fail(w, r, err, "get history")
		return
	}
	if page.History == nil {
		page.History = []domain.PromptHistory{}
	}
	a.json(w, http.StatusOK, page)
}

func (a *App) queryInt(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		a.errorDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]any{"validationErrors": []domain.FieldError{{Path: name, Message: "must be an integer"}}})
		return 0, false
	}
	return v, true
}

func (a *App) SavePromptHistory(w http.ResponseWriter, r *http.Request) {
	var entry promptmgr.HistoryEntry
	if !a.decode(w, r, &entry) {
		return
	}
	history, err := a.Prompts.SaveHistory(r.Context(), entry)
	if err != nil {
		a.fail(w, r, err, "save history")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"history": history})
}
