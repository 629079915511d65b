package handlers

import (
	"net/http"

	"assettool/internal/domain"
	"assettool/internal/generation"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type generateRequest struct {
	ProjectID            string                `json:"projectId"`
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	GenerationPrompt     string                `json:"generationPrompt"`
	GenerationParameters map[string]any        `json:"generationParameters"`
	StyleOverride        *domain.StyleOverride `json:"styleOverride"`
	AIConfig             *domain.AICredentials `json:"aiConfig"`
}

// Generate starts an image, video or prompt generation. The response is
// sent as soon as the asset and its queued job exist.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	assetType := domain.AssetType(chi.URLParam(r, "type"))
	if !assetType.Valid() {
		a.error(w, http.StatusBadRequest, "INVALID_ASSET_TYPE", "Asset type must be one of image, video, prompt")
		return
	}
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Engine.Start(r.Context(), generation.Request{
		ProjectID:            req.ProjectID,
		Type:                 assetType,
		Name:                 req.Name,
		Description:          req.Description,
		GenerationPrompt:     req.GenerationPrompt,
		GenerationParameters: req.GenerationParameters,
		StyleOverride:        req.StyleOverride,
		AIConfig:             aiConfig(r, req.AIConfig),
	})
	if err != nil {
		a.fail(w, r, err, "start "+string(assetType)+" generation")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"asset":   res.Asset,
		"job":     res.Job,
		"message": cases.Title(language.English).String(string(assetType)) + " generation started successfully",
	})
}

func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.Engine.GetJob(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		a.fail(w, r, err, "check generation status")
		return
	}
	if job == nil {
		a.error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Generation job not found")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"job":     job,
		"message": "Generation status retrieved successfully",
	})
}

func (a *App) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	ok, err := a.Engine.Cancel(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		a.fail(w, r, err, "cancel generation job")
		return
	}
	if !ok {
		a.error(w, http.StatusNotFound, "JOB_NOT_FOUND_OR_NOT_CANCELLABLE", "Generation job not found or cannot be cancelled")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "Generation job cancelled successfully"})
}

func (a *App) ActiveGenerations(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Engine.ActiveJobs(r.Context())
	if err != nil {
		a.fail(w, r, err, "list active jobs")
		return
	}
	if jobs == nil {
		jobs = []domain.GenerationJob{}
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}
