package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"assettool/internal/domain"

	"github.com/go-chi/chi/v5"
)

type createAssetRequest struct {
	Type                 domain.AssetType   `json:"type"`
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	FilePath             string             `json:"filePath"`
	GenerationPrompt     string             `json:"generationPrompt"`
	GenerationParameters map[string]any     `json:"generationParameters"`
	Status               domain.AssetStatus `json:"status"`
	Metadata             map[string]any     `json:"metadata"`
}

func (a *App) ListProjectAssets(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}
	assets, err := a.Assets.ListByProject(r.Context(), project.ID)
	if err != nil {
		a.fail(w, r, err, "retrieve assets")
		return
	}
	a.json(w, http.StatusOK, assets)
}

func (a *App) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if !a.decode(w, r, &req) {
		return
	}
	status := req.Status
	if status == "" {
		status = domain.AssetStatusPending
	}
	asset := &domain.Asset{
		ProjectID:            chi.URLParam(r, "id"),
		Type:                 req.Type,
		Name:                 req.Name,
		Description:          req.Description,
		FilePath:             req.FilePath,
		GenerationPrompt:     req.GenerationPrompt,
		GenerationParameters: req.GenerationParameters,
		Status:               status,
		Metadata:             req.Metadata,
	}
	if err := a.Assets.Create(r.Context(), asset); err != nil {
		a.fail(w, r, err, "create asset")
		return
	}
	a.json(w, http.StatusCreated, asset)
}

func (a *App) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, ok := a.loadAsset(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, asset)
}

func (a *App) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	var patch domain.AssetPatch
	if !a.decode(w, r, &patch) {
		return
	}
	asset, err := a.Assets.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		a.fail(w, r, err, "update asset")
		return
	}
	if asset == nil {
		a.error(w, http.StatusNotFound, "ASSET_NOT_FOUND", "Asset not found")
		return
	}
	a.json(w, http.StatusOK, asset)
}

func (a *App) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.Assets.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "delete asset")
		return
	}
	if !deleted {
		a.error(w, http.StatusNotFound, "ASSET_NOT_FOUND", "Asset not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) loadAsset(w http.ResponseWriter, r *http.Request) (*domain.Asset, bool) {
	asset, err := a.Assets.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "retrieve asset")
		return nil, false
	}
	if asset == nil {
		a.error(w, http.StatusNotFound, "ASSET_NOT_FOUND", "Asset not found")
		return nil, false
	}
	return asset, true
}

// DownloadAsset sends the stored file of an asset as an attachment.
func (a *App) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	asset, ok := a.loadAsset(w, r)
	if !ok {
		return
	}
	if asset.FilePath == "" {
		a.error(w, http.StatusNotFound, "FILE_NOT_FOUND", "Asset file not found")
		return
	}
	data, err := a.Store.ReadFile(r.Context(), asset.FilePath)
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "FILE_NOT_FOUND", "Asset file not found on disk")
		return
	}
	if err != nil {
		a.fail(w, r, err, "download asset")
		return
	}
	ext := strings.ToLower(path.Ext(asset.FilePath))
	w.Header().Set("Content-Type", contentTypeFor(*asset, ext))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", asset.Name+ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func contentTypeFor(asset domain.Asset, ext string) string {
	if ct, ok := asset.Metadata["contentType"].(string); ok && ct != "" {
		return ct
	}
	switch asset.Type {
	case domain.AssetTypeImage:
		switch ext {
		case ".png":
			return "image/png"
		case ".jpg", ".jpeg":
			return "image/jpeg"
		case ".gif":
			return "image/gif"
		case ".webp":
			return "image/webp"
		}
	case domain.AssetTypeVideo:
		switch ext {
		case ".mp4":
			return "video/mp4"
		case ".webm":
			return "video/webm"
		case ".avi":
			return "video/avi"
		}
	case domain.AssetTypePrompt:
		if ext == ".txt" {
			return "text/plain; charset=utf-8"
		}
	}
	return "application/octet-stream"
}

// AssetGeneration reports the latest generation job of an asset.
func (a *App) AssetGeneration(w http.ResponseWriter, r *http.Request) {
	asset, ok := a.loadAsset(w, r)
	if !ok {
		return
	}
	job, err := a.Engine.GetStatus(r.Context(), asset.ID)
	if err != nil {
		a.fail(w, r, err, "check generation status")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"assetId": asset.ID, "job": job})
}
