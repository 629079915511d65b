package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"assettool/internal/adapter/repo"
	"assettool/internal/domain"
	"assettool/pkg/zip"

	"github.com/go-chi/chi/v5"
)

const (
	maxStyleImages        = 5
	defaultMaxUploadBytes = 10 << 20
)

type createProjectRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Context     string          `json:"context"`
	ArtStyle    domain.ArtStyle `json:"artStyle"`
}

func (a *App) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.Projects.List(r.Context())
	if err != nil {
		a.fail(w, r, err, "retrieve projects")
		return
	}
	a.json(w, http.StatusOK, projects)
}

func (a *App) GetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, project)
}

func (a *App) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !a.decode(w, r, &req) {
		return
	}
	project := &domain.Project{
		Name:        req.Name,
		Description: req.Description,
		Context:     req.Context,
		ArtStyle:    req.ArtStyle,
	}
	if err := a.Projects.Create(r.Context(), project); err != nil {
		a.fail(w, r, err, "create project")
		return
	}
	a.json(w, http.StatusCreated, project)
}

func (a *App) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProjectPatch
	if !a.decode(w, r, &patch) {
		return
	}
	project, err := a.Projects.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		a.fail(w, r, err, "update project")
		return
	}
	if project == nil {
		a.error(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
		return
	}
	a.json(w, http.StatusOK, project)
}

func (a *App) DeleteProject(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.Projects.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "delete project")
		return
	}
	if !deleted {
		a.error(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) loadProject(w http.ResponseWriter, r *http.Request) (*domain.Project, bool) {
	project, err := a.Projects.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "retrieve project")
		return nil, false
	}
	if project == nil {
		a.error(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
		return nil, false
	}
	return project, true
}

type styleImage struct {
	ext  string
	data []byte
}

// UploadStyleImages stores up to five reference images under the project's
// style directory and appends them to its art style.
func (a *App) UploadStyleImages(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}
	perFile := a.MaxUploadBytes
	if perFile <= 0 {
		perFile = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, perFile*maxStyleImages+1<<20)
	if err := r.ParseMultipartForm(perFile); err != nil {
		a.errorDetails(w, http.StatusBadRequest, "FILE_UPLOAD_ERROR", "invalid multipart payload", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, "NO_FILES_UPLOADED", "No files uploaded")
		return
	}
	if len(files) > maxStyleImages {
		a.error(w, http.StatusBadRequest, "FILE_UPLOAD_ERROR", fmt.Sprintf("At most %d images per upload", maxStyleImages))
		return
	}

	images := make([]styleImage, 0, len(files))
	for _, fh := range files {
		if fh.Size > perFile {
			a.error(w, http.StatusBadRequest, "FILE_UPLOAD_ERROR", fmt.Sprintf("%s exceeds the upload limit", fh.Filename))
			return
		}
		img, err := readStyleImage(fh)
		if err != nil {
			a.error(w, http.StatusBadRequest, "INVALID_FILE_TYPE", err.Error())
			return
		}
		images = append(images, img)
	}

	ctx := r.Context()
	refs := make([]string, 0, len(images))
	written := make([]string, 0, len(images))
	for _, img := range images {
		name := a.Store.GenerateID() + img.ext
		key := path.Join(repo.StyleDir(project.ID), name)
		if err := a.Store.WriteFile(ctx, key, img.data); err != nil {
			for _, k := range written {
				_ = a.Store.DeleteFile(ctx, k)
			}
			a.fail(w, r, err, "upload style images")
			return
		}
		written = append(written, key)
		refs = append(refs, path.Join("style", name))
	}

	updated, err := a.Projects.AddStyleImages(ctx, project.ID, refs)
	if err != nil {
		a.fail(w, r, err, "upload style images")
		return
	}
	a.json(w, http.StatusOK, updated)
}

func readStyleImage(fh *multipart.FileHeader) (styleImage, error) {
	f, err := fh.Open()
	if err != nil {
		return styleImage{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return styleImage{}, err
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ct, "image/") {
		return styleImage{}, errors.New("only image files are allowed")
	}
	ext := strings.ToLower(path.Ext(fh.Filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(ct); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return styleImage{ext: ext, data: data}, nil
}

// ExportProject streams a zip with the project record, its assets and
// every stored file that belongs to them.
func (a *App) ExportProject(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	assets, err := a.Assets.ListByProject(ctx, project.ID)
	if err != nil {
		a.fail(w, r, err, "export project")
		return
	}

	now := time.Now()
	projectJSON, _ := json.MarshalIndent(project, "", "  ")
	assetsJSON, _ := json.MarshalIndent(assets, "", "  ")
	entries := []zip.Entry{
		{Name: "project.json", Data: projectJSON, Modified: now},
		{Name: "assets.json", Data: assetsJSON, Modified: now},
	}
	for _, asset := range assets {
		if asset.FilePath == "" {
			continue
		}
		data, err := a.Store.ReadFile(ctx, asset.FilePath)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			a.fail(w, r, err, "export project")
			return
		}
		entries = append(entries, zip.Entry{Name: path.Join("assets", "files", path.Base(asset.FilePath)), Data: data, Modified: now})
	}
	for _, ref := range project.ArtStyle.ReferenceImages {
		data, err := a.Store.ReadFile(ctx, path.Join(repo.StyleDir(project.ID), path.Base(ref)))
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			a.fail(w, r, err, "export project")
			return
		}
		entries = append(entries, zip.Entry{Name: path.Join("style", path.Base(ref)), Data: data, Modified: now})
	}

	archive, err := zip.Archive(entries)
	if err != nil {
		a.fail(w, r, err, "export project")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=project-%s.zip", project.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
