package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"assettool/internal/domain"
	"assettool/internal/generation"
	"assettool/internal/middleware"
	"assettool/internal/promptmgr"
	"assettool/internal/storage"

	"github.com/rs/zerolog"
)

const maxJSONBody = 1 << 20

type App struct {
	Store    *storage.Store
	Projects domain.ProjectRepository
	Assets   domain.AssetRepository
	Engine   *generation.Engine
	Prompts  *promptmgr.Manager
	Log      zerolog.Logger

	// MaxUploadBytes bounds multipart style uploads.
	MaxUploadBytes int64
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.errorDetails(w, status, code, message, nil)
}

func (a *App) errorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	a.json(w, status, map[string]errorBody{"error": {
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: domain.FormatTimestamp(time.Now()),
	}})
}

// fail maps err onto a response. what names the failed action for 500s.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, what string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		a.errorDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]any{"validationErrors": verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrUnsupportedProvider):
		a.error(w, http.StatusBadRequest, "UNSUPPORTED_PROVIDER", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, generation.ErrEngineStopped):
		a.error(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Generation is shutting down")
	default:
		a.Log.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		a.errorDetails(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+what, err.Error())
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		a.errorDetails(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", err.Error())
		return false
	}
	return true
}

// aiConfig prefers credentials from the body and falls back to the
// X-AI-* headers.
func aiConfig(r *http.Request, body *domain.AICredentials) *domain.AICredentials {
	if body != nil {
		return body
	}
	creds := &domain.AICredentials{
		Provider: r.Header.Get("X-AI-Provider"),
		Model:    r.Header.Get("X-AI-Model"),
		APIKey:   r.Header.Get("X-AI-API-Key"),
	}
	if creds.Provider == "" && creds.APIKey == "" {
		return nil
	}
	return creds
}
