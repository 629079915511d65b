package handlers

import (
	"net/http"
	"time"

	"assettool/internal/domain"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": domain.FormatTimestamp(time.Now()),
	})
}
