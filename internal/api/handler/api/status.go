// internal/api/handler/api/status.go
package api

import (
	"net/http"

	"github.com/newthinker/breakwatch/internal/api/response"
)

// StatusHandler reports market status, loading and feed state.
type StatusHandler struct {
	app Dashboard
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(app Dashboard) *StatusHandler {
	return &StatusHandler{app: app}
}

// Get returns the current report.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.app.Report())
}

// Refresh runs a manual refetch and returns the resulting report.
func (h *StatusHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Refetch(r.Context()); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.app.Report())
}
