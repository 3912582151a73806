// internal/api/handler/api/board.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/newthinker/breakwatch/internal/api/response"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/view"
)

// BoardHandler serves the grouped, filtered and sorted board.
type BoardHandler struct {
	app Dashboard
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(app Dashboard) *BoardHandler {
	return &BoardHandler{app: app}
}

// SortRequest is the request body for a header click.
type SortRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Get returns the board for the query's search and direction. An exchange
// different from the selected one switches the dashboard first.
func (h *BoardHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	direction, err := core.ParseDirection(q.Get("direction"))
	if err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, err))
		return
	}

	if ex := strings.ToUpper(strings.TrimSpace(q.Get("exchange"))); ex != "" && ex != h.app.Exchange() {
		if err := h.app.SelectExchange(r.Context(), ex); err != nil {
			response.Fail(w, err)
			return
		}
	}

	board := h.app.Board(view.Filter{Search: q.Get("search"), Direction: direction})
	response.JSON(w, http.StatusOK, board)
}

// Sort toggles the sort directive of one bucket.
func (h *BoardHandler) Sort(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, err))
		return
	}

	key, err := core.ParseSortKey(req.Key)
	if err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, err))
		return
	}
	if req.Bucket == "" {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("bucket is required")))
		return
	}

	d, err := h.app.ToggleSort(req.Bucket, key)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"bucket": req.Bucket,
		"sort":   d,
	})
}
