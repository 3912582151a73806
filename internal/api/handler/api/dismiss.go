// internal/api/handler/api/dismiss.go
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/newthinker/breakwatch/internal/api/response"
	"github.com/newthinker/breakwatch/internal/core"
)

// DismissHandler runs the dismiss and restore workflow.
type DismissHandler struct {
	app Dashboard
}

// NewDismissHandler creates a new dismiss handler.
func NewDismissHandler(app Dashboard) *DismissHandler {
	return &DismissHandler{app: app}
}

// KeyRequest names a breakout either by symbol and exchange or by its
// "<exchange>:<symbol>" key. Identifiers are forwarded as sent.
type KeyRequest struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Key      string `json:"key,omitempty"`
}

func (req KeyRequest) dismissKey() (core.DismissKey, error) {
	if req.Key != "" {
		return core.ParseDismissKey(strings.TrimSpace(req.Key))
	}
	k := core.DismissKey{
		Symbol:   strings.TrimSpace(req.Symbol),
		Exchange: strings.TrimSpace(req.Exchange),
	}
	return core.ParseDismissKey(k.String())
}

func decodeKey(r *http.Request) (core.DismissKey, error) {
	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.DismissKey{}, core.WrapError(core.ErrInvalidRequest, err)
	}
	return req.dismissKey()
}

// Dismiss hides a breakout. The board drops it only after the backend confirms.
func (h *DismissHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	k, err := decodeKey(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	if err := h.app.Dismiss(r.Context(), k.Symbol, k.Exchange); err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"symbol":    k.Symbol,
		"exchange":  k.Exchange,
		"dismissed": true,
	})
}

// Restore un-dismisses a breakout. The board shows it again on the next refetch.
func (h *DismissHandler) Restore(w http.ResponseWriter, r *http.Request) {
	k, err := decodeKey(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	if err := h.app.Hidden().Restore(r.Context(), k.String()); err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"symbol":   k.Symbol,
		"exchange": k.Exchange,
		"restored": true,
	})
}

// List returns the dismissed identifiers. A failed backend read yields an empty list.
func (h *DismissHandler) List(w http.ResponseWriter, r *http.Request) {
	items, _ := h.app.Hidden().Open(r.Context())
	response.JSON(w, http.StatusOK, map[string]any{
		"dismissed": items,
		"count":     len(items),
	})
}
