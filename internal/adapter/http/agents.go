package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rtb-bidder/internal/core/port"
)

type agentRequest struct {
	Name string `json:"name"`
}

type agentResponse struct {
	Handle uint64 `json:"handle"`
	Name   string `json:"name"`
}

func (h *Handler) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", port.ErrInvalidRequest, err))
		return
	}

	ah, err := h.agents.CreateBiddingAgent(req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, agentResponse{Handle: uint64(ah), Name: req.Name})
}

// handleReleaseAgent deregisters every campaign of the agent, waiting for
// their pending reservations to resolve.
func (h *Handler) handleReleaseAgent(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "handle")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: handle %q", port.ErrInvalidRequest, raw))
		return
	}

	if err := h.agents.Release(r.Context(), port.AgentHandle(n)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
