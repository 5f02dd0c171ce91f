package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"

	"rtb-bidder/internal/adapter/openrtb"
	"rtb-bidder/internal/core/port"
	"rtb-bidder/internal/metrics"
)

// Deps are the collaborators of the HTTP adapter.
type Deps struct {
	Bidder  port.Bidder
	Admin   port.CampaignAdmin
	Agents  port.AgentAdmin
	Codec   openrtb.Codec
	Limiter *RateLimiter // nil disables admin rate limiting
	Clock   clock.Clock
	Logger  *slog.Logger
	// Ready reports whether the bidder accepts auctions.
	Ready func() bool
}

// Handler is the inbound HTTP adapter: the exchange-facing bid and notice
// endpoints, the admin API, health checks and metrics.
type Handler struct {
	bidder port.Bidder
	admin  port.CampaignAdmin
	agents port.AgentAdmin
	codec  openrtb.Codec
	clock  clock.Clock
	logger *slog.Logger
	ready  func() bool
	router chi.Router
}

// NewHandler wires every route on a new chi router.
func NewHandler(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Ready == nil {
		d.Ready = func() bool { return true }
	}
	h := &Handler{
		bidder: d.Bidder,
		admin:  d.Admin,
		agents: d.Agents,
		codec:  d.Codec,
		clock:  d.Clock,
		logger: d.Logger,
		ready:  d.Ready,
	}

	r := chi.NewRouter()
	r.Post("/openrtb2/{exchange}/auction", h.handleAuction)
	r.Get("/notice/win/{reservationID}", h.handleWinNotice)
	r.Get("/notice/loss/{reservationID}", h.handleLossNotice)

	r.Route("/api/v1", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		r.Post("/campaigns", h.handleCreateCampaign)
		r.Get("/campaigns/{id}", h.handleGetCampaign)
		r.Delete("/campaigns/{id}", h.handleDeleteCampaign)
		r.Patch("/campaigns/{id}/budget", h.handleUpdateBudget)
		r.Post("/agents", h.handleCreateAgent)
		r.Delete("/agents/{handle}", h.handleReleaseAgent)
	})

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Handle("/metrics", metrics.Handler())
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !h.ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps core errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", slog.Any("error", err))
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, port.ErrUnknownCampaign),
		errors.Is(err, port.ErrUnknownReservation),
		errors.Is(err, port.ErrUnknownAgent):
		return http.StatusNotFound
	case errors.Is(err, port.ErrInvalidRequest),
		errors.Is(err, port.ErrInvalidCampaign),
		errors.Is(err, port.ErrInvalidClearPrice):
		return http.StatusBadRequest
	case errors.Is(err, port.ErrCampaignExists),
		errors.Is(err, port.ErrAgentExists),
		errors.Is(err, port.ErrActiveReservations),
		errors.Is(err, port.ErrReservationClosed),
		errors.Is(err, port.ErrInsufficientBudget):
		return http.StatusConflict
	case errors.Is(err, port.ErrGatewayClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
