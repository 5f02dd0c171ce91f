package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// campaignDTO is the admin representation of a campaign. Money is in
// micro-units.
type campaignDTO struct {
	ID          string           `json:"id"`
	AgentID     string           `json:"agent_id,omitempty"`
	Name        string           `json:"name,omitempty"`
	Targeting   domain.Targeting `json:"targeting"`
	TotalBudget int64            `json:"total_budget"`
	Spent       int64            `json:"spent,omitempty"`
	MaxBidPrice int64            `json:"max_bid_price"`
	CPCBid      int64            `json:"cpc_bid,omitempty"`
	Priority    int              `json:"priority,omitempty"`
	PacingStart *time.Time       `json:"pacing_start,omitempty"`
	PacingEnd   *time.Time       `json:"pacing_end,omitempty"`
}

func (d campaignDTO) toDomain() domain.Campaign {
	c := domain.Campaign{
		ID:          domain.CampaignID(d.ID),
		AgentID:     d.AgentID,
		Name:        d.Name,
		Targeting:   d.Targeting,
		TotalBudget: d.TotalBudget,
		Spent:       d.Spent,
		MaxBidPrice: d.MaxBidPrice,
		CPCBid:      d.CPCBid,
		Priority:    d.Priority,
	}
	if d.PacingStart != nil {
		c.Pacing.Start = *d.PacingStart
	}
	if d.PacingEnd != nil {
		c.Pacing.End = *d.PacingEnd
	}
	return c
}

func fromDomain(c domain.Campaign) campaignDTO {
	d := campaignDTO{
		ID:          string(c.ID),
		AgentID:     c.AgentID,
		Name:        c.Name,
		Targeting:   c.Targeting,
		TotalBudget: c.TotalBudget,
		Spent:       c.Spent,
		MaxBidPrice: c.MaxBidPrice,
		CPCBid:      c.CPCBid,
		Priority:    c.Priority,
	}
	if !c.Pacing.IsZero() {
		start, end := c.Pacing.Start, c.Pacing.End
		d.PacingStart, d.PacingEnd = &start, &end
	}
	return d
}

type balanceDTO struct {
	Total       int64 `json:"total"`
	Spent       int64 `json:"spent"`
	Outstanding int64 `json:"outstanding"`
	Available   int64 `json:"available"`
	Pending     int   `json:"pending"`
	Frozen      bool  `json:"frozen,omitempty"`
}

func toBalanceDTO(b domain.Balance) balanceDTO {
	return balanceDTO{
		Total:       b.Total,
		Spent:       b.Spent,
		Outstanding: b.Outstanding,
		Available:   b.Available(),
		Pending:     b.Pending,
		Frozen:      b.Frozen,
	}
}

type campaignResponse struct {
	Campaign campaignDTO `json:"campaign"`
	Balance  balanceDTO  `json:"balance"`
}

func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var dto campaignDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", port.ErrInvalidCampaign, err))
		return
	}

	c := dto.toDomain()
	if err := h.admin.RegisterCampaign(r.Context(), c); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCampaign(w, r, http.StatusCreated, c.ID)
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	h.writeCampaign(w, r, http.StatusOK, domain.CampaignID(chi.URLParam(r, "id")))
}

func (h *Handler) writeCampaign(w http.ResponseWriter, r *http.Request, status int, id domain.CampaignID) {
	c, ok := h.admin.Campaign(id)
	if !ok {
		h.writeError(w, fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id))
		return
	}
	bal, err := h.admin.Balance(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, status, campaignResponse{Campaign: fromDomain(c), Balance: toBalanceDTO(bal)})
}

func (h *Handler) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := domain.CampaignID(chi.URLParam(r, "id"))

	var force bool
	if v := r.URL.Query().Get("force"); v != "" {
		var err error
		if force, err = strconv.ParseBool(v); err != nil {
			h.writeError(w, fmt.Errorf("%w: force=%q", port.ErrInvalidRequest, v))
			return
		}
	}

	if err := h.admin.DeregisterCampaign(r.Context(), id, force); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type budgetRequest struct {
	Delta int64 `json:"delta"`
}

func (h *Handler) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id := domain.CampaignID(chi.URLParam(r, "id"))

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", port.ErrInvalidRequest, err))
		return
	}
	if req.Delta == 0 {
		h.writeError(w, fmt.Errorf("%w: delta must be non-zero", port.ErrInvalidRequest))
		return
	}

	bal, err := h.admin.UpdateBudget(r.Context(), id, req.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBalanceDTO(bal))
}
