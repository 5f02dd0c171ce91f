package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rtb-bidder/internal/adapter/openrtb"
	"rtb-bidder/internal/core/domain"
)

// handleWinNotice confirms the reservation named in the nurl at the clearing
// price the exchange substituted for the price macro.
func (h *Handler) handleWinNotice(w http.ResponseWriter, r *http.Request) {
	id := domain.ReservationID(chi.URLParam(r, "reservationID"))

	price, err := openrtb.ParsePrice(r.URL.Query().Get("price"))
	if err != nil {
		h.logger.Warn("bad win notice", slog.String("reservation_id", string(id)), slog.Any("error", err))
		h.writeError(w, err)
		return
	}

	if err := h.bidder.NotifyWin(r.Context(), id, price); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLossNotice(w http.ResponseWriter, r *http.Request) {
	id := domain.ReservationID(chi.URLParam(r, "reservationID"))
	if err := h.bidder.NotifyLoss(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
