package httpadapter

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rtb-bidder/internal/adapter/openrtb"
)

// maxRequestBody caps an OpenRTB request body.
const maxRequestBody = 1 << 20

// handleAuction answers an exchange bid request: 200 with a seat bid, 204
// for an ordinary no-bid and 400 with a reason code for malformed input.
func (h *Handler) handleAuction(w http.ResponseWriter, r *http.Request) {
	exchange := chi.URLParam(r, "exchange")
	w.Header().Set("X-Openrtb-Version", "2.5")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	req, err := h.codec.Decode(body, exchange, h.clock.Now())
	if err != nil {
		h.logger.Warn("invalid bid request",
			slog.String("exchange", exchange),
			slog.Any("error", err),
		)
		h.writeJSON(w, http.StatusBadRequest, openrtb.NoBidResponse("", openrtb.NBRFromError(err)))
		return
	}

	decision := h.bidder.HandleRequest(r.Context(), req)

	out, err := h.codec.Encode(req, decision)
	if err != nil {
		h.logger.Error("encode bid response error",
			slog.String("request_id", req.ID),
			slog.Any("error", err),
		)
		// the hold would otherwise linger until it expires
		if decision.IsBid() {
			_ = h.bidder.NotifyLoss(r.Context(), decision.Bid.ReservationID)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	status := http.StatusOK
	if !decision.IsBid() {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(out); err != nil {
		h.logger.Debug("write bid response error", slog.Any("error", err))
	}
}
