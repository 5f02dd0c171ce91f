package port

import (
	"errors"

	"rtb-bidder/internal/core/domain"
)

var (
	ErrUnknownCampaign    = errors.New("unknown campaign")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrDeadlineExceeded   = errors.New("deadline exceeded")
	ErrActiveReservations = errors.New("campaign has active reservations")
	ErrInvalidRequest     = errors.New("invalid request")

	ErrUnknownReservation = errors.New("unknown reservation")
	ErrReservationClosed  = errors.New("reservation already closed")
	ErrInvalidClearPrice  = errors.New("invalid clearing price")
	ErrCampaignExists     = errors.New("campaign already registered")
	ErrInvalidCampaign    = errors.New("invalid campaign")
	ErrCampaignFrozen     = errors.New("campaign frozen after ledger corruption")
	ErrLedgerCorrupted    = errors.New("ledger accounting corrupted")
	ErrGatewayClosed      = errors.New("gateway is shut down")
	ErrUnknownAgent       = errors.New("unknown bidding agent")
	ErrAgentExists        = errors.New("bidding agent already exists")
)

// NoBidReason maps an error produced while handling a request to the
// no-bid reason reported to the caller. Unknown errors are treated as an
// ordinary lack of candidates.
func NoBidReason(err error) domain.NoBidReason {
	switch {
	case errors.Is(err, ErrDeadlineExceeded):
		return domain.NoBidDeadlineExceeded
	case errors.Is(err, ErrInsufficientBudget), errors.Is(err, ErrCampaignFrozen):
		return domain.NoBidInsufficientFunds
	case errors.Is(err, ErrInvalidRequest):
		return domain.NoBidInvalidRequest
	case errors.Is(err, ErrUnknownCampaign):
		return domain.NoBidUnknownCampaign
	case errors.Is(err, ErrGatewayClosed):
		return domain.NoBidShuttingDown
	default:
		return domain.NoBidNoCandidates
	}
}
