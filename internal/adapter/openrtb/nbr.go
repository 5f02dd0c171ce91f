package openrtb

import (
	"errors"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/openrtb/v20/openrtb3"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// NBR maps a no-bid reason to the OpenRTB no-bid reason code.
func NBR(reason domain.NoBidReason) openrtb3.NoBidReason {
	switch reason {
	case domain.NoBidInvalidRequest:
		return openrtb3.NoBidInvalidRequest
	case domain.NoBidDeadlineExceeded:
		return openrtb3.NoBidInsufficientTime
	case domain.NoBidUnknownCampaign, domain.NoBidShuttingDown:
		return openrtb3.NoBidTechnicalError
	default:
		return openrtb3.NoBidUnknownError
	}
}

// NBRFromError maps a decoding or handling error to a no-bid reason code.
func NBRFromError(err error) openrtb3.NoBidReason {
	switch {
	case errors.Is(err, port.ErrInvalidRequest):
		return openrtb3.NoBidInvalidRequest
	case errors.Is(err, port.ErrDeadlineExceeded):
		return openrtb3.NoBidInsufficientTime
	case errors.Is(err, port.ErrGatewayClosed):
		return openrtb3.NoBidTechnicalError
	default:
		return openrtb3.NoBidUnknownError
	}
}

// NoBidResponse is an empty response carrying a reason code.
func NoBidResponse(id string, nbr openrtb3.NoBidReason) *openrtb2.BidResponse {
	return &openrtb2.BidResponse{ID: id, NBR: nbr.Ptr()}
}
