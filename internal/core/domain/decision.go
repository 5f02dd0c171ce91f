package domain

// NoBidReason explains why no bid was placed.
type NoBidReason string

const (
	NoBidNoCandidates      NoBidReason = "no_candidates"
	NoBidBelowFloor        NoBidReason = "below_floor"
	NoBidPaced             NoBidReason = "paced"
	NoBidInsufficientFunds NoBidReason = "insufficient_budget"
	NoBidDeadlineExceeded  NoBidReason = "deadline_exceeded"
	NoBidInvalidRequest    NoBidReason = "invalid_request"
	NoBidUnknownCampaign   NoBidReason = "unknown_campaign"
	NoBidShuttingDown      NoBidReason = "shutting_down"
)

// Rejected reports whether the reason is a caller error rather than an
// ordinary no-bid outcome.
func (r NoBidReason) Rejected() bool {
	return r == NoBidInvalidRequest || r == NoBidUnknownCampaign
}

// Bid is a positive decision. Price is in micro-units.
type Bid struct {
	CampaignID    CampaignID
	Price         int64
	ReservationID ReservationID
}

// BidDecision is produced exactly once per request. Bid is nil for a no-bid.
type BidDecision struct {
	RequestID string
	Bid       *Bid
	Reason    NoBidReason
	Truncated bool // evaluation stopped early at the soft deadline
}

// NoBid builds a negative decision.
func NoBid(requestID string, reason NoBidReason) BidDecision {
	return BidDecision{RequestID: requestID, Reason: reason}
}

// IsBid reports whether the decision carries a bid.
func (d BidDecision) IsBid() bool {
	return d.Bid != nil
}
