package port

import (
	"context"

	"rtb-bidder/internal/core/domain"
)

// Bidder is the inbound port used by transports to run auctions and feed
// back their outcome.
type Bidder interface {
	// HandleRequest always returns a decision; failures are reported as
	// no-bid reasons.
	HandleRequest(ctx context.Context, req domain.BidRequest) domain.BidDecision
	// NotifyWin confirms a reservation at the clearing price.
	NotifyWin(ctx context.Context, id domain.ReservationID, clearPrice int64) error
	// NotifyLoss releases a reservation.
	NotifyLoss(ctx context.Context, id domain.ReservationID) error
}

// CampaignAdmin is the administrative inbound port.
type CampaignAdmin interface {
	RegisterCampaign(ctx context.Context, c domain.Campaign) error
	DeregisterCampaign(ctx context.Context, id domain.CampaignID, force bool) error
	UpdateBudget(ctx context.Context, id domain.CampaignID, delta int64) (domain.Balance, error)
	Balance(ctx context.Context, id domain.CampaignID) (domain.Balance, error)
	Campaign(id domain.CampaignID) (domain.Campaign, bool)
}

// AgentHandle is the opaque identifier of a bidding agent.
type AgentHandle uint64

// AgentAdmin creates and releases bidding agents of one gateway.
type AgentAdmin interface {
	CreateBiddingAgent(name string) (AgentHandle, error)
	Release(ctx context.Context, h AgentHandle) error
}
