package port

import (
	"time"

	"rtb-bidder/internal/core/domain"
)

// Pacer smooths campaign spend over the pacing window. MayBid runs on the
// hot path for every candidate and must not block.
type Pacer interface {
	Track(c *domain.Campaign)
	Forget(id domain.CampaignID)
	MayBid(id domain.CampaignID, now time.Time) bool
	Record(id domain.CampaignID, amount int64, now time.Time)
	Refund(id domain.CampaignID, amount int64)
	UpdateBudget(id domain.CampaignID, total int64)
}
