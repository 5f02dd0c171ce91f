package port

import (
	"iter"

	"rtb-bidder/internal/core/domain"
)

// CampaignMatcher returns the campaigns whose targeting accepts a request.
// The sequence is lazy, finite and restartable, and yields campaigns in
// descending priority order.
type CampaignMatcher interface {
	Eligible(req *domain.BidRequest) iter.Seq[*domain.Campaign]
}
