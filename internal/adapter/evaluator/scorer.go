package evaluator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// Scorer names accepted by NewScorer.
const (
	ScorerMaxBid      = "maxbid"
	ScorerFloorMarkup = "floor_markup"
	ScorerECPM        = "ecpm"
)

// MaxBid always bids the campaign's max bid price.
func MaxBid() port.Scorer {
	return port.ScorerFunc(func(_ *domain.BidRequest, c *domain.Campaign) int64 {
		return c.MaxBidPrice
	})
}

// FloorMarkup bids markup above the floor. Requests without a floor get the
// max bid price.
func FloorMarkup(markup float64) port.Scorer {
	factor := decimal.NewFromFloat(1 + markup)
	return port.ScorerFunc(func(req *domain.BidRequest, c *domain.Campaign) int64 {
		if req.FloorPrice <= 0 {
			return c.MaxBidPrice
		}
		return decimal.NewFromInt(req.FloorPrice).Mul(factor).Ceil().IntPart()
	})
}

// ECPM converts a CPC bid into an expected price per impression with a
// fixed click-through rate. Campaigns without a CPC bid fall back to their
// max bid price.
func ECPM(ctr float64) port.Scorer {
	rate := decimal.NewFromFloat(ctr)
	return port.ScorerFunc(func(_ *domain.BidRequest, c *domain.Campaign) int64 {
		if c.CPCBid <= 0 {
			return c.MaxBidPrice
		}
		return decimal.NewFromInt(c.CPCBid).Mul(rate).Floor().IntPart()
	})
}

// NewScorer resolves a scorer by name.
func NewScorer(name string, ctr, markup float64) (port.Scorer, error) {
	switch strings.ToLower(name) {
	case "", ScorerMaxBid:
		return MaxBid(), nil
	case ScorerFloorMarkup:
		return FloorMarkup(markup), nil
	case ScorerECPM:
		if ctr <= 0 || ctr > 1 {
			return nil, fmt.Errorf("ecpm scorer: ctr %v outside (0, 1]", ctr)
		}
		return ECPM(ctr), nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
}
