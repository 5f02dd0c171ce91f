// Package evaluator prices the eligible campaigns of an auction and picks
// the winner.
package evaluator

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// Evaluator implements port.BidEvaluator.
type Evaluator struct {
	scorer port.Scorer
	clock  clock.Clock
}

var _ port.BidEvaluator = (*Evaluator)(nil)

// New returns an evaluator that prices candidates with scorer.
func New(scorer port.Scorer, clk clock.Clock) *Evaluator {
	return &Evaluator{scorer: scorer, clock: clk}
}

type scored struct {
	campaign *domain.Campaign
	price    int64
}

// better reports whether a beats b: higher price, then higher priority,
// then lower id.
func (a scored) better(b scored) bool {
	if a.price != b.price {
		return a.price > b.price
	}
	return a.campaign.Less(b.campaign)
}

// Evaluate scores candidates in order. Once the soft deadline passes it
// decides from what has been scored so far; a cancelled context aborts
// with a deadline no-bid.
func (e *Evaluator) Evaluate(ctx context.Context, candidates []*domain.Campaign, req *domain.BidRequest, deadline time.Time) domain.BidDecision {
	if len(candidates) == 0 {
		return domain.NoBid(req.ID, domain.NoBidNoCandidates)
	}

	var (
		best      *scored
		truncated bool
	)
	for i, c := range candidates {
		if ctx.Err() != nil {
			return domain.NoBid(req.ID, domain.NoBidDeadlineExceeded)
		}
		if i > 0 && !e.clock.Now().Before(deadline) {
			truncated = true
			break
		}

		price := min(c.MaxBidPrice, e.scorer.Score(req, c))
		if price <= 0 || price < req.FloorPrice {
			continue
		}
		s := scored{campaign: c, price: price}
		if best == nil || s.better(*best) {
			best = &s
		}
	}

	if best == nil {
		reason := domain.NoBidBelowFloor
		if truncated {
			reason = domain.NoBidDeadlineExceeded
		}
		d := domain.NoBid(req.ID, reason)
		d.Truncated = truncated
		return d
	}
	return domain.BidDecision{
		RequestID: req.ID,
		Bid:       &domain.Bid{CampaignID: best.campaign.ID, Price: best.price},
		Truncated: truncated,
	}
}
