package port

import (
	"context"
	"time"

	"rtb-bidder/internal/core/domain"
)

// Scorer translates request context into a bid price for a campaign. The
// evaluator caps the result at the campaign's max bid price.
type Scorer interface {
	Score(req *domain.BidRequest, c *domain.Campaign) int64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(req *domain.BidRequest, c *domain.Campaign) int64

func (f ScorerFunc) Score(req *domain.BidRequest, c *domain.Campaign) int64 {
	return f(req, c)
}

// BidEvaluator picks the winning candidate and its price. The returned
// decision carries no reservation; the session obtains one afterwards.
type BidEvaluator interface {
	Evaluate(ctx context.Context, candidates []*domain.Campaign, req *domain.BidRequest, deadline time.Time) domain.BidDecision
}
