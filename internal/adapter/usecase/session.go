package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// SessionState is the progress of an auction session. Transitions only move
// forward, except Reserving -> Evaluating when the winner's reservation
// fails and the next best candidate is tried.
type SessionState int

const (
	StateCreated SessionState = iota
	StateMatching
	StatePacing
	StateEvaluating
	StateReserving
	StateDecided
)

func (s SessionState) String() string {
	return [...]string{"created", "matching", "pacing", "evaluating", "reserving", "decided"}[s]
}

// session handles exactly one bid request and produces exactly one
// decision. It is not safe for concurrent use.
type session struct {
	g     *Gateway
	req   *domain.BidRequest
	state SessionState

	// trace records every state entered, for tests and debug logs.
	trace []SessionState
}

func newSession(g *Gateway, req *domain.BidRequest) *session {
	return &session{g: g, req: req, state: StateCreated, trace: []SessionState{StateCreated}}
}

func (s *session) enter(st SessionState) {
	s.state = st
	s.trace = append(s.trace, st)
}

func (s *session) decide(d domain.BidDecision) domain.BidDecision {
	s.enter(StateDecided)
	return d
}

func (s *session) nobid(reason domain.NoBidReason) domain.BidDecision {
	return s.decide(domain.NoBid(s.req.ID, reason))
}

// expired reports whether the hard deadline has passed.
func (s *session) expired(ctx context.Context) bool {
	return ctx.Err() != nil || !s.g.clock.Now().Before(s.req.Deadline)
}

// run drives the session to a decision. ctx carries the hard deadline.
func (s *session) run(ctx context.Context) domain.BidDecision {
	if s.expired(ctx) {
		return s.nobid(domain.NoBidDeadlineExceeded)
	}

	s.enter(StateMatching)
	candidates := make([]*domain.Campaign, 0, 8)
	for c := range s.g.matcher.Eligible(s.req) {
		candidates = append(candidates, c)
		if len(candidates) == s.g.opts.MaxCandidates {
			break
		}
	}
	if len(candidates) == 0 {
		return s.nobid(domain.NoBidNoCandidates)
	}
	if s.expired(ctx) {
		return s.nobid(domain.NoBidDeadlineExceeded)
	}

	s.enter(StatePacing)
	now := s.g.clock.Now()
	candidates = slices.DeleteFunc(candidates, func(c *domain.Campaign) bool {
		return !s.g.pacer.MayBid(c.ID, now)
	})
	if len(candidates) == 0 {
		return s.nobid(domain.NoBidPaced)
	}

	soft := s.req.Deadline.Add(-s.g.opts.SafetyMargin)
	var lastErr error
	for attempt := 0; attempt < s.g.opts.MaxReservationAttempts && len(candidates) > 0; attempt++ {
		if s.expired(ctx) {
			return s.nobid(domain.NoBidDeadlineExceeded)
		}

		s.enter(StateEvaluating)
		d := s.g.evaluator.Evaluate(ctx, candidates, s.req, soft)
		if !d.IsBid() {
			return s.decide(d)
		}

		s.enter(StateReserving)
		res, err := s.g.ledger.Reserve(d.Bid.CampaignID, d.Bid.Price)
		if err != nil {
			if !retryable(err) {
				s.g.logger.Error("reservation failed",
					slog.String("request_id", s.req.ID),
					slog.String("campaign_id", string(d.Bid.CampaignID)),
					slog.Any("error", err),
				)
				return s.nobid(port.NoBidReason(err))
			}
			lastErr = err
			winner := d.Bid.CampaignID
			candidates = slices.DeleteFunc(candidates, func(c *domain.Campaign) bool {
				return c.ID == winner
			})
			continue
		}

		s.g.pacer.Record(res.CampaignID, res.Amount, s.g.clock.Now())
		if s.expired(ctx) {
			// the release refunds the pacer through the ledger's resolve hook
			if _, err := s.g.ledger.Release(res.ID); err != nil {
				s.g.logger.Warn("release after deadline failed",
					slog.String("reservation_id", string(res.ID)),
					slog.Any("error", err),
				)
			}
			return s.nobid(domain.NoBidDeadlineExceeded)
		}

		d.Bid.ReservationID = res.ID
		return s.decide(d)
	}

	if errors.Is(lastErr, port.ErrUnknownCampaign) {
		// every winner was deregistered while the auction ran
		return s.nobid(domain.NoBidNoCandidates)
	}
	return s.nobid(domain.NoBidInsufficientFunds)
}

// retryable reports whether a reservation failure is specific to the
// winning campaign, so the next candidate may still succeed.
func retryable(err error) bool {
	return errors.Is(err, port.ErrInsufficientBudget) ||
		errors.Is(err, port.ErrCampaignFrozen) ||
		errors.Is(err, port.ErrUnknownCampaign)
}

// remaining returns the time left until the request deadline.
func (s *session) remaining() time.Duration {
	return s.req.Deadline.Sub(s.g.clock.Now())
}
