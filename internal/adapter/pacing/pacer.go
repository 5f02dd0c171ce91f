// Package pacing spreads campaign spend across the pacing window with a
// generic cell rate algorithm. Each campaign keeps a single theoretical
// arrival time (TAT): spending amount pushes it forward by amount*interval,
// and a bid is allowed while the TAT stays within the burst tolerance of now.
package pacing

import (
	"sync"
	"sync/atomic"
	"time"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// Config tunes how strictly spend follows the even rate.
type Config struct {
	// Ceiling multiplies the even spend rate. 1 spends exactly evenly, 2
	// allows catching up at twice the rate after a quiet period.
	Ceiling float64
	// Burst is the tolerance of the bucket expressed as time. It is raised
	// to at least one max-price bid.
	Burst time.Duration
}

type params struct {
	window   domain.Window
	unpaced  bool
	interval float64 // nanoseconds of allowance per micro-unit
	tau      int64   // burst tolerance, ns
	maxBid   int64
}

type state struct {
	params atomic.Pointer[params]
	tat    atomic.Int64 // unix nanoseconds
	spent  atomic.Int64
}

// Pacer implements port.Pacer. MayBid performs only atomic loads.
type Pacer struct {
	cfg    Config
	states sync.Map // domain.CampaignID -> *state
}

var _ port.Pacer = (*Pacer)(nil)

// New returns a pacer enforcing cfg for every campaign it sees.
func New(cfg Config) *Pacer {
	if cfg.Ceiling < 1 {
		cfg.Ceiling = 1
	}
	return &Pacer{cfg: cfg}
}

func (p *Pacer) compute(c *domain.Campaign, total int64) *params {
	if c.Pacing.IsZero() || total <= 0 {
		return &params{window: c.Pacing, unpaced: c.Pacing.IsZero(), maxBid: c.MaxBidPrice}
	}
	interval := float64(c.Pacing.Duration()) / (float64(total) * p.cfg.Ceiling)
	tau := int64(p.cfg.Burst)
	if one := int64(float64(c.MaxBidPrice) * interval); one > tau {
		tau = one
	}
	return &params{
		window:   c.Pacing,
		interval: interval,
		tau:      tau,
		maxBid:   c.MaxBidPrice,
	}
}

// Track starts pacing a campaign, replacing any previous state for it.
func (p *Pacer) Track(c *domain.Campaign) {
	s := &state{}
	s.params.Store(p.compute(c, c.TotalBudget))
	s.spent.Store(c.Spent)
	p.states.Store(c.ID, s)
}

// Forget drops the pacing state of a campaign.
func (p *Pacer) Forget(id domain.CampaignID) {
	p.states.Delete(id)
}

func (p *Pacer) load(id domain.CampaignID) *state {
	v, ok := p.states.Load(id)
	if !ok {
		return nil
	}
	return v.(*state)
}

// MayBid reports whether the campaign may place a max-price bid at now.
// Campaigns the pacer does not know about are left to the ledger.
func (p *Pacer) MayBid(id domain.CampaignID, now time.Time) bool {
	s := p.load(id)
	if s == nil {
		return true
	}
	pr := s.params.Load()
	if pr.unpaced {
		return true
	}
	if !pr.window.Contains(now) || pr.interval == 0 {
		return false
	}
	cost := int64(float64(pr.maxBid) * pr.interval)
	return s.tat.Load()-now.UnixNano() <= pr.tau-cost
}

// Record pushes the TAT forward by the allowance consumed by amount.
func (p *Pacer) Record(id domain.CampaignID, amount int64, now time.Time) {
	s := p.load(id)
	if s == nil || amount <= 0 {
		return
	}
	s.spent.Add(amount)
	pr := s.params.Load()
	if pr.unpaced {
		return
	}
	inc := int64(float64(amount) * pr.interval)
	n := now.UnixNano()
	for {
		old := s.tat.Load()
		base := old
		if base < n {
			base = n
		}
		if s.tat.CompareAndSwap(old, base+inc) {
			return
		}
	}
}

// Refund gives back allowance for an amount that was recorded but not
// spent.
func (p *Pacer) Refund(id domain.CampaignID, amount int64) {
	s := p.load(id)
	if s == nil || amount <= 0 {
		return
	}
	s.spent.Add(-amount)
	pr := s.params.Load()
	if pr.unpaced {
		return
	}
	s.tat.Add(-int64(float64(amount) * pr.interval))
}

// UpdateBudget recomputes the spend rate for a new total budget. The TAT is
// kept so that spend already recorded still counts.
func (p *Pacer) UpdateBudget(id domain.CampaignID, total int64) {
	s := p.load(id)
	if s == nil {
		return
	}
	old := s.params.Load()
	c := domain.Campaign{Pacing: old.window, MaxBidPrice: old.maxBid}
	s.params.Store(p.compute(&c, total))
}

// Spent returns the spend recorded for the campaign, net of refunds.
func (p *Pacer) Spent(id domain.CampaignID) int64 {
	s := p.load(id)
	if s == nil {
		return 0
	}
	return s.spent.Load()
}
