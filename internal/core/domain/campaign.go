package domain

import (
	"errors"
	"fmt"
	"time"
)

// CampaignID identifies a campaign across the registry, the ledger and the
// pacer.
type CampaignID string

// Campaign represents an advertiser's targeting, budget and pricing rules.
// Money is stored in micro-units (1 currency unit = 1_000_000).
type Campaign struct {
	ID          CampaignID
	AgentID     string // bidding agent that registered the campaign, if any
	Name        string
	Targeting   Targeting
	TotalBudget int64
	Spent       int64 // spent-to-date when the campaign is (re)registered
	MaxBidPrice int64
	CPCBid      int64 // cost per click, used by the eCPM scorer
	Priority    int   // higher bids first
	Pacing      Window
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Window is the active pacing window of a campaign. A zero window disables
// pacing and the campaign spends as fast as its budget allows.
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the window is unset.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Remaining returns the part of the total budget not yet spent.
func (c *Campaign) Remaining() int64 {
	return c.TotalBudget - c.Spent
}

// Less orders campaigns by descending priority and then by id, which is the
// order candidates are produced in and the final tie-break of the evaluator.
func (c *Campaign) Less(o *Campaign) bool {
	if c.Priority != o.Priority {
		return c.Priority > o.Priority
	}
	return c.ID < o.ID
}

// Validate checks the campaign configuration.
func (c *Campaign) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("missing campaign id"))
	}
	if c.TotalBudget <= 0 {
		errs = append(errs, fmt.Errorf("total budget must be positive, got %d", c.TotalBudget))
	}
	if c.Spent < 0 || c.Spent > c.TotalBudget {
		errs = append(errs, fmt.Errorf("spent %d outside [0, %d]", c.Spent, c.TotalBudget))
	}
	if c.MaxBidPrice <= 0 {
		errs = append(errs, fmt.Errorf("max bid price must be positive, got %d", c.MaxBidPrice))
	}
	if c.CPCBid < 0 {
		errs = append(errs, fmt.Errorf("negative cpc bid %d", c.CPCBid))
	}
	if !c.Pacing.IsZero() && !c.Pacing.End.After(c.Pacing.Start) {
		errs = append(errs, errors.New("pacing window must end after it starts"))
	}
	for _, h := range c.Targeting.HoursOfWeek {
		if h < 0 || h >= HoursPerWeek {
			errs = append(errs, fmt.Errorf("hour of week %d out of range", h))
		}
	}
	return errors.Join(errs...)
}
