package db

import (
	"context"
	"fmt"
	"time"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// DemoCampaigns returns a small set of campaigns covering the targeting
// dimensions, paced over the month following now. Budgets are micro-units.
func DemoCampaigns(now time.Time) []domain.Campaign {
	geos := [][]string{{"USA", "CAN"}, {"DEU", "FRA"}, {"GBR"}, nil, {"USA"}}
	devices := [][]string{{"phone", "tablet"}, {"desktop"}, nil, {"ctv"}, nil}
	window := domain.Window{Start: now.Add(-24 * time.Hour), End: now.AddDate(0, 1, 0)}

	campaigns := make([]domain.Campaign, 0, len(geos))
	for i := range geos {
		c := domain.Campaign{
			ID:          domain.CampaignID(fmt.Sprintf("demo-%d", i+1)),
			AgentID:     "demo",
			Name:        fmt.Sprintf("Demo campaign %d", i+1),
			TotalBudget: 500_000_000,
			MaxBidPrice: int64(1000 + 500*i),
			CPCBid:      500_000,
			Priority:    i % 3,
			Pacing:      window,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		c.Targeting.Geos.Include = geos[i]
		c.Targeting.Devices.Include = devices[i]
		if i == 4 {
			c.Targeting.Segments.Include = []string{"sports", "autos"}
			c.Targeting.RequireSegments = true
		}
		campaigns = append(campaigns, c)
	}
	return campaigns
}

// Seed stores the demo campaigns. Campaigns already present keep their
// spent-to-date.
func Seed(ctx context.Context, repo port.CampaignRepository, now time.Time) error {
	for _, c := range DemoCampaigns(now) {
		if err := repo.SaveCampaign(ctx, c); err != nil {
			return fmt.Errorf("seed %s: %w", c.ID, err)
		}
	}
	return nil
}
