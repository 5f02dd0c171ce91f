package port

import (
	"context"

	"rtb-bidder/internal/core/domain"
)

// CampaignRepository persists campaigns and confirmed spend. It is an
// outbound port; the in-memory ledger stays the source of truth while the
// process runs.
type CampaignRepository interface {
	// ListCampaigns returns every stored campaign with its spent-to-date.
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
	// SaveCampaign inserts or updates a campaign.
	SaveCampaign(ctx context.Context, c domain.Campaign) error
	// DeleteCampaign removes a campaign.
	DeleteCampaign(ctx context.Context, id domain.CampaignID) error
	// AdjustBudget adds delta to the stored total budget.
	AdjustBudget(ctx context.Context, id domain.CampaignID, delta int64) error
	// RecordSpend stores a confirmed charge and adds it to the campaign's
	// spent-to-date atomically.
	RecordSpend(ctx context.Context, s domain.Spend) error
}
