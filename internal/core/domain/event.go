package domain

import (
	"time"
)

// OutcomeType distinguishes auction outcome notifications.
type OutcomeType string

const (
	OutcomeWin  OutcomeType = "win"
	OutcomeLoss OutcomeType = "loss"
)

// Outcome is a post-auction notification for a reservation. ClearPrice is
// only meaningful for wins.
type Outcome struct {
	Type          OutcomeType
	ReservationID ReservationID
	ClearPrice    int64
	ReceivedAt    time.Time
}

// Spend is a confirmed charge against a campaign.
type Spend struct {
	ReservationID ReservationID
	CampaignID    CampaignID
	Amount        int64
	CreatedAt     time.Time
}
