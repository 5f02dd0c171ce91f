package domain

import "time"

// ReservationID is the opaque identifier of a budget hold.
type ReservationID string

// ReservationState is the lifecycle state of a reservation.
type ReservationState int

const (
	ReservationPending ReservationState = iota
	ReservationConfirmed
	ReservationReleased
	ReservationExpired
)

func (s ReservationState) String() string {
	switch s {
	case ReservationPending:
		return "pending"
	case ReservationConfirmed:
		return "confirmed"
	case ReservationReleased:
		return "released"
	case ReservationExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Reservation is a tentative hold of funds against a campaign.
type Reservation struct {
	ID         ReservationID
	CampaignID CampaignID
	Amount     int64
	Charged    int64 // clearing price once confirmed
	State      ReservationState
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Balance is a point-in-time view of a campaign's ledger account.
type Balance struct {
	CampaignID  CampaignID
	Total       int64
	Spent       int64
	Outstanding int64
	Pending     int
	Frozen      bool
}

// Available returns the funds that can still be reserved.
func (b Balance) Available() int64 {
	return b.Total - b.Spent - b.Outstanding
}
