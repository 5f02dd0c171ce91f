package port

import (
	"context"

	"rtb-bidder/internal/core/domain"
)

// BudgetLedger tracks per-campaign spend with atomic reservation semantics.
// Implementations must serialise updates per campaign only; concurrent
// callers working on different campaigns never wait on each other.
type BudgetLedger interface {
	// Open creates the account of a campaign with the given total budget and
	// spend already confirmed before registration.
	Open(id domain.CampaignID, total, spent int64) error

	// Reserve holds amount against the campaign. It fails with
	// ErrUnknownCampaign or ErrInsufficientBudget.
	Reserve(id domain.CampaignID, amount int64) (domain.Reservation, error)

	// Confirm converts a pending reservation into spend at clearPrice. The
	// unused part of the hold returns to the available pool.
	Confirm(id domain.ReservationID, clearPrice int64) (domain.Reservation, error)

	// Release returns the held funds. Releasing an already resolved
	// reservation is a no-op that reports its final state.
	Release(id domain.ReservationID) (domain.Reservation, error)

	// Adjust changes the total budget by delta. The total must stay above
	// zero and cover what is already committed.
	Adjust(id domain.CampaignID, delta int64) (domain.Balance, error)

	// Balance returns the current account state.
	Balance(id domain.CampaignID) (domain.Balance, error)

	// Close removes the account. Without drain it fails with
	// ErrActiveReservations while reservations are pending; with drain it
	// stops new reservations and blocks until pending ones resolve.
	Close(ctx context.Context, id domain.CampaignID, drain bool) error

	// ReleaseAll releases every pending reservation and returns them.
	// Accounts stop accepting reservations afterwards.
	ReleaseAll() []domain.Reservation
}
