package ledger

import (
	"fmt"
	"sync"
	"time"

	"rtb-bidder/internal/core/domain"
)

// account is the per-campaign budget state. Every field is guarded by mu,
// which is the only lock taken on the reservation hot path.
type account struct {
	id domain.CampaignID

	mu          sync.Mutex
	total       int64
	spent       int64
	outstanding int64
	pending     map[domain.ReservationID]*entry
	closing     bool
	frozen      bool

	// idle is closed whenever pending is empty.
	idle chan struct{}
}

// entry is the ledger-side record of a reservation. It stays in the index
// as a tombstone after it resolves so that late notifications can still be
// answered.
type entry struct {
	acct       *account
	res        domain.Reservation
	resolvedAt time.Time
}

func newAccount(id domain.CampaignID, total, spent int64) *account {
	idle := make(chan struct{})
	close(idle)
	return &account{
		id:      id,
		total:   total,
		spent:   spent,
		pending: make(map[domain.ReservationID]*entry),
		idle:    idle,
	}
}

func (a *account) available() int64 {
	return a.total - a.spent - a.outstanding
}

func (a *account) balance() domain.Balance {
	return domain.Balance{
		CampaignID:  a.id,
		Total:       a.total,
		Spent:       a.spent,
		Outstanding: a.outstanding,
		Pending:     len(a.pending),
		Frozen:      a.frozen,
	}
}

// hold registers a new pending entry.
func (a *account) hold(e *entry) {
	if len(a.pending) == 0 {
		a.idle = make(chan struct{})
	}
	a.pending[e.res.ID] = e
	a.outstanding += e.res.Amount
}

// resolve moves a pending entry to its final state. charged is only
// non-zero for confirmations.
func (a *account) resolve(e *entry, state domain.ReservationState, charged int64, now time.Time) {
	a.outstanding -= e.res.Amount
	a.spent += charged
	e.res.State = state
	e.res.Charged = charged
	e.resolvedAt = now
	delete(a.pending, e.res.ID)
	if len(a.pending) == 0 {
		close(a.idle)
	}
}

// check verifies the O(1) accounting invariants of the account.
func (a *account) check() error {
	switch {
	case a.outstanding < 0:
		return fmt.Errorf("outstanding underflow: %d", a.outstanding)
	case a.spent < 0:
		return fmt.Errorf("spent underflow: %d", a.spent)
	case a.spent+a.outstanding > a.total:
		return fmt.Errorf("committed %d exceeds total %d", a.spent+a.outstanding, a.total)
	}
	return nil
}

// audit is check plus a full recount of the pending holds.
func (a *account) audit() error {
	if err := a.check(); err != nil {
		return err
	}
	var sum int64
	for _, e := range a.pending {
		sum += e.res.Amount
	}
	if sum != a.outstanding {
		return fmt.Errorf("outstanding %d does not match pending sum %d", a.outstanding, sum)
	}
	return nil
}
