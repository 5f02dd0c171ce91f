package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
	"rtb-bidder/internal/metrics"
)

// Options configures reservation expiry.
type Options struct {
	// TTL bounds how long a reservation waits for its win or loss notice.
	TTL time.Duration
	// SweepInterval is the period of the background expiry sweep.
	SweepInterval time.Duration
	// Retention is how long resolved reservations are remembered so that
	// repeated notifications stay idempotent.
	Retention time.Duration
	// OnResolve is called once per reservation when it leaves the pending
	// state, outside of any ledger lock.
	OnResolve func(domain.Reservation)
}

// Ledger implements port.BudgetLedger in memory. Reservations on one
// campaign are serialised by that campaign's account lock; the accounts map
// lock is only taken for writing on open and close.
type Ledger struct {
	clock  clock.Clock
	logger *slog.Logger
	opts   Options

	mu       sync.RWMutex
	accounts map[domain.CampaignID]*account

	index sync.Map // domain.ReservationID -> *entry

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

var _ port.BudgetLedger = (*Ledger)(nil)

// New returns an empty ledger. Call Start to run the expiry sweep.
func New(clk clock.Clock, logger *slog.Logger, opts Options) *Ledger {
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = 10 * time.Minute
	}
	return &Ledger{
		clock:    clk,
		logger:   logger,
		opts:     opts,
		accounts: make(map[domain.CampaignID]*account),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background expiry sweep. It is safe to call more than
// once.
func (l *Ledger) Start() {
	l.startOnce.Do(func() {
		ticker := l.clock.Ticker(l.opts.SweepInterval)
		go func() {
			defer close(l.done)
			defer ticker.Stop()
			for {
				select {
				case <-l.stop:
					return
				case <-ticker.C:
					l.Sweep()
				}
			}
		}()
	})
}

// Stop terminates the sweep and waits for it to exit.
func (l *Ledger) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		started := true
		l.startOnce.Do(func() { started = false })
		if started {
			<-l.done
		}
	})
}

func (l *Ledger) account(id domain.CampaignID) *account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[id]
}

func (l *Ledger) lookup(id domain.ReservationID) (*entry, error) {
	v, ok := l.index.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", port.ErrUnknownReservation, id)
	}
	return v.(*entry), nil
}

// Open creates the account of a campaign.
func (l *Ledger) Open(id domain.CampaignID, total, spent int64) error {
	if total < 0 || spent < 0 || spent > total {
		return fmt.Errorf("%w: budget %d, spent %d", port.ErrInvalidCampaign, total, spent)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[id]; ok {
		return fmt.Errorf("%w: %s", port.ErrCampaignExists, id)
	}
	l.accounts[id] = newAccount(id, total, spent)
	return nil
}

// Reserve holds amount against the campaign's remaining budget.
func (l *Ledger) Reserve(id domain.CampaignID, amount int64) (domain.Reservation, error) {
	if amount <= 0 {
		return domain.Reservation{}, fmt.Errorf("reserve %s: non-positive amount %d", id, amount)
	}
	a := l.account(id)
	if a == nil {
		return domain.Reservation{}, fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id)
	}
	now := l.clock.Now()
	e := &entry{
		acct: a,
		res: domain.Reservation{
			ID:         domain.ReservationID(uuid.NewString()),
			CampaignID: id,
			Amount:     amount,
			State:      domain.ReservationPending,
			CreatedAt:  now,
			ExpiresAt:  now.Add(l.opts.TTL),
		},
	}

	a.mu.Lock()
	switch {
	case a.closing:
		a.mu.Unlock()
		return domain.Reservation{}, fmt.Errorf("%w: %s is closing", port.ErrUnknownCampaign, id)
	case a.frozen:
		a.mu.Unlock()
		return domain.Reservation{}, fmt.Errorf("%w: %s", port.ErrCampaignFrozen, id)
	case amount > a.available():
		avail := a.available()
		a.mu.Unlock()
		metrics.ReservationsTotal.WithLabelValues("rejected").Inc()
		return domain.Reservation{}, fmt.Errorf("%w: %s needs %d, has %d", port.ErrInsufficientBudget, id, amount, avail)
	}
	a.hold(e)
	l.index.Store(e.res.ID, e)
	res := e.res
	a.mu.Unlock()

	metrics.ReservationsTotal.WithLabelValues("reserved").Inc()
	metrics.OutstandingReservations.Inc()
	return res, nil
}

// Confirm charges clearPrice for a pending reservation.
func (l *Ledger) Confirm(id domain.ReservationID, clearPrice int64) (domain.Reservation, error) {
	e, err := l.lookup(id)
	if err != nil {
		return domain.Reservation{}, err
	}
	a := e.acct
	now := l.clock.Now()

	a.mu.Lock()
	expired := l.expireIfDue(e, now)
	if e.res.State != domain.ReservationPending {
		res := e.res
		a.mu.Unlock()
		l.resolved(expired)
		return res, fmt.Errorf("%w: %s is %s", port.ErrReservationClosed, id, res.State)
	}
	if clearPrice < 0 || clearPrice > e.res.Amount {
		res := e.res
		a.mu.Unlock()
		return res, fmt.Errorf("%w: %d for reservation of %d", port.ErrInvalidClearPrice, clearPrice, res.Amount)
	}
	a.resolve(e, domain.ReservationConfirmed, clearPrice, now)
	res := e.res
	corrupt := l.verify(a)
	a.mu.Unlock()

	l.resolved(&res)
	if corrupt != nil {
		return res, corrupt
	}
	return res, nil
}

// Release returns the held funds of a pending reservation. Resolved
// reservations are reported as they are.
func (l *Ledger) Release(id domain.ReservationID) (domain.Reservation, error) {
	e, err := l.lookup(id)
	if err != nil {
		return domain.Reservation{}, err
	}
	a := e.acct
	now := l.clock.Now()

	a.mu.Lock()
	if expired := l.expireIfDue(e, now); expired != nil {
		a.mu.Unlock()
		l.resolved(expired)
		return *expired, nil
	}
	if e.res.State != domain.ReservationPending {
		res := e.res
		a.mu.Unlock()
		return res, nil
	}
	a.resolve(e, domain.ReservationReleased, 0, now)
	res := e.res
	corrupt := l.verify(a)
	a.mu.Unlock()

	l.resolved(&res)
	return res, corrupt
}

// Adjust changes the total budget. A decrease below what is already spent
// or held fails with ErrInsufficientBudget.
func (l *Ledger) Adjust(id domain.CampaignID, delta int64) (domain.Balance, error) {
	a := l.account(id)
	if a == nil {
		return domain.Balance{}, fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	total := a.total + delta
	if delta < 0 && total <= 0 {
		return a.balance(), fmt.Errorf("%w: total of %s would drop to %d", port.ErrInvalidCampaign, id, total)
	}
	if (delta > 0 && total < a.total) || total < a.spent+a.outstanding {
		return a.balance(), fmt.Errorf("%w: cannot set total of %s to %d with %d committed",
			port.ErrInsufficientBudget, id, total, a.spent+a.outstanding)
	}
	a.total = total
	return a.balance(), nil
}

// Balance returns the account state of a campaign.
func (l *Ledger) Balance(id domain.CampaignID) (domain.Balance, error) {
	a := l.account(id)
	if a == nil {
		return domain.Balance{}, fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance(), nil
}

// Close removes the account of a campaign.
func (l *Ledger) Close(ctx context.Context, id domain.CampaignID, drain bool) error {
	a := l.account(id)
	if a == nil {
		return fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id)
	}

	a.mu.Lock()
	if n := len(a.pending); n > 0 && !drain {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s has %d pending", port.ErrActiveReservations, id, n)
	}
	a.closing = true
	a.mu.Unlock()

	for {
		a.mu.Lock()
		if len(a.pending) == 0 {
			a.mu.Unlock()
			break
		}
		idle := a.idle
		a.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			a.mu.Lock()
			a.closing = false
			a.mu.Unlock()
			return fmt.Errorf("drain %s: %w", id, ctx.Err())
		}
	}

	l.mu.Lock()
	delete(l.accounts, id)
	l.mu.Unlock()
	return nil
}

// ReleaseAll releases every pending reservation of every campaign and marks
// each account closing, so reservations arriving afterwards are refused.
func (l *Ledger) ReleaseAll() []domain.Reservation {
	now := l.clock.Now()
	var released []domain.Reservation
	for _, a := range l.snapshot() {
		a.mu.Lock()
		a.closing = true
		for _, e := range a.pending {
			a.resolve(e, domain.ReservationReleased, 0, now)
			released = append(released, e.res)
		}
		a.mu.Unlock()
	}
	for i := range released {
		l.resolved(&released[i])
	}
	return released
}

// Sweep expires overdue reservations, audits every account and forgets
// tombstones older than the retention period. It returns the number of
// reservations it expired.
func (l *Ledger) Sweep() int {
	now := l.clock.Now()
	var expired []domain.Reservation
	for _, a := range l.snapshot() {
		a.mu.Lock()
		for _, e := range a.pending {
			if r := l.expireIfDue(e, now); r != nil {
				expired = append(expired, *r)
			}
		}
		if !a.frozen {
			if err := a.audit(); err != nil {
				l.freeze(a, err)
			}
		}
		a.mu.Unlock()
	}
	for i := range expired {
		l.resolved(&expired[i])
	}

	l.index.Range(func(key, value any) bool {
		e := value.(*entry)
		e.acct.mu.Lock()
		stale := e.res.State != domain.ReservationPending && now.Sub(e.resolvedAt) >= l.opts.Retention
		e.acct.mu.Unlock()
		if stale {
			l.index.Delete(key)
		}
		return true
	})

	if len(expired) > 0 {
		l.logger.Debug("expired reservations", slog.Int("count", len(expired)))
	}
	return len(expired)
}

func (l *Ledger) snapshot() []*account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, a)
	}
	return out
}

// expireIfDue expires a pending entry whose deadline has passed. The caller
// holds the account lock and must pass the result to resolved after
// unlocking.
func (l *Ledger) expireIfDue(e *entry, now time.Time) *domain.Reservation {
	if e.res.State != domain.ReservationPending || now.Before(e.res.ExpiresAt) {
		return nil
	}
	e.acct.resolve(e, domain.ReservationExpired, 0, now)
	res := e.res
	return &res
}

// verify checks the account after a mutation and freezes it on violation.
// The caller holds the account lock.
func (l *Ledger) verify(a *account) error {
	err := a.check()
	if err == nil {
		return nil
	}
	l.freeze(a, err)
	return fmt.Errorf("%w: %s: %v", port.ErrLedgerCorrupted, a.id, err)
}

func (l *Ledger) freeze(a *account, cause error) {
	if a.frozen {
		return
	}
	a.frozen = true
	metrics.LedgerCorruptions.WithLabelValues(string(a.id)).Inc()
	l.logger.Error("ledger corrupted, campaign frozen",
		slog.String("campaign_id", string(a.id)),
		slog.Any("error", cause),
	)
}

// resolved publishes a transition out of the pending state.
func (l *Ledger) resolved(res *domain.Reservation) {
	if res == nil {
		return
	}
	metrics.OutstandingReservations.Dec()
	metrics.ReservationsTotal.WithLabelValues(res.State.String()).Inc()
	if l.opts.OnResolve != nil {
		l.opts.OnResolve(*res)
	}
}
