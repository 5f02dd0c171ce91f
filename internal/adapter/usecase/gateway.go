package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"rtb-bidder/internal/adapter/registry"
	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
	"rtb-bidder/internal/metrics"
)

// Options tunes auction handling.
type Options struct {
	// DefaultTimeout is the deadline given to requests that carry none.
	DefaultTimeout time.Duration
	// SafetyMargin is subtracted from the deadline to get the soft deadline
	// at which evaluation stops scoring and decides.
	SafetyMargin time.Duration
	// MaxCandidates caps the campaigns taken from the matcher.
	MaxCandidates int
	// MaxReservationAttempts bounds the Reserving -> Evaluating retries.
	MaxReservationAttempts int
}

func (o *Options) defaults() {
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 10 * time.Millisecond
	}
	if o.SafetyMargin < 0 || o.SafetyMargin >= o.DefaultTimeout {
		o.SafetyMargin = 0
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 64
	}
	if o.MaxReservationAttempts <= 0 {
		o.MaxReservationAttempts = 3
	}
}

// Deps are the collaborators of a gateway. Repo may be nil, in which case
// nothing is persisted.
type Deps struct {
	Registry  *registry.Registry
	Ledger    port.BudgetLedger
	Pacer     port.Pacer
	Evaluator port.BidEvaluator
	Repo      port.CampaignRepository
	Clock     clock.Clock
	Logger    *slog.Logger
}

// stopper is implemented by ledgers that run a background sweep.
type stopper interface {
	Stop()
}

// Gateway is the boundary object of the bidder. It runs auctions, manages
// campaign registration and applies win/loss feedback.
type Gateway struct {
	opts      Options
	registry  *registry.Registry
	matcher   port.CampaignMatcher
	ledger    port.BudgetLedger
	pacer     port.Pacer
	evaluator port.BidEvaluator
	repo      port.CampaignRepository
	clock     clock.Clock
	logger    *slog.Logger

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
	shutdown sync.Once
}

var (
	_ port.Bidder        = (*Gateway)(nil)
	_ port.CampaignAdmin = (*Gateway)(nil)
)

// NewGateway assembles a gateway from its collaborators. Zero options take
// their defaults.
func NewGateway(deps Deps, opts Options) *Gateway {
	opts.defaults()
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Gateway{
		opts:      opts,
		registry:  deps.Registry,
		matcher:   deps.Registry,
		ledger:    deps.Ledger,
		pacer:     deps.Pacer,
		evaluator: deps.Evaluator,
		repo:      deps.Repo,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
}

// PacingRefund returns a ledger resolve hook that gives the pacer back the
// part of a reservation that was not charged.
func PacingRefund(p port.Pacer) func(domain.Reservation) {
	return func(r domain.Reservation) {
		p.Refund(r.CampaignID, r.Amount-r.Charged)
	}
}

func (g *Gateway) begin() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return false
	}
	g.inflight.Add(1)
	return true
}

func (g *Gateway) end() {
	g.inflight.Done()
}

// Closed reports whether Shutdown has been called.
func (g *Gateway) Closed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closed
}

// HandleRequest runs one auction. It never returns an error: failures are
// expressed as no-bid reasons.
func (g *Gateway) HandleRequest(ctx context.Context, req domain.BidRequest) domain.BidDecision {
	start := g.clock.Now()
	if !g.begin() {
		return g.observe(start, domain.NoBid(req.ID, domain.NoBidShuttingDown))
	}
	defer g.end()

	if req.Timestamp.IsZero() {
		req.Timestamp = start
	}
	if req.Deadline.IsZero() {
		req.Deadline = req.Timestamp.Add(g.opts.DefaultTimeout)
	}
	if err := req.Validate(); err != nil {
		g.logger.Debug("invalid bid request", slog.String("request_id", req.ID), slog.Any("error", err))
		return g.observe(start, domain.NoBid(req.ID, domain.NoBidInvalidRequest))
	}

	s := newSession(g, &req)
	ctx, cancel := context.WithTimeout(ctx, s.remaining())
	defer cancel()

	d := s.run(ctx)
	g.logger.Debug("auction decided",
		slog.String("request_id", req.ID),
		slog.Bool("bid", d.IsBid()),
		slog.String("reason", string(d.Reason)),
		slog.Bool("truncated", d.Truncated),
	)
	return g.observe(start, d)
}

func (g *Gateway) observe(start time.Time, d domain.BidDecision) domain.BidDecision {
	result := "nobid"
	if d.IsBid() {
		result = "bid"
	}
	metrics.DecisionsTotal.WithLabelValues(result, string(d.Reason)).Inc()
	metrics.DecisionDuration.Observe(g.clock.Since(start).Seconds())
	if d.Reason == domain.NoBidDeadlineExceeded {
		metrics.DeadlineMisses.Inc()
	}
	return d
}

// RegisterCampaign validates a campaign and makes it eligible for auctions.
func (g *Gateway) RegisterCampaign(ctx context.Context, c domain.Campaign) error {
	if g.Closed() {
		return port.ErrGatewayClosed
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", port.ErrInvalidCampaign, err)
	}
	now := g.clock.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if err := g.install(c); err != nil {
		return err
	}
	if g.repo != nil {
		if err := g.repo.SaveCampaign(ctx, c); err != nil {
			g.uninstall(c.ID)
			return fmt.Errorf("save campaign %s: %w", c.ID, err)
		}
	}
	g.logger.Info("campaign registered",
		slog.String("campaign_id", string(c.ID)),
		slog.Int64("budget", c.TotalBudget),
		slog.Int64("spent", c.Spent),
	)
	return nil
}

// Restore installs a campaign loaded from storage without saving it again.
func (g *Gateway) Restore(c domain.Campaign) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", port.ErrInvalidCampaign, err)
	}
	return g.install(c)
}

func (g *Gateway) install(c domain.Campaign) error {
	if err := g.ledger.Open(c.ID, c.TotalBudget, c.Spent); err != nil {
		return err
	}
	if err := g.registry.Add(c); err != nil {
		_ = g.ledger.Close(context.Background(), c.ID, false)
		return err
	}
	g.pacer.Track(&c)
	return nil
}

func (g *Gateway) uninstall(id domain.CampaignID) {
	_ = g.registry.Remove(id)
	g.pacer.Forget(id)
	_ = g.ledger.Close(context.Background(), id, true)
}

// DeregisterCampaign removes a campaign. Without force it fails with
// ErrActiveReservations while reservations are pending; with force it stops
// matching the campaign and waits until they resolve.
func (g *Gateway) DeregisterCampaign(ctx context.Context, id domain.CampaignID, force bool) error {
	c, ok := g.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id)
	}
	if !force {
		bal, err := g.ledger.Balance(id)
		if err != nil {
			return err
		}
		if bal.Pending > 0 {
			return fmt.Errorf("%w: %s has %d pending", port.ErrActiveReservations, id, bal.Pending)
		}
	}

	if err := g.registry.Remove(id); err != nil {
		return err
	}
	if err := g.ledger.Close(ctx, id, force); err != nil {
		if addErr := g.registry.Add(*c); addErr != nil {
			g.logger.Error("campaign lost after failed deregistration",
				slog.String("campaign_id", string(id)),
				slog.Any("error", addErr),
			)
		}
		return err
	}
	g.pacer.Forget(id)

	if g.repo != nil {
		if err := g.repo.DeleteCampaign(ctx, id); err != nil {
			g.logger.Error("delete campaign failed", slog.String("campaign_id", string(id)), slog.Any("error", err))
		}
	}
	g.logger.Info("campaign deregistered", slog.String("campaign_id", string(id)), slog.Bool("force", force))
	return nil
}

// UpdateBudget changes the total budget of a campaign by delta. A change
// that would leave the total at or below zero fails with
// ErrInvalidCampaign.
func (g *Gateway) UpdateBudget(ctx context.Context, id domain.CampaignID, delta int64) (domain.Balance, error) {
	bal, err := g.ledger.Adjust(id, delta)
	if err != nil {
		return bal, err
	}
	now := g.clock.Now()
	if err := g.registry.Update(id, func(c *domain.Campaign) {
		c.TotalBudget = bal.Total
		c.UpdatedAt = now
	}); err != nil {
		return bal, err
	}
	g.pacer.UpdateBudget(id, bal.Total)

	if g.repo != nil {
		if err := g.repo.AdjustBudget(ctx, id, delta); err != nil {
			g.logger.Error("persist budget failed", slog.String("campaign_id", string(id)), slog.Any("error", err))
		}
	}
	return bal, nil
}

// Balance returns the ledger state of a campaign.
func (g *Gateway) Balance(_ context.Context, id domain.CampaignID) (domain.Balance, error) {
	return g.ledger.Balance(id)
}

// Campaign returns the registered configuration of a campaign.
func (g *Gateway) Campaign(id domain.CampaignID) (domain.Campaign, bool) {
	c, ok := g.registry.Get(id)
	if !ok {
		return domain.Campaign{}, false
	}
	return *c, true
}

// NotifyWin charges the clearing price of a won auction. The confirmed
// spend is persisted when a repository is configured; a storage failure is
// logged and does not undo the in-memory charge.
func (g *Gateway) NotifyWin(ctx context.Context, id domain.ReservationID, clearPrice int64) error {
	res, err := g.ledger.Confirm(id, clearPrice)
	if err != nil {
		result := "error"
		if errors.Is(err, port.ErrReservationClosed) {
			result = "late"
		}
		metrics.OutcomesTotal.WithLabelValues(string(domain.OutcomeWin), result).Inc()
		if !errors.Is(err, port.ErrLedgerCorrupted) {
			return err
		}
		// the charge was applied before the check failed
	} else {
		metrics.OutcomesTotal.WithLabelValues(string(domain.OutcomeWin), "ok").Inc()
	}

	if g.repo != nil {
		spend := domain.Spend{
			ReservationID: res.ID,
			CampaignID:    res.CampaignID,
			Amount:        res.Charged,
			CreatedAt:     g.clock.Now(),
		}
		if perr := g.repo.RecordSpend(ctx, spend); perr != nil {
			g.logger.Error("record spend failed",
				slog.String("reservation_id", string(id)),
				slog.Any("error", perr),
			)
		}
	}
	return err
}

// NotifyLoss releases the reservation of a lost auction.
func (g *Gateway) NotifyLoss(_ context.Context, id domain.ReservationID) error {
	if _, err := g.ledger.Release(id); err != nil {
		metrics.OutcomesTotal.WithLabelValues(string(domain.OutcomeLoss), "error").Inc()
		return err
	}
	metrics.OutcomesTotal.WithLabelValues(string(domain.OutcomeLoss), "ok").Inc()
	return nil
}

// Shutdown stops accepting requests, waits for in-flight auctions, releases
// every pending reservation and stops the expiry sweep. Auctions still
// running when ctx ends can no longer reserve. Later calls return
// immediately.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var err error
	g.shutdown.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()

		done := make(chan struct{})
		go func() {
			g.inflight.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("wait for in-flight auctions: %w", ctx.Err())
		}

		released := g.ledger.ReleaseAll()
		if s, ok := g.ledger.(stopper); ok {
			s.Stop()
		}
		g.logger.Info("gateway shut down", slog.Int("released_reservations", len(released)))
	})
	return err
}
