package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"

	"rtb-bidder/internal/adapter/evaluator"
	"rtb-bidder/internal/adapter/ledger"
	"rtb-bidder/internal/adapter/pacing"
	"rtb-bidder/internal/adapter/registry"
	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// GatewayHandle is the opaque identifier of an initialised gateway. Zero is
// never issued.
type GatewayHandle uint64

// Bootstrap carries everything needed to bring up a gateway.
type Bootstrap struct {
	Auction Options
	Ledger  ledger.Options
	Pacing  pacing.Config
	Scorer  port.Scorer // nil means max-bid

	// Repo, when set, is used to persist campaigns and spend; its stored
	// campaigns are loaded on start.
	Repo port.CampaignRepository
	// Campaigns are registered on start in addition to the stored ones.
	Campaigns []domain.Campaign

	Clock  clock.Clock
	Logger *slog.Logger
}

type agent struct {
	gateway GatewayHandle
	name    string
}

// Runtime owns the handle tables of the lifecycle boundary: gateways and
// the bidding agents created on them.
type Runtime struct {
	mu       sync.Mutex
	next     uint64
	gateways map[GatewayHandle]*Gateway
	agents   map[port.AgentHandle]agent
}

// NewRuntime returns a runtime with empty handle tables.
func NewRuntime() *Runtime {
	return &Runtime{
		gateways: make(map[GatewayHandle]*Gateway),
		agents:   make(map[port.AgentHandle]agent),
	}
}

func (rt *Runtime) issue() uint64 {
	rt.next++
	return rt.next
}

// Initialize builds a gateway and returns its handle.
func (rt *Runtime) Initialize(ctx context.Context, b Bootstrap) (GatewayHandle, error) {
	if b.Clock == nil {
		b.Clock = clock.New()
	}
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
	if b.Scorer == nil {
		b.Scorer = evaluator.MaxBid()
	}

	pacer := pacing.New(b.Pacing)
	lopts := b.Ledger
	lopts.OnResolve = PacingRefund(pacer)
	led := ledger.New(b.Clock, b.Logger.With(slog.String("component", "ledger")), lopts)

	g := NewGateway(Deps{
		Registry:  registry.New(),
		Ledger:    led,
		Pacer:     pacer,
		Evaluator: evaluator.New(b.Scorer, b.Clock),
		Repo:      b.Repo,
		Clock:     b.Clock,
		Logger:    b.Logger,
	}, b.Auction)

	var stored []domain.Campaign
	if b.Repo != nil {
		var err error
		if stored, err = b.Repo.ListCampaigns(ctx); err != nil {
			return 0, fmt.Errorf("load campaigns: %w", err)
		}
	}
	for _, c := range stored {
		if err := g.Restore(c); err != nil {
			b.Logger.Warn("skipping stored campaign", slog.String("campaign_id", string(c.ID)), slog.Any("error", err))
		}
	}
	for _, c := range b.Campaigns {
		if err := g.RegisterCampaign(ctx, c); err != nil {
			return 0, fmt.Errorf("register campaign %s: %w", c.ID, err)
		}
	}
	led.Start()

	rt.mu.Lock()
	h := GatewayHandle(rt.issue())
	rt.gateways[h] = g
	rt.mu.Unlock()

	b.Logger.Info("gateway initialised",
		slog.Uint64("handle", uint64(h)),
		slog.Int("campaigns", g.registry.Snapshot().Len()),
	)
	return h, nil
}

// Gateway resolves a handle.
func (rt *Runtime) Gateway(h GatewayHandle) (*Gateway, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	g, ok := rt.gateways[h]
	return g, ok
}

// Shutdown shuts the gateway down and invalidates its handle and the
// handles of its agents. Zero, unknown and already shut handles are
// ignored.
func (rt *Runtime) Shutdown(ctx context.Context, h GatewayHandle) error {
	rt.mu.Lock()
	g, ok := rt.gateways[h]
	if ok {
		delete(rt.gateways, h)
		for ah, a := range rt.agents {
			if a.gateway == h {
				delete(rt.agents, ah)
			}
		}
	}
	rt.mu.Unlock()
	if !ok {
		return nil
	}
	return g.Shutdown(ctx)
}

// CreateBiddingAgent registers a named agent on a gateway. Campaigns whose
// AgentID equals the name belong to it.
func (rt *Runtime) CreateBiddingAgent(h GatewayHandle, name string) (port.AgentHandle, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty agent name", port.ErrInvalidRequest)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, ok := rt.gateways[h]; !ok {
		return 0, fmt.Errorf("%w: handle %d", port.ErrGatewayClosed, h)
	}
	for _, a := range rt.agents {
		if a.gateway == h && a.name == name {
			return 0, fmt.Errorf("%w: %s", port.ErrAgentExists, name)
		}
	}
	ah := port.AgentHandle(rt.issue())
	rt.agents[ah] = agent{gateway: h, name: name}
	return ah, nil
}

// AgentName returns the name behind an agent handle.
func (rt *Runtime) AgentName(ah port.AgentHandle) (string, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	a, ok := rt.agents[ah]
	return a.name, ok
}

// Release force-deregisters the campaigns of an agent, waiting for their
// pending reservations, then drops the agent. On failure the handle stays
// valid so the release can be retried. Releasing an unknown handle is a
// no-op.
func (rt *Runtime) Release(ctx context.Context, ah port.AgentHandle) error {
	rt.mu.Lock()
	a, ok := rt.agents[ah]
	g := rt.gateways[a.gateway]
	rt.mu.Unlock()
	if !ok || g == nil {
		return nil
	}

	for _, c := range g.registry.ByAgent(a.name) {
		err := g.DeregisterCampaign(ctx, c.ID, true)
		if err != nil && !errors.Is(err, port.ErrUnknownCampaign) {
			return fmt.Errorf("release agent %s: %w", a.name, err)
		}
	}

	rt.mu.Lock()
	delete(rt.agents, ah)
	rt.mu.Unlock()
	return nil
}

// Agents returns the agent administration view of one gateway.
func (rt *Runtime) Agents(h GatewayHandle) port.AgentAdmin {
	return agentAdmin{rt: rt, gateway: h}
}

type agentAdmin struct {
	rt      *Runtime
	gateway GatewayHandle
}

func (a agentAdmin) CreateBiddingAgent(name string) (port.AgentHandle, error) {
	return a.rt.CreateBiddingAgent(a.gateway, name)
}

func (a agentAdmin) Release(ctx context.Context, h port.AgentHandle) error {
	return a.rt.Release(ctx, h)
}
