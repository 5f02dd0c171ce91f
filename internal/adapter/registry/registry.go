// Package registry holds the set of registered campaigns as immutable
// snapshots. Writers copy, modify and swap the snapshot; readers load it
// with a single atomic operation and keep using it for the whole auction.
package registry

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"rtb-bidder/internal/adapter/matcher"
	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// Snapshot is one immutable generation of the campaign set.
type Snapshot struct {
	Version   uint64
	campaigns map[domain.CampaignID]*domain.Campaign
	index     *matcher.Index
}

// Get returns the campaign with the given id.
func (s *Snapshot) Get(id domain.CampaignID) (*domain.Campaign, bool) {
	c, ok := s.campaigns[id]
	return c, ok
}

// Len returns the number of campaigns in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.campaigns)
}

// Eligible matches req against this snapshot.
func (s *Snapshot) Eligible(req *domain.BidRequest) iter.Seq[*domain.Campaign] {
	return s.index.Eligible(req)
}

// Registry implements port.CampaignMatcher over the current snapshot.
type Registry struct {
	mu      sync.Mutex // serialises writers
	current atomic.Pointer[Snapshot]
}

var _ port.CampaignMatcher = (*Registry)(nil)

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	r.current.Store(build(0, map[domain.CampaignID]*domain.Campaign{}))
	return r
}

func build(version uint64, campaigns map[domain.CampaignID]*domain.Campaign) *Snapshot {
	return &Snapshot{
		Version:   version,
		campaigns: campaigns,
		index:     matcher.NewIndex(slices.Collect(maps.Values(campaigns))),
	}
}

// Snapshot returns the current generation.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Eligible matches req against the current snapshot.
func (r *Registry) Eligible(req *domain.BidRequest) iter.Seq[*domain.Campaign] {
	return r.Snapshot().Eligible(req)
}

// Get returns a campaign of the current snapshot.
func (r *Registry) Get(id domain.CampaignID) (*domain.Campaign, bool) {
	return r.Snapshot().Get(id)
}

// ByAgent returns the campaigns registered by a bidding agent.
func (r *Registry) ByAgent(agent string) []*domain.Campaign {
	var out []*domain.Campaign
	for _, c := range r.Snapshot().campaigns {
		if c.AgentID == agent {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Campaign) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// mutate applies fn to a copy of the campaign map and publishes the result.
func (r *Registry) mutate(fn func(m map[domain.CampaignID]*domain.Campaign) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.current.Load()
	m := maps.Clone(old.campaigns)
	if err := fn(m); err != nil {
		return err
	}
	r.current.Store(build(old.Version+1, m))
	return nil
}

// Add registers a new campaign. The registry keeps its own copy.
func (r *Registry) Add(c domain.Campaign) error {
	return r.mutate(func(m map[domain.CampaignID]*domain.Campaign) error {
		if _, ok := m[c.ID]; ok {
			return fmt.Errorf("%w: %s", port.ErrCampaignExists, c.ID)
		}
		m[c.ID] = &c
		return nil
	})
}

// Update replaces a campaign with the result of fn applied to a copy.
func (r *Registry) Update(id domain.CampaignID, fn func(c *domain.Campaign)) error {
	return r.mutate(func(m map[domain.CampaignID]*domain.Campaign) error {
		old, ok := m[id]
		if !ok {
			return fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id)
		}
		c := *old
		fn(&c)
		m[id] = &c
		return nil
	})
}

// Remove drops a campaign. Sessions holding an older snapshot keep seeing
// it until they finish.
func (r *Registry) Remove(id domain.CampaignID) error {
	return r.mutate(func(m map[domain.CampaignID]*domain.Campaign) error {
		if _, ok := m[id]; !ok {
			return fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id)
		}
		delete(m, id)
		return nil
	})
}
