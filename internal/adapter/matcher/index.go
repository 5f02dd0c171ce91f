// Package matcher selects the campaigns whose targeting accepts a bid
// request. Campaigns get dense slots in priority order and every targeting
// dimension is stored as value -> bitset, so matching is a handful of
// word-wise ANDs over the candidate set.
package matcher

import (
	"iter"
	"slices"
	"strings"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// dimension indexes one include/exclude targeting rule.
type dimension struct {
	include   map[string]bitset
	exclude   map[string]bitset
	noInclude bitset // campaigns with an empty include list
}

func newDimension(n int) *dimension {
	return &dimension{
		include:   make(map[string]bitset),
		exclude:   make(map[string]bitset),
		noInclude: newBitset(n),
	}
}

func (d *dimension) add(slot, n int, ie domain.IncludeExclude) {
	if len(ie.Include) == 0 {
		d.noInclude.set(slot)
	}
	for _, v := range ie.Include {
		addValue(d.include, norm(v), slot, n)
	}
	for _, v := range ie.Exclude {
		addValue(d.exclude, norm(v), slot, n)
	}
}

func addValue(m map[string]bitset, v string, slot, n int) {
	b, ok := m[v]
	if !ok {
		b = newBitset(n)
		m[v] = b
	}
	b.set(slot)
}

// filter narrows set to the campaigns accepting any of values. With no
// values only campaigns without an include list survive.
func (d *dimension) filter(set bitset, values ...string) {
	accept := d.noInclude.clone()
	for _, v := range values {
		v = norm(v)
		if b, ok := d.include[v]; ok {
			accept.or(b)
		}
	}
	set.and(accept)
	for _, v := range values {
		if b, ok := d.exclude[norm(v)]; ok {
			set.andNot(b)
		}
	}
}

func norm(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Index is an immutable targeting index over a fixed set of campaigns.
type Index struct {
	campaigns []*domain.Campaign // by slot

	sites, geos, devices, languages, exchanges, segments *dimension

	requireSegments bitset
	hours           [domain.HoursPerWeek]bitset
}

var _ port.CampaignMatcher = (*Index)(nil)

// NewIndex builds an index. The campaigns are ordered by descending
// priority and then id; the caller's slice is not modified.
func NewIndex(campaigns []*domain.Campaign) *Index {
	sorted := slices.Clone(campaigns)
	slices.SortFunc(sorted, func(a, b *domain.Campaign) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})

	n := len(sorted)
	ix := &Index{
		campaigns:       sorted,
		sites:           newDimension(n),
		geos:            newDimension(n),
		devices:         newDimension(n),
		languages:       newDimension(n),
		exchanges:       newDimension(n),
		segments:        newDimension(n),
		requireSegments: newBitset(n),
	}
	for h := range ix.hours {
		ix.hours[h] = newBitset(n)
	}

	for slot, c := range sorted {
		tg := c.Targeting
		ix.sites.add(slot, n, tg.Sites)
		ix.geos.add(slot, n, tg.Geos)
		ix.devices.add(slot, n, tg.Devices)
		ix.languages.add(slot, n, tg.Languages)
		ix.exchanges.add(slot, n, tg.Exchanges)
		ix.segments.add(slot, n, tg.Segments)
		if tg.RequireSegments {
			ix.requireSegments.set(slot)
		}
		if len(tg.HoursOfWeek) == 0 {
			for h := range ix.hours {
				ix.hours[h].set(slot)
			}
		}
		for _, h := range tg.HoursOfWeek {
			if h >= 0 && h < domain.HoursPerWeek {
				ix.hours[h].set(slot)
			}
		}
	}
	return ix
}

// Len returns the number of indexed campaigns.
func (ix *Index) Len() int {
	return len(ix.campaigns)
}

// match computes the eligible slots, stopping as soon as none remain.
func (ix *Index) match(req *domain.BidRequest) bitset {
	n := len(ix.campaigns)
	set := fullBitset(n)
	attrs := req.Attributes

	steps := []func(){
		func() { set.and(ix.hours[req.HourOfWeek()]) },
		func() { ix.exchanges.filter(set, req.Exchange) },
		func() { ix.geos.filter(set, attrs.Geo) },
		func() { ix.devices.filter(set, attrs.Device) },
		func() { ix.sites.filter(set, attrs.Site) },
		func() { ix.languages.filter(set, attrs.Language) },
		func() {
			if len(attrs.Segments) == 0 {
				set.andNot(ix.requireSegments)
			}
			ix.segments.filter(set, attrs.Segments...)
		},
	}
	for _, step := range steps {
		if set.empty() {
			return set
		}
		step()
	}
	return set
}

// Eligible returns the campaigns accepting req in descending priority
// order. Matching runs when the sequence is first iterated and again on
// every restart.
func (ix *Index) Eligible(req *domain.BidRequest) iter.Seq[*domain.Campaign] {
	return func(yield func(*domain.Campaign) bool) {
		if len(ix.campaigns) == 0 {
			return
		}
		ix.match(req).each(func(slot int) bool {
			return yield(ix.campaigns[slot])
		})
	}
}
