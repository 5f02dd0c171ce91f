package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

func req() *domain.BidRequest {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	return &domain.BidRequest{ID: "r", Timestamp: now, Deadline: now.Add(time.Second)}
}

func TestAddRemove(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(domain.Campaign{ID: "c1", Priority: 1}))
	require.NoError(t, r.Add(domain.Campaign{ID: "c2", Priority: 2}))
	assert.ErrorIs(t, r.Add(domain.Campaign{ID: "c1"}), port.ErrCampaignExists)

	var got []domain.CampaignID
	for c := range r.Eligible(req()) {
		got = append(got, c.ID)
	}
	assert.Equal(t, []domain.CampaignID{"c2", "c1"}, got)

	require.NoError(t, r.Remove("c2"))
	assert.ErrorIs(t, r.Remove("c2"), port.ErrUnknownCampaign)
	_, ok := r.Get("c2")
	assert.False(t, ok)
	assert.Equal(t, uint64(3), r.Snapshot().Version)
}

func TestSnapshotIsolation(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(domain.Campaign{ID: "c1"}))

	old := r.Snapshot()
	require.NoError(t, r.Remove("c1"))
	require.NoError(t, r.Add(domain.Campaign{ID: "c3"}))

	c, ok := old.Get("c1")
	require.True(t, ok, "an in-flight snapshot keeps removed campaigns")
	assert.Equal(t, domain.CampaignID("c1"), c.ID)
	assert.Equal(t, 1, old.Len())

	n := 0
	for range old.Eligible(req()) {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestUpdateCopies(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(domain.Campaign{ID: "c1", TotalBudget: 10}))
	before, _ := r.Get("c1")

	require.NoError(t, r.Update("c1", func(c *domain.Campaign) { c.TotalBudget = 20 }))
	after, _ := r.Get("c1")

	assert.Equal(t, int64(10), before.TotalBudget)
	assert.Equal(t, int64(20), after.TotalBudget)
	assert.ErrorIs(t, r.Update("nope", func(*domain.Campaign) {}), port.ErrUnknownCampaign)
}

func TestByAgent(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(domain.Campaign{ID: "b", AgentID: "agent-1"}))
	require.NoError(t, r.Add(domain.Campaign{ID: "a", AgentID: "agent-1"}))
	require.NoError(t, r.Add(domain.Campaign{ID: "c", AgentID: "agent-2"}))

	got := r.ByAgent("agent-1")
	require.Len(t, got, 2)
	assert.Equal(t, domain.CampaignID("a"), got[0].ID)
	assert.Empty(t, r.ByAgent("agent-3"))
}

func TestConcurrentWriters(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.Add(domain.Campaign{ID: domain.CampaignID(fmt.Sprintf("c%d", i))})
			for range r.Eligible(req()) {
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 32, r.Snapshot().Len())
	assert.Equal(t, uint64(32), r.Snapshot().Version)
}
