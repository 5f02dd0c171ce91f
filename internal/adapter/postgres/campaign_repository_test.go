package postgres

import (
	"context"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtb-bidder/internal/config/configs"
	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
	"rtb-bidder/internal/db"
)

func TestWindowColumns(t *testing.T) {
	start, end := windowColumns(domain.Window{})
	assert.Nil(t, start)
	assert.Nil(t, end)
	assert.True(t, windowFromColumns(nil, nil).IsZero())

	loc := time.FixedZone("CET", 3600)
	w := domain.Window{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, loc),
		End:   time.Date(2025, 3, 2, 0, 0, 0, 0, loc),
	}
	start, end = windowColumns(w)
	require.NotNil(t, start)
	assert.Equal(t, time.UTC, start.Location())
	got := windowFromColumns(start, end)
	assert.True(t, got.Start.Equal(w.Start))
	assert.True(t, got.End.Equal(w.End))
}

// newRepository connects to the database named by RTB_TEST_POSTGRES_ADDR
// and skips the test when it is unset.
func newRepository(t *testing.T) *CampaignRepository {
	t.Helper()
	addr := os.Getenv("RTB_TEST_POSTGRES_ADDR")
	if addr == "" {
		t.Skip("RTB_TEST_POSTGRES_ADDR not set")
	}
	u, err := url.Parse(addr)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(addr))

	pool, err := db.NewPostgresPool(context.Background(), configs.Postgres{Addr: *u})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewCampaignRepository(pool)
}

func TestCampaignRepository(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	c := domain.Campaign{
		ID:          domain.CampaignID("it-" + uuid.NewString()),
		Name:        "integration",
		TotalBudget: 10_000,
		MaxBidPrice: 500,
		Priority:    2,
		Targeting: domain.Targeting{
			Geos:        domain.IncludeExclude{Include: []string{"USA"}},
			HoursOfWeek: []int{1, 2},
		},
		Pacing:    domain.Window{Start: now, End: now.Add(time.Hour)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.Cleanup(func() { _ = repo.DeleteCampaign(ctx, c.ID) })

	require.NoError(t, repo.SaveCampaign(ctx, c))
	require.NoError(t, repo.AdjustBudget(ctx, c.ID, 5_000))

	spend := domain.Spend{ReservationID: domain.ReservationID(uuid.NewString()), CampaignID: c.ID, Amount: 400, CreatedAt: now}
	require.NoError(t, repo.RecordSpend(ctx, spend))
	require.NoError(t, repo.RecordSpend(ctx, spend), "recording a reservation twice is a no-op")

	stored := find(t, repo, c.ID)
	assert.Equal(t, int64(15_000), stored.TotalBudget)
	assert.Equal(t, int64(400), stored.Spent)
	assert.Equal(t, c.Targeting, stored.Targeting)
	assert.True(t, stored.Pacing.Start.Equal(c.Pacing.Start))

	c.Spent = 0
	c.Name = "renamed"
	require.NoError(t, repo.SaveCampaign(ctx, c))
	stored = find(t, repo, c.ID)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, int64(400), stored.Spent, "saving keeps recorded spend")

	err := repo.RecordSpend(ctx, domain.Spend{ReservationID: "x-" + domain.ReservationID(uuid.NewString()), CampaignID: c.ID, Amount: 1 << 40})
	assert.ErrorIs(t, err, port.ErrInsufficientBudget)

	require.NoError(t, repo.DeleteCampaign(ctx, c.ID))
	assert.ErrorIs(t, repo.DeleteCampaign(ctx, c.ID), port.ErrUnknownCampaign)
	assert.ErrorIs(t, repo.AdjustBudget(ctx, c.ID, 1), port.ErrUnknownCampaign)
	assert.ErrorIs(t, repo.RecordSpend(ctx, spend), port.ErrUnknownCampaign)
}

func find(t *testing.T, repo *CampaignRepository, id domain.CampaignID) domain.Campaign {
	t.Helper()
	all, err := repo.ListCampaigns(context.Background())
	require.NoError(t, err)
	for _, c := range all {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("campaign %s not stored", id)
	return domain.Campaign{}
}
