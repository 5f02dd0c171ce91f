package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

func newTestLedger(t *testing.T, opts Options) (*Ledger, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC))
	l := New(clk, slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
	t.Cleanup(l.Stop)
	return l, clk
}

func TestReserveConfirm(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 100, 0))

	res, err := l.Reserve("c1", 5)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationPending, res.State)
	assert.NotEmpty(t, res.ID)

	bal, err := l.Balance("c1")
	require.NoError(t, err)
	assert.Equal(t, int64(95), bal.Available())
	assert.Equal(t, 1, bal.Pending)

	res, err = l.Confirm(res.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationConfirmed, res.State)
	assert.Equal(t, int64(3), res.Charged)

	bal, _ = l.Balance("c1")
	assert.Equal(t, int64(3), bal.Spent)
	assert.Equal(t, int64(0), bal.Outstanding)
	assert.Equal(t, int64(97), bal.Available())
}

func TestReserveErrors(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 3, 0))

	_, err := l.Reserve("missing", 1)
	assert.ErrorIs(t, err, port.ErrUnknownCampaign)

	_, err = l.Reserve("c1", 5)
	assert.ErrorIs(t, err, port.ErrInsufficientBudget)

	_, err = l.Reserve("c1", 0)
	assert.Error(t, err)

	_, err = l.Reserve("c1", 3)
	assert.NoError(t, err, "exact remaining budget must be reservable")
}

func TestOpenTwice(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 10, 0))
	assert.ErrorIs(t, l.Open("c1", 10, 0), port.ErrCampaignExists)
	assert.ErrorIs(t, l.Open("c2", 10, 11), port.ErrInvalidCampaign)
}

func TestConfirmValidation(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 100, 0))
	res, err := l.Reserve("c1", 5)
	require.NoError(t, err)

	_, err = l.Confirm(res.ID, 6)
	assert.ErrorIs(t, err, port.ErrInvalidClearPrice)
	_, err = l.Confirm(res.ID, -1)
	assert.ErrorIs(t, err, port.ErrInvalidClearPrice)

	_, err = l.Confirm(res.ID, 5)
	require.NoError(t, err)

	_, err = l.Confirm(res.ID, 5)
	assert.ErrorIs(t, err, port.ErrReservationClosed, "second confirmation must not charge again")

	bal, _ := l.Balance("c1")
	assert.Equal(t, int64(5), bal.Spent)

	_, err = l.Confirm("nope", 1)
	assert.ErrorIs(t, err, port.ErrUnknownReservation)
}

func TestReleaseIdempotent(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 100, 0))
	res, err := l.Reserve("c1", 10)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := l.Release(res.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationReleased, got.State)
	}
	bal, _ := l.Balance("c1")
	assert.Equal(t, int64(100), bal.Available())

	_, err = l.Confirm(res.ID, 1)
	assert.ErrorIs(t, err, port.ErrReservationClosed)
}

func TestLazyExpiry(t *testing.T) {
	l, clk := newTestLedger(t, Options{TTL: time.Second})
	require.NoError(t, l.Open("c1", 100, 0))
	res, err := l.Reserve("c1", 10)
	require.NoError(t, err)

	clk.Add(time.Second)

	got, err := l.Confirm(res.ID, 10)
	assert.ErrorIs(t, err, port.ErrReservationClosed)
	assert.Equal(t, domain.ReservationExpired, got.State)

	bal, _ := l.Balance("c1")
	assert.Equal(t, int64(0), bal.Spent)
	assert.Equal(t, int64(100), bal.Available())
}

func TestSweepExpiresAndForgets(t *testing.T) {
	var (
		mu       sync.Mutex
		resolved []domain.Reservation
	)
	l, clk := newTestLedger(t, Options{
		TTL:       time.Second,
		Retention: time.Minute,
		OnResolve: func(r domain.Reservation) {
			mu.Lock()
			resolved = append(resolved, r)
			mu.Unlock()
		},
	})
	require.NoError(t, l.Open("c1", 100, 0))
	a, _ := l.Reserve("c1", 10)
	_, _ = l.Reserve("c1", 20)

	clk.Add(500 * time.Millisecond)
	assert.Equal(t, 0, l.Sweep())

	clk.Add(500 * time.Millisecond)
	assert.Equal(t, 2, l.Sweep())
	assert.Len(t, resolved, 2)

	got, err := l.Release(a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationExpired, got.State)

	clk.Add(time.Minute)
	l.Sweep()
	_, err = l.Release(a.ID)
	assert.ErrorIs(t, err, port.ErrUnknownReservation)
	assert.Len(t, resolved, 2, "resolution hook fires once per reservation")
}

func TestBackgroundSweep(t *testing.T) {
	expired := make(chan domain.Reservation, 1)
	l, clk := newTestLedger(t, Options{
		TTL:           time.Second,
		SweepInterval: 100 * time.Millisecond,
		OnResolve:     func(r domain.Reservation) { expired <- r },
	})
	require.NoError(t, l.Open("c1", 100, 0))
	_, err := l.Reserve("c1", 10)
	require.NoError(t, err)

	l.Start()
	l.Start()

	var got domain.Reservation
	require.Eventually(t, func() bool {
		clk.Add(100 * time.Millisecond)
		select {
		case got = <-expired:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond, "reservation was not expired by the sweeper")
	assert.Equal(t, domain.ReservationExpired, got.State)

	l.Stop()
	l.Stop()
}

func TestAdjust(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 100, 10))
	_, err := l.Reserve("c1", 30)
	require.NoError(t, err)

	bal, err := l.Adjust("c1", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), bal.Total)

	_, err = l.Adjust("c1", -111)
	assert.ErrorIs(t, err, port.ErrInsufficientBudget)

	bal, err = l.Adjust("c1", -110)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Available())

	_, err = l.Adjust("missing", 1)
	assert.ErrorIs(t, err, port.ErrUnknownCampaign)
}

func TestAdjustKeepsTotalPositive(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 100, 0))

	bal, err := l.Adjust("c1", -100)
	require.ErrorIs(t, err, port.ErrInvalidCampaign)
	assert.Equal(t, int64(100), bal.Total)

	bal, err = l.Adjust("c1", -99)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bal.Total)
}

func TestCloseWithPending(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 100, 0))
	r1, _ := l.Reserve("c1", 10)
	r2, _ := l.Reserve("c1", 10)

	err := l.Close(context.Background(), "c1", false)
	assert.ErrorIs(t, err, port.ErrActiveReservations)

	_, err = l.Reserve("c1", 1)
	assert.NoError(t, err, "failed close must not block new reservations")

	done := make(chan error, 1)
	go func() { done <- l.Close(context.Background(), "c1", true) }()

	require.Eventually(t, func() bool {
		_, err := l.Reserve("c1", 1)
		return err != nil
	}, time.Second, time.Millisecond, "draining campaign must refuse new reservations")

	_, _ = l.Confirm(r1.ID, 10)
	_, _ = l.Release(r2.ID)
	l.ReleaseAll()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("drain did not finish")
	}
	_, err = l.Balance("c1")
	assert.ErrorIs(t, err, port.ErrUnknownCampaign)

	// outcomes arriving after removal still resolve against the tombstone
	got, err := l.Release(r2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationReleased, got.State)
}

func TestCloseDrainCancelled(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 100, 0))
	_, _ = l.Reserve("c1", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Close(ctx, "c1", true)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = l.Reserve("c1", 1)
	assert.NoError(t, err, "cancelled drain reopens the campaign")
}

func TestReleaseAll(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 100, 0))
	require.NoError(t, l.Open("c2", 100, 0))
	_, _ = l.Reserve("c1", 10)
	_, _ = l.Reserve("c2", 20)
	r, _ := l.Reserve("c2", 30)
	_, _ = l.Confirm(r.ID, 30)

	released := l.ReleaseAll()
	assert.Len(t, released, 2)
	for _, id := range []domain.CampaignID{"c1", "c2"} {
		bal, _ := l.Balance(id)
		assert.Equal(t, int64(0), bal.Outstanding)
	}
	assert.Empty(t, l.ReleaseAll())
}

func TestReleaseAllRefusesLaterReservations(t *testing.T) {
	l, clk := newTestLedger(t, Options{TTL: time.Second})
	require.NoError(t, l.Open("c1", 100, 0))
	l.ReleaseAll()

	_, err := l.Reserve("c1", 10)
	require.ErrorIs(t, err, port.ErrUnknownCampaign)

	clk.Add(time.Hour)
	l.Sweep()
	bal, err := l.Balance("c1")
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Pending)
	assert.Equal(t, int64(0), bal.Outstanding)
}

func TestCorruptionFreezesCampaign(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 100, 0))
	r, _ := l.Reserve("c1", 10)

	a := l.account("c1")
	a.mu.Lock()
	a.total = 5
	a.mu.Unlock()

	_, err := l.Confirm(r.ID, 10)
	assert.ErrorIs(t, err, port.ErrLedgerCorrupted)

	bal, _ := l.Balance("c1")
	assert.True(t, bal.Frozen)

	_, err = l.Reserve("c1", 1)
	assert.ErrorIs(t, err, port.ErrCampaignFrozen)
}

func TestConcurrentReserveNeverOverspends(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Open("c1", 1000, 0))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		held  int64
		fails int
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				res, err := l.Reserve("c1", 7)
				mu.Lock()
				if err != nil {
					fails++
				} else {
					held += res.Amount
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	bal, _ := l.Balance("c1")
	assert.Equal(t, held, bal.Outstanding)
	assert.LessOrEqual(t, bal.Spent+bal.Outstanding, bal.Total)
	assert.Equal(t, int64(1000/7*7), held)
	assert.Equal(t, 640-1000/7, fails)
}
