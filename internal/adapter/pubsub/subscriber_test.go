package pubsub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"rtb-bidder/internal/config/configs"
	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

type notice struct {
	id    domain.ReservationID
	price int64
	win   bool
}

type fakeBidder struct {
	mu      sync.Mutex
	notices []notice
	err     error
}

func (f *fakeBidder) HandleRequest(_ context.Context, req domain.BidRequest) domain.BidDecision {
	return domain.NoBid(req.ID, domain.NoBidNoCandidates)
}

func (f *fakeBidder) NotifyWin(_ context.Context, id domain.ReservationID, price int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{id: id, price: price, win: true})
	return f.err
}

func (f *fakeBidder) NotifyLoss(_ context.Context, id domain.ReservationID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{id: id})
	return f.err
}

func (f *fakeBidder) received() []notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notice(nil), f.notices...)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestDecodeOutcome(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

	out, err := decodeOutcome([]byte(`{"type": "win", "reservation_id": "r1", "clear_price": 2.5}`), now)
	require.NoError(t, err)
	assert.Equal(t, domain.Outcome{Type: domain.OutcomeWin, ReservationID: "r1", ClearPrice: 2500, ReceivedAt: now}, out)

	out, err = decodeOutcome([]byte(`{"type": "loss", "reservation_id": "r2"}`), now)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeLoss, out.Type)

	for _, body := range []string{
		`not json`,
		`{"type": "win", "clear_price": 1}`,
		`{"type": "win", "reservation_id": "r1"}`,
		`{"type": "win", "reservation_id": "r1", "clear_price": -1}`,
		`{"type": "click", "reservation_id": "r1"}`,
	} {
		_, err := decodeOutcome([]byte(body), now)
		assert.ErrorIs(t, err, port.ErrInvalidRequest, body)
	}
}

func TestHandleAckPolicy(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		err     error
		ack     bool
	}{
		{name: "win", payload: `{"type": "win", "reservation_id": "r1", "clear_price": 1}`, ack: true},
		{name: "malformed", payload: `{`, ack: true},
		{name: "late win", payload: `{"type": "win", "reservation_id": "r1", "clear_price": 1}`, err: port.ErrReservationClosed, ack: true},
		{name: "unknown reservation", payload: `{"type": "loss", "reservation_id": "r1"}`, err: port.ErrUnknownReservation, ack: true},
		{name: "price above hold", payload: `{"type": "win", "reservation_id": "r1", "clear_price": 9}`, err: port.ErrInvalidClearPrice, ack: true},
		{name: "transient", payload: `{"type": "loss", "reservation_id": "r1"}`, err: errors.New("timeout"), ack: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSubscriber(configs.PubSub{}, &fakeBidder{err: tt.err}, clock.NewMock(), discard)
			assert.Equal(t, tt.ack, s.handle(context.Background(), "m1", []byte(tt.payload)))
		})
	}
}

func TestSubscriberReceive(t *testing.T) {
	if testing.Short() {
		t.Skip("short")
	}

	srv := pstest.NewServer()
	defer srv.Close()

	ctx := context.Background()
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := gpubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "outcomes")
	require.NoError(t, err)
	sub, err := client.CreateSubscription(ctx, "bidder-outcomes", gpubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	bidder := &fakeBidder{}
	s := NewSubscriber(configs.PubSub{MaxOutstanding: 10}, bidder, clock.NewMock(), discard)
	s.client, s.sub = client, sub

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Start(runCtx) }()

	for _, payload := range []string{
		`{"type": "win", "reservation_id": "r1", "clear_price": "1.25"}`,
		`garbage`,
		`{"type": "loss", "reservation_id": "r2"}`,
	} {
		_, err := topic.Publish(ctx, &gpubsub.Message{Data: []byte(payload)}).Get(ctx)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		for _, m := range srv.Messages() {
			if m.Acks == 0 {
				return false
			}
		}
		return len(srv.Messages()) == 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.ElementsMatch(t, []notice{
		{id: "r1", price: 1250, win: true},
		{id: "r2"},
	}, bidder.received())
}
