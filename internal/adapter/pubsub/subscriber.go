// Package pubsub feeds auction outcomes published on Google Cloud Pub/Sub
// back into the bidder.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/benbjohnson/clock"
	"google.golang.org/api/option"

	"rtb-bidder/internal/adapter/openrtb"
	"rtb-bidder/internal/config/configs"
	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// outcomeMessage is the payload of an outcome notification. ClearPrice is a
// CPM, as the exchange reports it.
type outcomeMessage struct {
	Type          string      `json:"type"`
	ReservationID string      `json:"reservation_id"`
	ClearPrice    json.Number `json:"clear_price"`
}

// decodeOutcome parses and validates a message payload.
func decodeOutcome(data []byte, now time.Time) (domain.Outcome, error) {
	var msg outcomeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %v", port.ErrInvalidRequest, err)
	}
	if msg.ReservationID == "" {
		return domain.Outcome{}, fmt.Errorf("%w: missing reservation_id", port.ErrInvalidRequest)
	}

	out := domain.Outcome{
		Type:          domain.OutcomeType(msg.Type),
		ReservationID: domain.ReservationID(msg.ReservationID),
		ReceivedAt:    now,
	}
	switch out.Type {
	case domain.OutcomeWin:
		price, err := openrtb.ParsePrice(msg.ClearPrice.String())
		if err != nil {
			return domain.Outcome{}, err
		}
		out.ClearPrice = price
	case domain.OutcomeLoss:
	default:
		return domain.Outcome{}, fmt.Errorf("%w: outcome type %q", port.ErrInvalidRequest, msg.Type)
	}
	return out, nil
}

// Subscriber receives outcome messages and forwards them to a Bidder.
type Subscriber struct {
	projectID        string
	subscriptionName string
	credsFile        string
	maxOutstanding   int

	client *gpubsub.Client
	sub    *gpubsub.Subscription

	bidder port.Bidder
	clock  clock.Clock
	logger *slog.Logger
}

// NewSubscriber returns a subscriber that feeds auction outcomes to bidder.
// Connect must be called before Start.
func NewSubscriber(cfg configs.PubSub, bidder port.Bidder, clk clock.Clock, logger *slog.Logger) *Subscriber {
	if clk == nil {
		clk = clock.New()
	}
	return &Subscriber{
		projectID:        cfg.ProjectID,
		subscriptionName: cfg.SubscriptionID,
		credsFile:        cfg.CredentialsFile,
		maxOutstanding:   cfg.MaxOutstanding,
		bidder:           bidder,
		clock:            clk,
		logger:           logger,
	}
}

// Connect creates the client. Start connects lazily when it was not
// called.
func (s *Subscriber) Connect(ctx context.Context) error {
	var opts []option.ClientOption
	if s.credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.credsFile))
	}
	client, err := gpubsub.NewClient(ctx, s.projectID, opts...)
	if err != nil {
		return fmt.Errorf("create pubsub client: %w", err)
	}
	s.client = client
	s.sub = client.Subscription(s.subscriptionName)
	s.logger.Info("pubsub subscriber initialised",
		slog.String("project_id", s.projectID),
		slog.String("subscription", s.subscriptionName),
		slog.Bool("explicit_credentials", s.credsFile != ""),
	)
	return nil
}

// Start blocks receiving messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.sub == nil {
		if err := s.Connect(ctx); err != nil {
			return err
		}
	}
	if s.maxOutstanding > 0 {
		s.sub.ReceiveSettings.MaxOutstandingMessages = s.maxOutstanding
	}

	return s.sub.Receive(ctx, func(ctx context.Context, m *gpubsub.Message) {
		if s.handle(ctx, m.ID, m.Data) {
			m.Ack()
			return
		}
		m.Nack()
	})
}

// handle processes one payload and reports whether it should be acked.
// Malformed payloads and outcomes that can never succeed are acked and
// dropped; anything else is retried.
func (s *Subscriber) handle(ctx context.Context, msgID string, data []byte) bool {
	out, err := decodeOutcome(data, s.clock.Now())
	if err != nil {
		s.logger.Warn("dropping malformed outcome", slog.String("message_id", msgID), slog.Any("error", err))
		return true
	}

	switch out.Type {
	case domain.OutcomeWin:
		err = s.bidder.NotifyWin(ctx, out.ReservationID, out.ClearPrice)
	default:
		err = s.bidder.NotifyLoss(ctx, out.ReservationID)
	}
	if err == nil {
		return true
	}

	log := s.logger.With(
		slog.String("message_id", msgID),
		slog.String("reservation_id", string(out.ReservationID)),
		slog.String("type", string(out.Type)),
		slog.Any("error", err),
	)
	if permanent(err) {
		log.Warn("outcome rejected")
		return true
	}
	log.Error("outcome failed; will retry")
	return false
}

func permanent(err error) bool {
	return errors.Is(err, port.ErrReservationClosed) ||
		errors.Is(err, port.ErrUnknownReservation) ||
		errors.Is(err, port.ErrInvalidClearPrice) ||
		errors.Is(err, port.ErrLedgerCorrupted)
}

// Close releases the client.
func (s *Subscriber) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
