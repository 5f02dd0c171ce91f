package configs

import (
	"fmt"
	"time"
)

// Auction configures bid handling.
type Auction struct {
	// DefaultTimeout is the deadline of requests that carry no tmax.
	DefaultTimeout time.Duration `env:"DEFAULT_TIMEOUT" envDefault:"10ms"`
	// SafetyMargin is kept free before the deadline for encoding and
	// writing the response.
	SafetyMargin time.Duration `env:"SAFETY_MARGIN" envDefault:"2ms"`
	// MaxCandidates caps how many matching campaigns are scored.
	MaxCandidates int `env:"MAX_CANDIDATES" envDefault:"64"`
	// MaxReservationAttempts bounds retries with the next best campaign
	// when the winner cannot reserve its price.
	MaxReservationAttempts int `env:"MAX_RESERVATION_ATTEMPTS" envDefault:"3"`
	// Scorer is one of maxbid, floor_markup or ecpm.
	Scorer string `env:"SCORER" envDefault:"maxbid"`
	// CTR is the click-through rate assumed by the ecpm scorer.
	CTR float64 `env:"CTR" envDefault:"0.01"`
	// FloorMarkup is the fraction bid above the floor by floor_markup.
	FloorMarkup float64 `env:"FLOOR_MARKUP" envDefault:"0.1"`
	// NoticeBaseURL prefixes the win and loss notice URLs of bid responses.
	NoticeBaseURL string `env:"NOTICE_BASE_URL" envDefault:"http://localhost:8080"`
	// Seat is reported as the seat of every bid.
	Seat string `env:"SEAT" envDefault:"rtb-bidder"`
}

// Validate rejects settings the gateway cannot run with.
func (a Auction) Validate() error {
	if a.DefaultTimeout <= 0 {
		return fmt.Errorf("auction default timeout must be positive, got %s", a.DefaultTimeout)
	}
	if a.SafetyMargin < 0 || a.SafetyMargin >= a.DefaultTimeout {
		return fmt.Errorf("auction safety margin %s must be in [0, %s)", a.SafetyMargin, a.DefaultTimeout)
	}
	return nil
}
