package configs

import "time"

// Ledger configures reservation expiry.
type Ledger struct {
	// ReservationTTL is how long a bid waits for its win or loss notice.
	ReservationTTL time.Duration `env:"RESERVATION_TTL" envDefault:"2m"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1s"`
	// Retention keeps resolved reservations to answer duplicate notices.
	Retention time.Duration `env:"RETENTION" envDefault:"10m"`
}
