package configs

import "time"

// Pacing configures the spend smoothing of campaigns with a pacing window.
type Pacing struct {
	Ceiling float64       `env:"CEILING" envDefault:"2"`
	Burst   time.Duration `env:"BURST" envDefault:"1m"`
}
