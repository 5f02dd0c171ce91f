package config

import (
	"github.com/caarlos0/env/v11"

	"rtb-bidder/internal/config/configs"
)

// Config aggregates every configuration section of the bidder. Sections are
// nested structs read from environment variables with their own prefix; see
// the configs package for variables and defaults.
type Config struct {
	// Env names the deployment (prod, dev, ...). It is attached to log
	// records.
	Env string `env:"ENV" envDefault:"prod"`

	HTTP    configs.HTTP     `envPrefix:"HTTP_"`
	Log     configs.Logger   `envPrefix:"LOG_"`
	Psql    configs.Postgres `envPrefix:"PSQL_"`
	Auction configs.Auction  `envPrefix:"AUCTION_"`
	Ledger  configs.Ledger   `envPrefix:"LEDGER_"`
	Pacing  configs.Pacing   `envPrefix:"PACING_"`
	PubSub  configs.PubSub   `envPrefix:"PUBSUB_"`
	Admin   configs.Admin    `envPrefix:"ADMIN_"`
}

// Load reads the configuration from the environment, applying defaults for
// unset variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Auction.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
