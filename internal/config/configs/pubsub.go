package configs

// PubSub configures the win/loss outcome subscription. The subscriber is
// started only when Enabled is set.
type PubSub struct {
	Enabled        bool   `env:"ENABLED" envDefault:"false"`
	ProjectID      string `env:"PROJECT_ID"`
	SubscriptionID string `env:"SUBSCRIPTION_ID" envDefault:"bidder-outcomes"`
	// CredentialsFile is optional; application default credentials are
	// used when empty.
	CredentialsFile string `env:"CREDENTIALS_FILE"`
	MaxOutstanding  int    `env:"MAX_OUTSTANDING" envDefault:"100"`
}
