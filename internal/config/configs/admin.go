package configs

// Admin configures the per-client rate limit of the admin API.
type Admin struct {
	RPS   float64 `env:"RPS" envDefault:"10"`
	Burst int     `env:"BURST" envDefault:"20"`
}
