package configs

import "time"

// HTTP configures the listener serving bids, notices and the admin API.
type HTTP struct {
	// Port is the TCP port to listen on.
	Port uint16 `env:"PORT" envDefault:"8080"`
	// ReadTimeout bounds reading a whole request. Exchanges send small
	// bodies, so a short value sheds slow clients early.
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"2s"`
	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"2s"`
	// ShutdownTimeout bounds graceful shutdown of the server and gateway.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}
