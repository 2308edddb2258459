package configs

import "time"

// Gate configures the verification gate.
type Gate struct {
	// Delay is how long a task, onboarding or bonus ticket waits before it
	// can be redeemed.
	Delay time.Duration `env:"DELAY" envDefault:"6s"`
	// TTL is how long a ready ticket stays redeemable.
	TTL time.Duration `env:"TTL" envDefault:"10m"`
}
