package configs

import "time"

// Redis configures the cache used for verification tickets and the account
// projection. When disabled an in-process cache is used instead, which only
// works for a single replica.
type Redis struct {
	Enabled   bool   `env:"ENABLED" envDefault:"false"`
	Addr      string `env:"ADDRESS" envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"follow-exchange:"`
	// ProjectionTTL bounds how long a cached account view may live even
	// without an invalidation.
	ProjectionTTL time.Duration `env:"PROJECTION_TTL" envDefault:"30s"`
}
