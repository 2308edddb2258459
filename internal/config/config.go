package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"follow-exchange/internal/config/configs"
)

// Config aggregates all configuration sections for the application. Fields
// are populated from environment variables using the caarlos0/env library. The
// nested structs are tagged with envPrefix so their fields are parsed with
// the given prefix. See the individual types in the configs package for
// default values and options. Use Load to construct a Config.
type Config struct {
	// Env names the deployment environment (e.g. prod, dev). It is attached
	// to traces.
	Env string `env:"ENV" envDefault:"prod"`

	HTTP    configs.HTTP     `envPrefix:"HTTP_"`
	Log     configs.Logger   `envPrefix:"LOG_"`
	Psql    configs.Postgres `envPrefix:"PSQL_"`
	Store   configs.Store    `envPrefix:"STORE_"`
	Redis   configs.Redis    `envPrefix:"REDIS_"`
	Ledger  configs.Ledger   `envPrefix:"LEDGER_"`
	Gate    configs.Gate     `envPrefix:"GATE_"`
	Tracing configs.Tracing  `envPrefix:"TRACE_"`
}

// Load reads configuration from environment variables into a Config. All
// fields are loaded with their specified defaults when no environment
// variable is provided.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	switch cfg.Store.Driver {
	case configs.StoreDriverPostgres, configs.StoreDriverBolt, configs.StoreDriverMemory:
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
	return cfg, nil
}
