package configs

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
	StoreDriverMemory   = "memory"
)

// Store selects the ledger backend.
type Store struct {
	// Driver is one of postgres, bolt or memory.
	Driver string `env:"DRIVER" envDefault:"postgres"`
	// BoltPath is the database file used by the bolt driver.
	BoltPath string `env:"BOLT_PATH" envDefault:"data/ledger.db"`
}
