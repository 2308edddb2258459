package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"follow-exchange/internal/adapter/usecase"
	"follow-exchange/internal/config/configs"
	"follow-exchange/internal/db"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cfg.Log.New(os.Stderr)

	if migrateDown {
		if err = db.Rollback(cfg.Psql.Addr.String()); err != nil {
			return err
		}
		logger.Info("migrations reverted")
		return nil
	}
	if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
		return err
	}
	logger.Info("migrations applied successfully")
	return nil
}

// runSeed inserts demo data into the configured store. Seeding the memory
// store would be lost on exit, so it is refused.
func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Driver == configs.StoreDriverMemory {
		return errors.New("seed needs a persistent store; set STORE_DRIVER to postgres or bolt")
	}
	logger := cfg.Log.New(os.Stderr)

	rules, err := cfg.Ledger.Rules()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// Seeding never pays rewards, so no verifier is consulted.
	svc := usecase.NewExchangeUseCase(st.store, nil, usecase.WithRules(rules), usecase.WithLogger(logger))
	if err = db.Seed(cmd.Context(), st.store, svc); err != nil {
		return err
	}
	logger.Info("demo data seeded", slog.String("store", cfg.Store.Driver))
	return nil
}
