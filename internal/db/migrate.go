package db

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"follow-exchange/db/migrations"
)

// Migrate brings the schema at addr to migrations.Version.
func Migrate(addr string) error {
	mg, err := newMigrator(addr)
	if err != nil {
		return err
	}
	defer mg.Close()

	_, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}

	if dirty {
		return errors.New("database is in dirty state")
	}

	if err = mg.Migrate(migrations.Version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// Rollback reverts every applied migration.
func Rollback(addr string) error {
	mg, err := newMigrator(addr)
	if err != nil {
		return err
	}
	defer mg.Close()

	if err = mg.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func newMigrator(addr string) (*migrate.Migrate, error) {
	driver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	mg, err := migrate.NewWithSourceInstance("iofs", driver, addr)
	if err != nil {
		_ = driver.Close()
		return nil, err
	}
	return mg, nil
}
