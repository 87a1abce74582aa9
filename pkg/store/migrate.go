package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"log/slog"

	"github.com/0xpr03/nitter-status/pkg/common"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies (up=true) or reverts (up=false) every embedded schema
// migration against db, then runs VACUUM if any migration was applied.
// ErrNoChange is treated as success.
func Migrate(ctx context.Context, db *sql.DB, up bool) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := newSQLiteDriver(db)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			slog.ErrorContext(ctx, "migration source close failed", common.ErrAttr(srcErr))
		}
		if dbErr != nil {
			slog.ErrorContext(ctx, "migration db close failed", common.ErrAttr(dbErr))
		}
	}()

	if up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	if err == nil {
		if _, err := db.ExecContext(ctx, `VACUUM`); err != nil {
			return err
		}
	}

	return nil
}
