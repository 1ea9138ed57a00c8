package repository

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"

	auth "github.com/goliatone/go-auth-service"
)

// MigrationsDialect maps the bun dialect of db to a migrations directory
func MigrationsDialect(db *bun.DB) (string, error) {
	switch db.Dialect().Name() {
	case dialect.SQLite:
		return auth.MigrationsDialectSQLite, nil
	case dialect.PG:
		return auth.MigrationsDialectPostgres, nil
	default:
		return "", errors.New("unsupported database dialect "+db.Dialect().Name().String(), errors.CategoryBadInput)
	}
}

// Migrate applies the pending embedded migrations and returns the applied group
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	name, err := MigrationsDialect(db)
	if err != nil {
		return nil, err
	}

	fsys, err := auth.MigrationsFor(name)
	if err != nil {
		return nil, err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to discover migrations")
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize migrations tables")
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to run migrations")
	}
	return group, nil
}
