package auth

import (
	"embed"
	"io/fs"

	"github.com/goliatone/go-errors"
)

const (
	MigrationsDialectSQLite   = "sqlite"
	MigrationsDialectPostgres = "postgres"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsFor returns the migrations of one dialect rooted at their
// directory, the layout bun/migrate discovers.
func MigrationsFor(dialect string) (fs.FS, error) {
	switch dialect {
	case MigrationsDialectSQLite, MigrationsDialectPostgres:
		return fs.Sub(migrationsFS, "data/sql/migrations/"+dialect)
	default:
		return nil, errors.New("no migrations for dialect "+dialect, errors.CategoryBadInput)
	}
}
