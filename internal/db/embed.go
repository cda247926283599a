package db

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DevMode loads migrations from the working tree instead of the embedded
// copy, so a migration under development can be retried without
// rebuilding the binary.
var DevMode bool

const devMigrationsDir = "internal/db/migrations"

// getMigrationsFS returns a filesystem rooted at the migration files.
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		if _, err := os.Stat(devMigrationsDir); err != nil {
			return nil, fmt.Errorf("dev mode migrations unavailable: %w", err)
		}
		return os.DirFS(devMigrationsDir), nil
	}
	return fs.Sub(migrationsFS, "migrations")
}

// MigrationsFS returns the migration source used by the migrate command
// and startup schema checks.
func MigrationsFS() (fs.FS, error) {
	return getMigrationsFS()
}
