// Package migrations applies the file-based schema migrations in
// ./migrations at startup. Deployments that predate golang-migrate are
// baselined to the latest version before Up runs.
package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	migrationsDir = "migrations"
	versionTable  = "ladder_schema_migrations"
	// sentinelTable marks an existing ladder schema: it has been present
	// since the first migration.
	sentinelTable = "players"
)

// RunMigrations opens its own connection, baselines if needed and runs
// every pending up migration.
func RunMigrations(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open DB: %w", err)
	}
	defer db.Close()

	driver, err := pg.WithInstance(db, &pg.Config{MigrationsTable: versionTable})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if needsBaseline(db) {
		if latest := latestVersion(migrationsDir); latest > 0 {
			log.Printf("[MIGRATE] Existing schema without version table, baselining to %d", latest)
			if err := m.Force(latest); err != nil {
				log.Printf("[MIGRATE] Baseline to version %d failed: %v", latest, err)
			}
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}
	log.Printf("[MIGRATE] Schema up to date")
	return nil
}

// needsBaseline reports whether the ladder tables exist but migrate's
// version table does not.
func needsBaseline(db *sql.DB) bool {
	return tableExists(db, sentinelTable) && !tableExists(db, versionTable)
}

func tableExists(db *sql.DB, name string) bool {
	var exists bool
	row := db.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", name)
	if err := row.Scan(&exists); err != nil {
		return false
	}
	return exists
}

// latestVersion returns the highest numeric prefix (e.g. 000003_) among
// the migration files, or 0 when none parse.
func latestVersion(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	re := regexp.MustCompile(`^0*([0-9]+)_`)
	latest := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if len(m) < 2 {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil && v > latest {
			latest = v
		}
	}
	return latest
}
