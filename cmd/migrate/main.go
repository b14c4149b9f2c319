package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"distromart-be/internal/config"
	"distromart-be/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrator is the part of *migrate.Migrate the commands use.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Close() (error, error)
}

func main() {
	mode := flag.String("mode", "up", "migration mode: up, down, version or force")
	steps := flag.Int("steps", 1, "number of migrations to roll back with -mode down")
	version := flag.Int("version", -1, "version to record with -mode force")
	flag.Parse()

	cfg := config.Load()
	if cfg.DBURL == "" {
		log.Fatal("DB_URL not set in environment")
	}

	m, err := newMigrator(cfg.DBURL)
	if err != nil {
		log.Fatalf("failed to open migrations: %v", err)
	}
	defer m.Close()

	if err := run(m, *mode, *steps, *version, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func newMigrator(dbURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", src, dbURL)
}

func run(m migrator, mode string, steps, version int, out io.Writer) error {
	switch mode {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Fprintln(out, "no new migrations")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Fprintln(out, "all new migrations applied")
		return nil

	case "down":
		if steps < 1 {
			return fmt.Errorf("steps must be at least 1, got %d", steps)
		}
		err := m.Steps(-steps)
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Fprintln(out, "no migrations to roll back")
			return nil
		}
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Fprintf(out, "rolled back %d migration(s)\n", steps)
		return nil

	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(out, "no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read version: %w", err)
		}
		fmt.Fprintf(out, "version %d (dirty: %t)\n", v, dirty)
		return nil

	case "force":
		if version < 0 {
			return fmt.Errorf("force needs -version")
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force failed: %w", err)
		}
		fmt.Fprintf(out, "forced version %d\n", version)
		return nil
	}
	return fmt.Errorf("unknown mode: %s (use up, down, version or force)", mode)
}
