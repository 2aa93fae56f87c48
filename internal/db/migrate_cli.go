package db

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrUsage is returned by RunMigrateCommand for malformed arguments.
var ErrUsage = errors.New("usage")

// RunMigrateCommand handles the migrate subcommand of surveyd. The
// database is opened without migrating so that every action starts from
// the on-disk state.
func RunMigrateCommand(w io.Writer, args []string, dbPath string) error {
	if len(args) < 1 {
		PrintMigrateHelp(w)
		return fmt.Errorf("%w: missing migrate action", ErrUsage)
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(); err != nil {
			return err
		}
		fmt.Fprintln(w, "All migrations applied")
		return printVersion(w, database)

	case "down":
		if err := database.MigrateDown(); err != nil {
			return err
		}
		fmt.Fprintln(w, "Rolled back one migration")
		return printVersion(w, database)

	case "status":
		return printStatus(w, database)

	case "version":
		if len(args) < 2 {
			return fmt.Errorf("%w: migrate version <version>", ErrUsage)
		}
		v, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", ErrUsage, args[1])
		}
		if err := database.MigrateTo(uint(v)); err != nil {
			return err
		}
		fmt.Fprintf(w, "Migrated to version %d\n", v)
		return nil

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("%w: migrate force <version>", ErrUsage)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", ErrUsage, args[1])
		}
		if err := database.MigrateForce(v); err != nil {
			return err
		}
		fmt.Fprintf(w, "Forced version to %d\n", v)
		return nil

	case "help":
		PrintMigrateHelp(w)
		return nil

	default:
		PrintMigrateHelp(w)
		return fmt.Errorf("%w: unknown migrate action %q", ErrUsage, action)
	}
}

func printVersion(w io.Writer, database *DB) error {
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func printStatus(w io.Writer, database *DB) error {
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return err
	}
	latest, err := LatestMigrationVersion()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "=== Migration Status ===")
	fmt.Fprintf(w, "Current version: %d\n", version)
	fmt.Fprintf(w, "Latest version:  %d\n", latest)
	fmt.Fprintf(w, "Dirty: %v\n", dirty)
	switch {
	case dirty:
		fmt.Fprintln(w, "\nWARNING: a migration failed mid-execution. Inspect the database, then run: surveyd migrate force <version>")
	case version < latest:
		fmt.Fprintf(w, "\n%d migration(s) pending. Run: surveyd migrate up\n", latest-version)
	}
	return nil
}

// PrintMigrateHelp writes usage for the migrate subcommand.
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: surveyd migrate <action> [args]

Actions:
  up                 Apply all pending migrations
  down               Roll back the most recent migration
  status             Show current and latest schema versions
  version <N>        Migrate up or down to version N
  force <N>          Force the recorded version (recovery only)
  help               Show this help
`)
}
