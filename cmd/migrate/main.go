package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"keyshop-server/internal/infrastructure/config"
	"keyshop-server/internal/infrastructure/persistence/mysql"
)

const usage = "usage: migrate [up|down N|status]"

// migrator mysql.Migratorの操作
type migrator interface {
	Up() (bool, error)
	Down(steps int) (bool, error)
	Status() (mysql.MigrationStatus, error)
	Close() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, openMigrator); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

func openMigrator() (migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return mysql.NewMigrator(cfg.Database.MigrationDSN())
}

// run サブコマンドを実行
func run(args []string, out io.Writer, open func() (migrator, error)) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	command := args[0]
	steps := 1
	switch command {
	case "up", "status":
		if len(args) > 1 {
			return errors.New(usage)
		}
	case "down":
		if len(args) > 2 {
			return errors.New(usage)
		}
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid steps value: %s", args[1])
			}
			steps = n
		}
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}

	m, err := open()
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		applied, err := m.Up()
		if err != nil {
			return err
		}
		if !applied {
			fmt.Fprintln(out, "No new migrations to apply")
			return nil
		}
		fmt.Fprintln(out, "Migrations applied successfully")
	case "down":
		rolledBack, err := m.Down(steps)
		if err != nil {
			return err
		}
		if !rolledBack {
			fmt.Fprintln(out, "No migrations to rollback")
			return nil
		}
		fmt.Fprintf(out, "Rolled back %d migration(s)\n", steps)
	case "status":
		status, err := m.Status()
		if err != nil {
			return err
		}
		if !status.Applied {
			fmt.Fprintln(out, "No migrations applied")
			return nil
		}
		fmt.Fprintf(out, "Current version: %d (dirty: %t)\n", status.Version, status.Dirty)
	}
	return nil
}
