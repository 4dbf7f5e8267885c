// Package migrations embeds and applies the schema for each supported driver.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Run applies every pending .up.sql file for the connection's driver, in name order.
// Each file runs in its own transaction together with its version record.
func Run(ctx context.Context, conn database.Connection) error {
	dir, placeholder, err := dialect(conn.Driver())
	if err != nil {
		return err
	}

	if _, err := conn.Exec(ctx, createVersionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	pending, err := Pending(ctx, conn)
	if err != nil {
		return err
	}

	for _, version := range pending {
		body, err := fs.ReadFile(files, dir+"/"+version)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}
		if err := apply(ctx, conn, version, string(body), placeholder); err != nil {
			return err
		}
	}
	return nil
}

// Pending lists the migrations not yet recorded in schema_migrations.
func Pending(ctx context.Context, conn database.Connection) ([]string, error) {
	dir, _, err := dialect(conn.Driver())
	if err != nil {
		return nil, err
	}

	all, err := available(dir)
	if err != nil {
		return nil, err
	}

	applied := make(map[string]bool)
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var pending []string
	for _, v := range all {
		if !applied[v] {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

func apply(ctx context.Context, conn database.Connection, version, body, placeholder string) (err error) {
	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, body); err != nil {
		return fmt.Errorf("execute migration %s: %w", version, err)
	}
	if _, err = tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES (`+placeholder+`)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}

func available(dir string) ([]string, error) {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func dialect(driver database.Driver) (dir, placeholder string, err error) {
	switch driver {
	case database.DriverSQLite:
		return "sqlite", "?", nil
	case database.DriverPostgres:
		return "postgres", "$1", nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}
