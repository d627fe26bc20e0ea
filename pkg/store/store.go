// Package store is the local sqlite cache behind the cli and the dashboard api.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/files"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Added checked_at index for windowed observation queries
const currentSchemaVersion = 1

type Store struct {
	db *sql.DB
}

// Open creates or opens the cache at path, creating its directory, and
// applies pragmas and migrations. Safe to call on an existing cache.
func Open(path string) (*Store, error) {
	if err := files.EnsureDirFor(files.AppFs, path); err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fleeterrors.WrapAndTrace(err, "open cache", path)
	}

	// single writer avoids SQLITE_BUSY between the cli and the api server
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, fleeterrors.WrapAndTrace(err)
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, fleeterrors.WrapAndTrace(err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close() //nolint:wrapcheck // passthrough
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fleeterrors.WrapAndTrace(err, pragma)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fleeterrors.WrapAndTrace(err, "apply schema")
	}
	return runMigrations(db)
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fleeterrors.WrapAndTrace(err, "get user_version")
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fleeterrors.WrapAndTrace(err, "set user_version")
	}
	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_host_signatures_checked_at
		ON host_signatures(checked_at)
	`)
	if err != nil {
		return fleeterrors.WrapAndTrace(err, "migrate to v1")
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fleeterrors.WrapAndTrace(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fleeterrors.WrapAndTrace(err)
	}
	return nil
}
