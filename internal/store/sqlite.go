package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions is used for the database file's directory.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is a single-file store for single-instance deployments.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (creating if needed) the database file named by the DSN.
// ":memory:" keeps everything in process.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("SQLiteStore: database DSN not set")
	}

	if cfg.DSN != ":memory:" {
		dir := filepath.Dir(cfg.DSN)
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			return nil, fmt.Errorf("SQLiteStore: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("SQLiteStore: open: %w", err)
	}
	// One writer; also keeps :memory: databases on a single connection.
	db.SetMaxOpenConns(1)

	base, err := openSQLStore(db, "sqlite3", "SQLiteStore", sqliteMigrations)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{base}, nil
}
