package journal

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is recorded in PRAGMA user_version. schema.sql only uses
// IF NOT EXISTS, so an older journal is brought up to date by replaying it.
const schemaVersion = 1

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrSchemaVersion is returned by Open for a journal written with a
	// newer schema than this build knows.
	ErrSchemaVersion = errors.New("unsupported journal schema version")
)

// Journal is a SQLite-backed log of script runs.
type Journal struct {
	db    *sql.DB
	newID func() string
}

// Open opens the journal at path, creating the file and its tables if
// needed. The parent directory must exist.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	// Runs are appended by one writer; seq allocation relies on it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}

	return &Journal{db: db, newID: newRunID}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// dsn sets the connection pragmas as go-sqlite3 DSN parameters so every
// connection the pool opens carries them.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")
	return path + "?" + params.Encode()
}

// initSchema replays schema.sql and stamps user_version in one
// transaction.
func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: %d (supported: %d)", ErrSchemaVersion, version, schemaVersion)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if version < schemaVersion {
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
	}
	return tx.Commit()
}

func newRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
