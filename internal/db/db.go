// Package db provides the SQLite connection and schema for ledhal.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Light history - append-only record of applied updates.
	// It is audit data only; nothing reads it back into light state.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS light_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			change_id TEXT NOT NULL,
			seq INTEGER NOT NULL DEFAULT 0,
			source TEXT,
			indicator TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			color INTEGER NOT NULL,
			flash_mode TEXT NOT NULL,
			flash_on_ms INTEGER NOT NULL,
			flash_off_ms INTEGER NOT NULL,
			owner TEXT,
			output TEXT,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_history_indicator_ts ON light_history(indicator, timestamp, seq);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_history_change ON light_history(change_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create light_history table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
