package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DB manages the SQLite connection holding the motion event log.
type DB struct {
	conn   *sql.DB
	logger *zap.Logger
}

// New opens (and if needed creates) the database at dbPath.
func New(dbPath string, logger *zap.Logger) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn:   conn,
		logger: logger,
	}

	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database initialized",
		zap.String("path", dbPath),
	)

	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS motion_events (
		id TEXT PRIMARY KEY,
		camera_id TEXT NOT NULL,
		detected_at TIMESTAMP NOT NULL,
		regions INTEGER NOT NULL,
		score INTEGER NOT NULL,
		delivered INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_motion_events_camera_id ON motion_events(camera_id);
	CREATE INDEX IF NOT EXISTS idx_motion_events_detected_at ON motion_events(detected_at);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Conn exposes the underlying connection to repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
