package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStore keeps blobs in a single key/value table. It honors the
// same opaque-blob contract as FileStore but gives crash-safe writes via
// WAL journaling.
type SQLiteStore struct {
	conn   *sql.DB
	logger *logrus.Logger

	writeStmt  *sql.Stmt
	readStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewSQLiteStore opens (or creates) the database at the provided path
// and ensures the blobs table exists. Caller should Close() it when
// finished.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with fewer connections
	conn.SetMaxOpenConns(2)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	s := &SQLiteStore{conn: conn, logger: logger}
	if err := s.prepareStatements(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.WithField("db_path", dbPath).Info("Blob store initialized")
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.writeStmt, err = s.conn.Prepare(`
		INSERT INTO blobs (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare write statement: %w", err)
	}

	s.readStmt, err = s.conn.Prepare(`SELECT value FROM blobs WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare read statement: %w", err)
	}

	s.deleteStmt, err = s.conn.Prepare(`DELETE FROM blobs WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Write inserts or replaces the blob stored under key.
func (s *SQLiteStore) Write(key string, blob []byte) error {
	if _, err := s.writeStmt.Exec(key, blob); err != nil {
		s.logger.WithError(err).WithField("key", key).Error("Failed to write blob")
		return err
	}
	return nil
}

// Read returns the blob stored under key, or ErrNotFound.
func (s *SQLiteStore) Read(key string) ([]byte, error) {
	var blob []byte
	err := s.readStmt.QueryRow(key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Error("Failed to read blob")
		return nil, err
	}
	return blob, nil
}

// Delete removes the blob for the key. Deleting a missing key is a no-op.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.deleteStmt.Exec(key); err != nil {
		s.logger.WithError(err).WithField("key", key).Error("Failed to delete blob")
		return err
	}
	return nil
}

// Close closes the prepared statements and the underlying connection.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.writeStmt, s.readStmt, s.deleteStmt} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				s.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
