package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory store.
const MemoryPath = ":memory:"

// readerPoolSize bounds the concurrent readers of a file store.
const readerPoolSize = 4

// DB holds the connection pools of one store.
// Writer is limited to a single connection, which serializes every write
// transaction. Reader serves queries; for an in-memory store both are the same
// pool because each connection would otherwise see its own empty database.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// Open opens the store at path, or a private in-memory store for MemoryPath.
func Open(path string) (*DB, error) {
	if path == MemoryPath {
		db, err := OpenConnection(MemoryPath)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		return &DB{Writer: db, Reader: db, path: path}, nil
	}

	dsn := fileDSN(path)
	writer, err := OpenConnection(dsn)
	if err != nil {
		return nil, err
	}
	writer.SetMaxOpenConns(1)

	reader, err := OpenConnection(dsn)
	if err != nil {
		writer.Close()
		return nil, err
	}
	reader.SetMaxOpenConns(readerPoolSize)

	return &DB{Writer: writer, Reader: reader, path: path}, nil
}

// fileDSN sets the per-connection pragmas as DSN parameters so that every
// pooled connection gets them, not just the first.
func fileDSN(path string) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", "5000")
	q.Set("_journal_mode", "WAL")
	return "file:" + path + "?" + q.Encode()
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
func OpenConnection(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Path returns the file the store was opened from.
func (d *DB) Path() string {
	return d.path
}

// InTx runs fn inside a write transaction, committing if fn returns nil.
func (d *DB) InTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (d *DB) BackupTo(ctx context.Context, destPath string) error {
	_, err := d.Writer.ExecContext(ctx, "VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes both pools.
func (d *DB) Close() error {
	var err error
	if d.Reader != nil && d.Reader != d.Writer {
		err = d.Reader.Close()
	}
	if d.Writer != nil {
		if werr := d.Writer.Close(); werr != nil {
			err = werr
		}
	}
	return err
}
