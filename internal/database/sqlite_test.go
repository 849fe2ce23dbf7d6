package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if _, err := db.Writer.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return db
}

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	db := newTestDB(t)

	var enabled int
	if err := db.Reader.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("PRAGMA foreign_keys error = %v", err)
	}
	if enabled != 1 {
		t.Errorf("foreign_keys = %d, want 1", enabled)
	}
}

func TestOpen_MemorySharesPool(t *testing.T) {
	db := newTestDB(t)

	if db.Reader != db.Writer {
		t.Fatal("in-memory store should use a single pool")
	}
	if _, err := db.Writer.Exec("INSERT INTO items (name) VALUES ('a')"); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	var n int
	if err := db.Reader.QueryRow("SELECT COUNT(*) FROM items").Scan(&n); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestOpen_FileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}

	var mode string
	if err := db.Writer.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	if _, err := db.Writer.Exec("CREATE TABLE t (x INTEGER)"); err != nil {
		t.Fatalf("create error = %v", err)
	}
	if _, err := db.Writer.Exec("INSERT INTO t VALUES (1)"); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	var x int
	if err := db.Reader.QueryRow("SELECT x FROM t").Scan(&x); err != nil {
		t.Fatalf("reader query error = %v", err)
	}
	if x != 1 {
		t.Errorf("x = %d, want 1", x)
	}
}

func TestDB_InTx(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		err := db.InTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.Exec("INSERT INTO items (name) VALUES ('kept')")
			return err
		})
		if err != nil {
			t.Fatalf("InTx() error = %v", err)
		}
		assertCount(t, db, "kept", 1)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec("INSERT INTO items (name) VALUES ('dropped')"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("InTx() error = %v, want %v", err, boom)
		}
		assertCount(t, db, "dropped", 0)
	})
}

func TestDB_BackupTo(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Writer.Exec("INSERT INTO items (name) VALUES ('saved')"); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := db.BackupTo(context.Background(), dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	restored, err := Open(dest)
	if err != nil {
		t.Fatalf("Open(backup) error = %v", err)
	}
	defer restored.Close()
	assertCount(t, restored, "saved", 1)
}

func assertCount(t *testing.T, db *DB, name string, want int) {
	t.Helper()
	var n int
	if err := db.Reader.QueryRow("SELECT COUNT(*) FROM items WHERE name = ?", name).Scan(&n); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if n != want {
		t.Errorf("count(%q) = %d, want %d", name, n, want)
	}
}
