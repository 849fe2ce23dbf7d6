package database

import (
	"fmt"
	"os"
	"path/filepath"

	"tvp-go/internal/config"
)

// NewDatabaseFromConfig opens the store described by the database config.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string) (*DB, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, hostID+".db")
		return Open(dbPath)
	case "memory":
		return Open(MemoryPath)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
