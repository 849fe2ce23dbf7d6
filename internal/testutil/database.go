package testutil

import (
	"testing"

	"tvp-go/internal/database"
)

// NewTestDatabase opens a private in-memory store without a schema. Store
// initialization migrates it. The store is closed when the test completes.
func NewTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
