package testutil

import (
	"tvp-go/internal/tv"
	"tvp-go/internal/vault"
)

// NewTestVault creates a new in-memory snapshot vault for testing.
func NewTestVault() tv.Vault {
	return vault.NewMemoryVault("test-vault")
}
