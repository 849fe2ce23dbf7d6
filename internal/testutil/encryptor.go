package testutil

import (
	"tvp-go/internal/encryption"
	"tvp-go/internal/tv"
)

// NewTestEncryptor creates a reversible, key-free encryptor for snapshot tests.
func NewTestEncryptor() tv.Encryptor {
	return encryption.NewTestEncryptor()
}
