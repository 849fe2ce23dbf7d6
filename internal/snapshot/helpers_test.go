package snapshot_test

import (
	"path/filepath"

	"tvp-go/internal/config"
)

func encryptionConfig(dir string) config.EncryptionConfig {
	return config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "tvp.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "tvp.key"),
	}
}
